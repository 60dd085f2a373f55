/*Package filtering decides which atoms of a lattice are visible by chaining filter stages.

A Pipeline holds an ordered list of stage Settings, one concrete type per Kind. Applying it
starts with every atom of the input lattice visible, and each stage receives the visible set
left by the previous one, together with the fields the previous stages computed, and returns
a new visible set and, possibly, new fields (coordination numbers, Voronoi volumes, Q4/Q6,
displacements...). The result of the last successful run is kept in the pipeline.

The "Point defects" stage compares the input lattice with a reference one. It must be the first
stage of its pipeline, and only the "Crop box" and "Slice" stages can follow it; those then
crop the defect lists as well as the visible atoms.

Stages are created from their settings by a Registry, so new kinds of stages can be plugged in.
Independent pipelines can be applied concurrently with ApplyAll.
*/
package filtering
