/*
 * pipeline.go, part of atoman.
 *
 * Copyright 2024 The atoman authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package filtering

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/defects"
	v3 "github.com/cdjsvis/atoman/v3"
)

//Result is the outcome of a pipeline run. It must not be modified, as it is shared by
//every caller of the run.
type Result struct {
	Pipeline uuid.UUID

	Visible            []int
	VisibleSpecieCount []int //indexed by the species of the input lattice

	//Fields computed by the stages. Each has one element per input atom.
	Scalars map[string][]float64
	Vectors map[string][][3]float64

	//Defects is nil unless the pipeline has a Point defects stage.
	Defects *defects.Result

	Clusters        [][]int
	StructureCounts map[string]map[string]int
	Drift           [3]float64
}

//Pipeline is an ordered list of filter stages applied to an input lattice (and, for some stages,
//a reference). The stages can be edited and the pipeline applied from different goroutines.
type Pipeline struct {
	ID   uuid.UUID
	Name string

	mu         sync.Mutex //guards everything below.
	stages     []Settings
	ref, input *atoman.Lattice
	static     bool
	persistent bool
	result     *Result
	options    Options

	run sync.Mutex
	sf  singleflight.Group
}

//New returns an empty pipeline for the given lattices. ref can be nil if no stage needs it.
//The options are copied.
func New(name string, ref, input *atoman.Lattice, options ...*Options) *Pipeline {
	o := DefaultOptions()
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	}
	P := &Pipeline{ID: uuid.New(), Name: name, ref: ref, input: input, options: *o}
	if P.options.registry == nil {
		P.options.registry = DefaultRegistry()
	}
	if P.options.logger == nil {
		P.options.logger = slog.Default()
	}
	return P
}

func (P *Pipeline) logger() *slog.Logger {
	return P.options.logger.With(slog.String("pipeline", P.ID.String()), slog.String("name", P.Name))
}

//Static returns whether the pipeline is static, and sets the value, if one is given.
//The stages of a static pipeline can't be changed.
func (P *Pipeline) Static(static ...bool) bool {
	P.mu.Lock()
	defer P.mu.Unlock()
	ret := P.static
	if len(static) > 0 {
		P.static = static[0]
	}
	return ret
}

//Persistent returns whether the pipeline is persistent, and sets the value, if one is given.
//Persistent pipelines keep their stages when new lattices are given.
func (P *Pipeline) Persistent(persistent ...bool) bool {
	P.mu.Lock()
	defer P.mu.Unlock()
	ret := P.persistent
	if len(persistent) > 0 {
		P.persistent = persistent[0]
	}
	return ret
}

//SetLattices replaces the lattices the pipeline works on, and discards the last result.
//Unless the pipeline is persistent or static, its stages are removed.
func (P *Pipeline) SetLattices(ref, input *atoman.Lattice) {
	P.mu.Lock()
	defer P.mu.Unlock()
	P.ref, P.input = ref, input
	P.result = nil
	if !P.persistent && !P.static {
		P.stages = nil
	}
}

//Lattices returns the reference and input lattices of the pipeline.
func (P *Pipeline) Lattices() (ref, input *atoman.Lattice) {
	P.mu.Lock()
	defer P.mu.Unlock()
	return P.ref, P.input
}

func (P *Pipeline) errStatic(caller string) error {
	return atoman.NewError(fmt.Sprintf("pipeline %q is static", P.Name), caller, false)
}

//checkAdd returns an error if s can't be appended to stages.
func (P *Pipeline) checkAdd(stages []Settings, s Settings) error {
	k := s.Kind()
	if k == PointDefects && len(stages) > 0 {
		return atoman.NewFilterCompatibilityError(k.String(), stages[0].Kind().String(), "Pipeline.AddStage")
	}
	for _, v := range stages {
		if v.Kind() == PointDefects && !defectCompatible(k) {
			return atoman.NewFilterCompatibilityError(k.String(), v.Kind().String(), "Pipeline.AddStage")
		}
	}
	if k == Displacement && P.input != nil {
		var n int
		if P.ref != nil {
			n = P.ref.NAtoms
		}
		if n != P.input.NAtoms {
			return atoman.NewAtomCountMismatchError(k.String(), P.input.NAtoms, n, "Pipeline.AddStage")
		}
	}
	return nil
}

//checkList returns an error if the stages, in their order, are not a valid pipeline.
func (P *Pipeline) checkList(stages []Settings) error {
	for i := range stages {
		if err := P.checkAdd(stages[:i], stages[i]); err != nil {
			return err
		}
	}
	return nil
}

//AddStage validates s and appends it to the pipeline.
func (P *Pipeline) AddStage(s Settings) error {
	if err := s.Validate(); err != nil {
		return atoman.Decorate(err, "Pipeline.AddStage")
	}
	P.mu.Lock()
	defer P.mu.Unlock()
	if P.static {
		return P.errStatic("Pipeline.AddStage")
	}
	if err := P.checkAdd(P.stages, s); err != nil {
		return err
	}
	P.stages = append(P.stages, s)
	return nil
}

//RemoveStage removes the i-th stage.
func (P *Pipeline) RemoveStage(i int) error {
	P.mu.Lock()
	defer P.mu.Unlock()
	if P.static {
		return P.errStatic("Pipeline.RemoveStage")
	}
	if err := P.checkIndex(i, "Pipeline.RemoveStage"); err != nil {
		return err
	}
	P.stages = slices.Delete(P.stages, i, i+1)
	return nil
}

//MoveStage moves the stage in position from to position to, shifting the ones in between.
//If an index is out of range or the new order is invalid, nothing is changed.
func (P *Pipeline) MoveStage(from, to int) error {
	P.mu.Lock()
	defer P.mu.Unlock()
	if P.static {
		return P.errStatic("Pipeline.MoveStage")
	}
	if err := P.checkIndex(from, "Pipeline.MoveStage"); err != nil {
		return err
	}
	if err := P.checkIndex(to, "Pipeline.MoveStage"); err != nil {
		return err
	}
	s := P.stages[from]
	n := slices.Delete(slices.Clone(P.stages), from, from+1)
	n = slices.Insert(n, to, s)
	if err := P.checkList(n); err != nil {
		return atoman.Decorate(err, "Pipeline.MoveStage")
	}
	P.stages = n
	return nil
}

func (P *Pipeline) checkIndex(i int, caller string) error {
	if i < 0 || i >= len(P.stages) {
		return atoman.NewError(fmt.Sprintf("stage index %d out of range [0,%d)", i, len(P.stages)), caller, false)
	}
	return nil
}

//Clear removes all the stages.
func (P *Pipeline) Clear() error {
	P.mu.Lock()
	defer P.mu.Unlock()
	if P.static {
		return P.errStatic("Pipeline.Clear")
	}
	P.stages = nil
	return nil
}

//Stages returns a copy of the list of stage settings. The settings themselves are shared.
func (P *Pipeline) Stages() []Settings {
	P.mu.Lock()
	defer P.mu.Unlock()
	return slices.Clone(P.stages)
}

//Result returns the result of the last successful run, or nil.
func (P *Pipeline) Result() *Result {
	P.mu.Lock()
	defer P.mu.Unlock()
	return P.result
}

//Apply runs the pipeline. Concurrent calls share the same run. If a stage fails,
//a *atoman.StageExecutionError is returned and the previous result is kept.
func (P *Pipeline) Apply() (*Result, error) {
	r, err, _ := P.sf.Do("apply", func() (any, error) {
		return P.apply()
	})
	if err != nil {
		return nil, err
	}
	return r.(*Result), nil
}

func (P *Pipeline) apply() (*Result, error) {
	P.run.Lock()
	defer P.run.Unlock()
	P.mu.Lock()
	stages := slices.Clone(P.stages)
	ref, input := P.ref, P.input
	o := P.options
	P.mu.Unlock()
	log := P.logger()
	start := time.Now()
	R, err := P.execute(stages, ref, input, &o, log)
	if o.recorder != nil {
		var n int
		if R != nil {
			n = len(R.Visible)
		}
		o.recorder.ObserveRun(P.Name, time.Since(start), n, err)
	}
	if err != nil {
		log.Error("pipeline failed", slog.Any("error", err))
		return nil, err
	}
	log.Info("pipeline applied", slog.Int("visible", len(R.Visible)), slog.Duration("time", time.Since(start)))
	P.mu.Lock()
	//the lattices may have been replaced while running.
	if P.ref == ref && P.input == input {
		P.result = R
	}
	P.mu.Unlock()
	return R, nil
}

func (P *Pipeline) execute(stages []Settings, ref, input *atoman.Lattice, o *Options, log *slog.Logger) (*Result, error) {
	if input == nil {
		return nil, atoman.NewError("no input lattice", "Pipeline.Apply", false)
	}
	//everything that can be checked is checked before running anything.
	built := make([]Stage, len(stages))
	for i, s := range stages {
		st, err := o.registry.Build(s)
		if err != nil {
			return nil, atoman.Decorate(err, "Pipeline.Apply")
		}
		built[i] = st
	}
	R := &Result{
		Pipeline:        P.ID,
		Scalars:         make(map[string][]float64),
		Vectors:         make(map[string][][3]float64),
		StructureCounts: make(map[string]map[string]int),
	}
	if o.drift {
		R.Drift = driftVector(ref, input, o.pbc, log)
	}
	R.Visible = make([]int, input.NAtoms)
	for i := range R.Visible {
		R.Visible[i] = i
	}
	vcache := &voronoiCache{opts: o.voronoi}
	for i, st := range built {
		in := &Input{
			Lattice:           input,
			Ref:               ref,
			Visible:           R.Visible,
			Scalars:           R.Scalars,
			Vectors:           R.Vectors,
			Defects:           R.Defects,
			Drift:             R.Drift,
			DriftCompensation: o.drift,
			Bonds:             o.bonds,
			Cpus:              o.cpus,
			UsePBC:            o.pbc,
			Logger:            log,
			voronoi:           vcache,
		}
		t := time.Now()
		out, err := st.Apply(in)
		if o.recorder != nil {
			var n int
			if out != nil {
				n = len(out.Visible)
			}
			o.recorder.ObserveStage(P.Name, st.Kind().String(), time.Since(t), n, err)
		}
		if err != nil {
			return nil, atoman.NewStageExecutionError(i, st.Kind().String(), err, "Pipeline.Apply")
		}
		R.commit(out)
		log.Debug("stage applied", slog.Int("index", i), slog.String("stage", st.Kind().String()), slog.Int("visible", len(R.Visible)))
	}
	R.VisibleSpecieCount = input.VisibleSpeciesCount(R.Visible)
	return R, nil
}

//commit adds the output of a stage to the result.
func (R *Result) commit(out *Output) {
	R.Visible = out.Visible
	if R.Visible == nil {
		//the analysis packages take a nil subset as "every atom".
		R.Visible = []int{}
	}
	for k, v := range out.Scalars {
		R.Scalars[k] = v
	}
	for k, v := range out.Vectors {
		R.Vectors[k] = v
	}
	if out.Defects != nil {
		R.Defects = out.Defects
	}
	if out.Clusters != nil {
		R.Clusters = out.Clusters
	}
	if out.StructureCountsName != "" {
		R.StructureCounts[out.StructureCountsName] = out.StructureCounts
	}
}

//driftVector returns the mean (minimum image) displacement of the input atoms from the reference
//atoms with the same index. If the lattices don't have the same number of atoms, it returns zero.
func driftVector(ref, input *atoman.Lattice, usePBC bool, log *slog.Logger) [3]float64 {
	if ref == nil || ref.NAtoms != input.NAtoms || input.NAtoms == 0 {
		log.Warn("can't compute the drift vector: the reference and input lattices don't match")
		return [3]float64{}
	}
	D := v3.Zeros(input.NAtoms)
	for i := 0; i < input.NAtoms; i++ {
		D.SetVec(i, input.Cell.Delta(ref.AtomPos(i), input.AtomPos(i), usePBC))
	}
	drift := D.ColMeans(nil)
	log.Info("drift vector", slog.Any("drift", drift))
	return drift
}

//ApplyAll applies the given pipelines concurrently, running at most cpus at the same time.
//It returns the results in the same order as the pipelines, and the first error found, if any.
//The pipelines can share their lattices, as they are not modified.
func ApplyAll(pipelines []*Pipeline, cpus int) ([]*Result, error) {
	ret := make([]*Result, len(pipelines))
	var g errgroup.Group
	g.SetLimit(max(cpus, 1))
	for i, P := range pipelines {
		i, P := i, P
		g.Go(func() error {
			r, err := P.Apply()
			ret[i] = r
			return err
		})
	}
	return ret, g.Wait()
}
