/*
 * doc.go, part of atoman.
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

/*Package atoman is the main package of the atoman library. It provides the Lattice
type, a snapshot of an atomistic simulation (positions, species, charges, IDs and any
number of named per-atom fields) inside an orthorhombic Cell with optional periodic
boundaries, plus the error kinds shared by all the subpackages.

The analyses live in subpackages:

	spatial    cell-list neighbour queries with minimum image conventions
	filtering  filter stages and the pipelines that chain them into a visible set
	defects    vacancies, interstitials, antisites and split interstitials against a reference
	clusters   connected groups of atoms within a neighbour radius
	voro       per-atom Voronoi volumes and neighbours
	acna       adaptive common neighbour analysis
	bondorder  Steinhardt Q4 and Q6 bond order parameters
	rdf        radial distribution functions
	histo      histograms of per-atom values
	chemplot   plots of histograms, RDFs and order parameter maps
	report     JSON export and storage of pipeline results
	metrics    Prometheus metrics for pipeline runs

Lattices are not safe for concurrent modification, but any number of goroutines
can read one at the same time, which is what pipelines do while they are applied.
*/
package atoman
