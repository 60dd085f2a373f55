/*
 * voronoi.go, part of atoman.
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

/*
Package voro computes the Voronoi cell of each atom of a lattice: its volume, and the
neighbouring atoms that share a face with it.

Each cell is built by taking a box around the atom and clipping it with the planes bisecting
the atom and each of its neighbours within a cutoff. Along non-periodic axes, the cell walls
(extended to include every atom) bound the box. If some vertex of the resulting cell is further
than half the cutoff from the atom, atoms beyond the cutoff could still clip it, so the cell
is built again with a larger cutoff.
*/
package voro

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/spatial"
)

//VPlane is the plane bisecting 2 atoms, seen from the first one.
type VPlane struct {
	Atoms    [2]int  //indexes of the 2 atoms.
	Distance float64 //The plane is equidistant from both atoms, so there is only one distance
	Normal   r3.Vec  //unit vector from the first atom towards the second
}

//PlaneBetweenAtoms returns the plane bisecting atoms i and j, given the vector d going from i to j.
func PlaneBetweenAtoms(d r3.Vec, i, j int) *VPlane {
	l := r3.Norm(d)
	return &VPlane{Atoms: [2]int{i, j}, Distance: l / 2, Normal: r3.Scale(1/l, d)}
}

//OtherAtom, given the index of one of the atoms bisected by the plane, returns the index of the other atom.
func (V *VPlane) OtherAtom(i int) int {
	if V.Atoms[0] == i {
		return V.Atoms[1]
	} else if V.Atoms[1] == i {
		return V.Atoms[0]
	}
	panic(fmt.Sprintf("Plane is not related to atom %d", i))
}

//Cell is the Voronoi cell of an atom. Neighbours[i] is the atom on the other side of the face
//with area FaceAreas[i]. Only faces with an area above the threshold are listed, but all count
//for the volume.
type Cell struct {
	Volume     float64
	Neighbours []int
	FaceAreas  []float64
}

//NumNeighbours returns the number of neighbours of the atom.
func (C *Cell) NumNeighbours() int {
	return len(C.Neighbours)
}

//Options contains the options for the Voronoi calculation.
type Options struct {
	cutoff        float64
	faceThreshold float64
	pbc           bool
	cpus          int
	logger        *slog.Logger
}

//DefaultOptions returns the default options: a 6 A cutoff, a face area threshold of 0.1,
//periodic boundaries, and as many goroutines as logical CPUs.
func DefaultOptions() *Options {
	return &Options{cutoff: 6, faceThreshold: 0.1, pbc: true, cpus: runtime.NumCPU(), logger: slog.Default()}
}

//Cutoff returns the initial neighbour cutoff, and sets it, if a positive value is given.
func (O *Options) Cutoff(cutoff ...float64) float64 {
	ret := O.cutoff
	if len(cutoff) > 0 && cutoff[0] > 0 {
		O.cutoff = cutoff[0]
	}
	return ret
}

//FaceThreshold returns the minimum area for a face to count as contact between
//neighbours, and sets it, if a non-negative value is given.
func (O *Options) FaceThreshold(t ...float64) float64 {
	ret := O.faceThreshold
	if len(t) > 0 && t[0] >= 0 {
		O.faceThreshold = t[0]
	}
	return ret
}

//PBC returns whether periodic boundaries are used and sets the value to the one given, if any.
func (O *Options) PBC(pbc ...bool) bool {
	ret := O.pbc
	if len(pbc) > 0 {
		O.pbc = pbc[0]
	}
	return ret
}

//Cpus returns the number of goroutines to use, and sets it, if a valid value is given.
func (O *Options) Cpus(cpus ...int) int {
	ret := O.cpus
	if len(cpus) > 0 && cpus[0] > 0 {
		O.cpus = cpus[0]
	}
	return ret
}

//Logger returns the logger in use, and sets it, if a non-nil one is given.
func (O *Options) Logger(l ...*slog.Logger) *slog.Logger {
	ret := O.logger
	if len(l) > 0 && l[0] != nil {
		O.logger = l[0]
	}
	return ret
}

//Compute returns the Voronoi cell of each atom in subset (all the atoms if subset is nil),
//with positions in the flat slice pos. Only atoms in subset act as neighbours.
func Compute(pos []float64, subset []int, cell atoman.Cell, options ...*Options) ([]Cell, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if subset == nil {
		subset = make([]int, len(pos)/3)
		for i := range subset {
			subset[i] = i
		}
	}
	ret := make([]Cell, len(subset))
	if len(subset) == 0 {
		return ret, nil
	}
	//the region where cells can extend along non-periodic axes
	var lo, hi r3.Vec
	lo = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, a := range subset {
		p := r3.Vec{X: pos[3*a], Y: pos[3*a+1], Z: pos[3*a+2]}
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	lo = r3.Vec{X: math.Min(lo.X, 0), Y: math.Min(lo.Y, 0), Z: math.Min(lo.Z, 0)}
	hi = r3.Vec{X: math.Max(hi.X, cell.Dims[0]), Y: math.Max(hi.Y, cell.Dims[1]), Z: math.Max(hi.Z, cell.Dims[2])}

	limit := cell.MaxRadius(o.pbc)
	if math.IsInf(limit, 1) {
		limit = r3.Norm(r3.Sub(hi, lo))
	}
	cutoff := math.Min(o.cutoff, limit)
	idx, err := spatial.New(pos, subset, cell, cutoff)
	if err != nil {
		return nil, atoman.Decorate(err, "voro.Compute")
	}
	c := &calculator{pos: pos, cell: cell, idx: idx, lo: lo, hi: hi, limit: limit, o: o}
	var g errgroup.Group
	g.SetLimit(o.cpus)
	chunk := len(subset)/(4*o.cpus) + 1
	for start := 0; start < len(subset); start += chunk {
		start := start
		end := start + chunk
		if end > len(subset) {
			end = len(subset)
		}
		g.Go(func() error {
			for k := start; k < end; k++ {
				cl, err := c.atomCell(subset[k], cutoff)
				if err != nil {
					return err
				}
				ret[k] = cl
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, atoman.Decorate(err, "voro.Compute")
	}
	o.logger.Debug("voronoi cells computed", slog.Int("atoms", len(subset)))
	return ret, nil
}

type calculator struct {
	pos    []float64
	cell   atoman.Cell
	idx    *spatial.Index
	lo, hi r3.Vec
	limit  float64
	o      *Options
}

func (c *calculator) atomCell(a int, cutoff float64) (Cell, error) {
	p := [3]float64{c.pos[3*a], c.pos[3*a+1], c.pos[3*a+2]}
	for {
		P, err := c.clipped(a, p, cutoff)
		if err != nil {
			return Cell{}, err
		}
		if 2*P.maxVertexDistance() > cutoff+eps && cutoff < c.limit {
			cutoff = math.Min(2*P.maxVertexDistance(), c.limit)
			continue
		}
		ret := Cell{Volume: P.volume()}
		for _, f := range P.faces {
			if f.id < 0 {
				continue
			}
			if ar := f.area(); ar > c.o.faceThreshold {
				ret.Neighbours = append(ret.Neighbours, f.id)
				ret.FaceAreas = append(ret.FaceAreas, ar)
			}
		}
		return ret, nil
	}
}

//clipped returns the cell of atom a, at p, built with the neighbours within cutoff.
func (c *calculator) clipped(a int, p [3]float64, cutoff float64) (*polyhedron, error) {
	var blo, bhi r3.Vec
	ids := [3][2]int{}
	bl := [3]float64{c.lo.X - p[0], c.lo.Y - p[1], c.lo.Z - p[2]}
	bh := [3]float64{c.hi.X - p[0], c.hi.Y - p[1], c.hi.Z - p[2]}
	for j := 0; j < 3; j++ {
		ids[j] = [2]int{wallFace, wallFace}
		if c.o.pbc && c.cell.PBC[j] {
			bl[j], bh[j] = -cutoff, cutoff
			ids[j] = [2]int{boxFace, boxFace}
		}
	}
	blo = r3.Vec{X: bl[0], Y: bl[1], Z: bl[2]}
	bhi = r3.Vec{X: bh[0], Y: bh[1], Z: bh[2]}
	P := newBox(blo, bhi, ids)
	nb, err := c.idx.WithinDist(p, cutoff, c.o.pbc)
	if err != nil {
		return nil, atoman.Decorate(err, "clipped")
	}
	for _, n := range nb {
		if n.Index == a {
			continue
		}
		if n.Dist < eps {
			c.o.logger.Warn("overlapping atoms ignored in Voronoi cell", slog.Int("atom", a), slog.Int("other", n.Index))
			continue
		}
		q := [3]float64{c.pos[3*n.Index], c.pos[3*n.Index+1], c.pos[3*n.Index+2]}
		d := c.cell.Delta(p, q, c.o.pbc)
		plane := PlaneBetweenAtoms(r3.Vec{X: d[0], Y: d[1], Z: d[2]}, a, n.Index)
		P.clip(plane.Normal, plane.Distance, plane.OtherAtom(a))
	}
	return P, nil
}
