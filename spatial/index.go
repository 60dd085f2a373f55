/*
 * index.go, part of atoman.
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

//Package spatial provides a uniform cell grid over a set of atom positions, to find the
//atoms within a given radius of a point, with or without periodic boundary conditions.
package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/cdjsvis/atoman"
)

//Neighbour is an atom found by a query, with its distance to the query point.
type Neighbour struct {
	Index int
	Dist  float64
}

//Index is a cell grid built over a subset of atom positions. It is never modified
//after construction, so any number of goroutines can query it at the same time.
type Index struct {
	pos    []float64
	cell   atoman.Cell
	origin [3]float64
	width  [3]float64
	n      [3]int
	start  []int //start[c] is the offset in items of the atoms of grid cell c
	items  []int
}

//the grid never gets more cells than this many times the number of atoms.
const maxCellsPerAtom = 4

//New builds an index over the atoms in subset (all of them if subset is nil), with
//positions given in the flat slice pos (3 values per atom). cellSize should be at
//least the largest radius to be queried. Along periodic axes the grid spans the
//cell and positions are wrapped; along the others it spans the atoms.
func New(pos []float64, subset []int, cell atoman.Cell, cellSize float64) (*Index, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, atoman.NewError(fmt.Sprintf("cell size must be positive and finite (%v)", cellSize), "spatial.New", true)
	}
	if err := cell.Validate(); err != nil {
		return nil, atoman.Decorate(err, "spatial.New")
	}
	if len(pos)%3 != 0 {
		return nil, atoman.NewError("position slice length is not a multiple of 3", "spatial.New", true)
	}
	if subset == nil {
		subset = make([]int, len(pos)/3)
		for i := range subset {
			subset[i] = i
		}
	}
	I := &Index{pos: pos, cell: cell}
	var min, max [3]float64
	for j := 0; j < 3; j++ {
		min[j], max[j] = math.Inf(1), math.Inf(-1)
	}
	for _, a := range subset {
		if a < 0 || 3*a+2 >= len(pos) {
			return nil, atoman.NewError(fmt.Sprintf("atom index %d out of range", a), "spatial.New", true)
		}
		for j := 0; j < 3; j++ {
			v := pos[3*a+j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, atoman.NewError(fmt.Sprintf("atom %d has a non-finite position", a), "spatial.New", true)
			}
			min[j] = math.Min(min[j], v)
			max[j] = math.Max(max[j], v)
		}
	}
	var extent [3]float64
	for j := 0; j < 3; j++ {
		if cell.PBC[j] {
			I.origin[j] = 0
			extent[j] = cell.Dims[j]
		} else if len(subset) > 0 {
			I.origin[j] = min[j]
			extent[j] = max[j] - min[j]
		}
	}
	maxCells := maxCellsPerAtom*len(subset) + 27
	for {
		total := 1
		for j := 0; j < 3; j++ {
			if cell.PBC[j] {
				I.n[j] = int(math.Max(1, math.Floor(extent[j]/cellSize)))
				I.width[j] = extent[j] / float64(I.n[j])
			} else {
				I.n[j] = int(math.Max(1, math.Ceil(extent[j]/cellSize)))
				I.width[j] = math.Max(cellSize, extent[j]/float64(I.n[j]))
			}
			total *= I.n[j]
		}
		if total <= maxCells {
			break
		}
		cellSize *= 1.5
	}
	ncells := I.n[0] * I.n[1] * I.n[2]
	I.start = make([]int, ncells+1)
	cellOf := make([]int, len(subset))
	for k, a := range subset {
		c := I.cellIndex(I.coords(I.atomPos(a)))
		cellOf[k] = c
		I.start[c+1]++
	}
	for c := 0; c < ncells; c++ {
		I.start[c+1] += I.start[c]
	}
	I.items = make([]int, len(subset))
	fill := append([]int(nil), I.start[:ncells]...)
	for k, a := range subset {
		c := cellOf[k]
		I.items[fill[c]] = a
		fill[c]++
	}
	return I, nil
}

func (I *Index) atomPos(a int) [3]float64 {
	return [3]float64{I.pos[3*a], I.pos[3*a+1], I.pos[3*a+2]}
}

//coords returns the grid coordinates of the point p, which may be outside the grid
//along non-periodic axes.
func (I *Index) coords(p [3]float64) [3]int {
	p = I.cell.Wrap(p)
	var c [3]int
	for j := 0; j < 3; j++ {
		c[j] = int(math.Floor((p[j] - I.origin[j]) / I.width[j]))
		if I.cell.PBC[j] {
			c[j] = ((c[j] % I.n[j]) + I.n[j]) % I.n[j]
		}
	}
	return c
}

func (I *Index) cellIndex(c [3]int) int {
	for j := 0; j < 3; j++ {
		if c[j] < 0 {
			c[j] = 0
		} else if c[j] >= I.n[j] {
			c[j] = I.n[j] - 1
		}
	}
	return (c[0]*I.n[1]+c[1])*I.n[2] + c[2]
}

//axisRange returns the grid cells to scan along axis j, for a query centered in grid
//cell c with the given radius. Query points outside the grid are clamped to an edge
//cell, which is still the nearest one to them, so the same number of rings suffices.
func (I *Index) axisRange(j, c int, radius float64, usePBC bool) []int {
	rings := int(math.Ceil(radius / I.width[j]))
	n := I.n[j]
	var ret []int
	switch {
	case I.cell.PBC[j] && !usePBC:
		//positions are wrapped in the grid but not in the distances, anything can be close.
		fallthrough
	case I.cell.PBC[j] && 2*rings+1 >= n:
		for k := 0; k < n; k++ {
			ret = append(ret, k)
		}
	case I.cell.PBC[j]:
		for k := c - rings; k <= c+rings; k++ {
			ret = append(ret, ((k%n)+n)%n)
		}
	default:
		lo, hi := c-rings, c+rings
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		for k := lo; k <= hi; k++ {
			ret = append(ret, k)
		}
	}
	return ret
}

func (I *Index) checkRadius(radius float64, usePBC bool) error {
	if radius < 0 || math.IsNaN(radius) {
		return atoman.NewError(fmt.Sprintf("invalid radius %v", radius), "spatial.Index", false)
	}
	if max := I.cell.MaxRadius(usePBC); radius > max {
		return atoman.NewError(fmt.Sprintf("radius %v larger than half the shortest periodic cell dimension (%v)", radius, max), "spatial.Index", false)
	}
	return nil
}

//WithinDist returns the atoms whose (minimum image, if usePBC) distance to point is
//not larger than radius, with their distances, sorted by atom index.
func (I *Index) WithinDist(point [3]float64, radius float64, usePBC bool) ([]Neighbour, error) {
	if err := I.checkRadius(radius, usePBC); err != nil {
		return nil, atoman.Decorate(err, "WithinDist")
	}
	var ret []Neighbour
	if len(I.items) == 0 {
		return ret, nil
	}
	c := I.coords(point)
	r2 := radius * radius
	xs := I.axisRange(0, c[0], radius, usePBC)
	ys := I.axisRange(1, c[1], radius, usePBC)
	zs := I.axisRange(2, c[2], radius, usePBC)
	for _, x := range xs {
		for _, y := range ys {
			for _, z := range zs {
				g := (x*I.n[1]+y)*I.n[2] + z
				for _, a := range I.items[I.start[g]:I.start[g+1]] {
					d2 := I.cell.Separation2(point, I.atomPos(a), usePBC)
					if d2 <= r2 {
						ret = append(ret, Neighbour{Index: a, Dist: math.Sqrt(d2)})
					}
				}
			}
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Index < ret[j].Index })
	return ret, nil
}

//Within returns the indexes, in ascending order, of the atoms whose (minimum image, if usePBC)
//distance to point is not larger than radius.
func (I *Index) Within(point [3]float64, radius float64, usePBC bool) ([]int, error) {
	nb, err := I.WithinDist(point, radius, usePBC)
	if err != nil {
		return nil, atoman.Decorate(err, "Within")
	}
	ret := make([]int, len(nb))
	for i, v := range nb {
		ret[i] = v.Index
	}
	return ret, nil
}

//Nearest returns the atom closest to point within radius, other than skip, and its
//distance. Ties go to the lowest index. If there is no such atom, it returns -1.
func (I *Index) Nearest(point [3]float64, radius float64, usePBC bool, skip int) (int, float64, error) {
	nb, err := I.WithinDist(point, radius, usePBC)
	if err != nil {
		return -1, -1, atoman.Decorate(err, "Nearest")
	}
	best, bestd := -1, math.Inf(1)
	for _, v := range nb {
		if v.Index != skip && v.Dist < bestd {
			best, bestd = v.Index, v.Dist
		}
	}
	return best, bestd, nil
}

//Len returns the number of atoms in the index.
func (I *Index) Len() int {
	return len(I.items)
}
