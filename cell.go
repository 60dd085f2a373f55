/*
 * cell.go, part of atoman.
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

package atoman

import (
	"fmt"
	"math"
)

//Cell is an orthorhombic simulation cell. Dims are the edge lengths, and
//PBC tells, for each axis, whether periodic boundary conditions apply.
type Cell struct {
	Dims [3]float64
	PBC  [3]bool
}

//NewCell returns a cell with the given edge lengths, periodic in the three directions.
func NewCell(x, y, z float64) Cell {
	return Cell{Dims: [3]float64{x, y, z}, PBC: [3]bool{true, true, true}}
}

//Validate returns an error if the geometry of the cell can't be used
//for minimum image calculations: periodic axes need a finite, positive length.
func (C Cell) Validate() error {
	for i := 0; i < 3; i++ {
		d := C.Dims[i]
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return NewError(fmt.Sprintf("cell dimension %d is not finite (%v)", i, d), "Cell.Validate", true)
		}
		if C.PBC[i] && d <= 0 {
			return NewError(fmt.Sprintf("periodic cell dimension %d must be positive (%v)", i, d), "Cell.Validate", true)
		}
	}
	return nil
}

//Volume returns the volume of the cell
func (C Cell) Volume() float64 {
	return C.Dims[0] * C.Dims[1] * C.Dims[2]
}

//Periodic returns true if any axis is periodic and usePBC is true.
func (C Cell) Periodic(usePBC bool) bool {
	return usePBC && (C.PBC[0] || C.PBC[1] || C.PBC[2])
}

//Delta returns the vector going from a to b. If usePBC is true, the
//minimum image convention is applied on the periodic axes.
func (C Cell) Delta(a, b [3]float64, usePBC bool) [3]float64 {
	var d [3]float64
	for i := 0; i < 3; i++ {
		d[i] = b[i] - a[i]
		if usePBC && C.PBC[i] {
			d[i] -= math.Round(d[i]/C.Dims[i]) * C.Dims[i]
		}
	}
	return d
}

//Separation2 returns the squared (minimum image, if usePBC is true) distance between a and b.
func (C Cell) Separation2(a, b [3]float64, usePBC bool) float64 {
	d := C.Delta(a, b, usePBC)
	return d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
}

//Separation returns the (minimum image, if usePBC is true) distance between a and b.
func (C Cell) Separation(a, b [3]float64, usePBC bool) float64 {
	return math.Sqrt(C.Separation2(a, b, usePBC))
}

//Wrap returns p with each coordinate on a periodic axis reduced to [0, dim).
func (C Cell) Wrap(p [3]float64) [3]float64 {
	for i := 0; i < 3; i++ {
		if !C.PBC[i] {
			continue
		}
		p[i] -= math.Floor(p[i]/C.Dims[i]) * C.Dims[i]
		//floating point can leave us exactly at dim
		if p[i] >= C.Dims[i] {
			p[i] = 0
		}
	}
	return p
}

//MaxRadius returns the largest radius for which minimum image queries are
//well defined in this cell: half the shortest periodic dimension. If no axis
//is periodic (or usePBC is false), it returns +Inf.
func (C Cell) MaxRadius(usePBC bool) float64 {
	r := math.Inf(1)
	if !usePBC {
		return r
	}
	for i := 0; i < 3; i++ {
		if C.PBC[i] {
			r = math.Min(r, C.Dims[i]/2)
		}
	}
	return r
}
