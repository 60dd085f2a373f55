/*
 * stats.go, part of atoman.
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

package v3

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

//ColMeans returns the mean of each column of F, i.e. the centroid of its vectors.
//If weights is not nil, it must have one element per vector.
func (F *Matrix) ColMeans(weights []float64) [3]float64 {
	var ret [3]float64
	n := F.NVecs()
	col := make([]float64, n)
	for j := 0; j < 3; j++ {
		column(F, j, col)
		ret[j] = stat.Mean(col, weights)
	}
	return ret
}

func column(F *Matrix, j int, dst []float64) {
	for i := range dst {
		dst[i] = F.At(i, j)
	}
}

//Norms returns the euclidean norm of each vector of F.
func (F *Matrix) Norms() []float64 {
	n := F.NVecs()
	ret := make([]float64, n)
	for i := 0; i < n; i++ {
		v := F.Vec(i)
		ret[i] = floats.Norm(v[:], 2)
	}
	return ret
}

//Bounds returns the minimum and maximum value along each axis.
//For an empty matrix, the minimum is +Inf and the maximum -Inf.
func (F *Matrix) Bounds() (min, max [3]float64) {
	for j := 0; j < 3; j++ {
		min[j] = math.Inf(1)
		max[j] = math.Inf(-1)
	}
	if F == nil {
		return
	}
	col := make([]float64, F.NVecs())
	if len(col) == 0 {
		return
	}
	for j := 0; j < 3; j++ {
		column(F, j, col)
		min[j] = floats.Min(col)
		max[j] = floats.Max(col)
	}
	return
}
