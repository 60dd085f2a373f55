/*
 * matrix.go, part of atoman.
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
	"fmt"

	"gonum.org/v1/gonum/mat"
)

//Matrix is a set of vectors in 3D space. Within the package it is understood that a
//"vector" is a row vector, i.e. the cartesian coordinates of a point in 3D space.
type Matrix struct {
	*mat.Dense
}

//Dense2Matrix wraps A, which must have 3 columns.
func Dense2Matrix(A *mat.Dense) *Matrix {
	if _, c := A.Dims(); c != 3 {
		panic(ErrNotXx3Matrix)
	}
	return &Matrix{A}
}

//NewMatrix returns a Matrix with 3 columns from data. The Matrix uses data as its
//backing slice, so changes in one are reflected in the other.
func NewMatrix(data []float64) (*Matrix, error) {
	const cols int = 3
	l := len(data)
	rows := l / cols
	if l%cols != 0 || l == 0 {
		return nil, Error{fmt.Sprintf("Input slice lenght %d not divisible by %d, or empty", l, cols), []string{"NewMatrix"}, true}
	}
	return &Matrix{mat.NewDense(rows, cols, data)}, nil
}

//Zeros returns a zero-filled Matrix with vecs vectors and 3 columns.
func Zeros(vecs int) *Matrix {
	return &Matrix{mat.NewDense(vecs, 3, make([]float64, vecs*3))}
}

//NVecs returns the number of vectors (rows) in F.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != 3 {
		panic(ErrNotXx3Matrix)
	}
	return r
}

//VecView returns a view of the i-th vector of F.
func (F *Matrix) VecView(i int) *Matrix {
	return &Matrix{F.Dense.Slice(i, i+1, 0, 3).(*mat.Dense)}
}

//View returns a view of the r vectors of F starting from the i-th.
func (F *Matrix) View(i, r int) *Matrix {
	return &Matrix{F.Dense.Slice(i, i+r, 0, 3).(*mat.Dense)}
}

//Vec returns the i-th vector of F as an array.
func (F *Matrix) Vec(i int) [3]float64 {
	return [3]float64{F.At(i, 0), F.At(i, 1), F.At(i, 2)}
}

//SetVec sets the i-th vector of F to v.
func (F *Matrix) SetVec(i int, v [3]float64) {
	F.SetRow(i, v[:])
}

//SomeVecs puts in F the vectors of A with indexes in clist.
//F must have len(clist) vectors. It panics otherwise.
func (F *Matrix) SomeVecs(A *Matrix, clist []int) {
	if F.NVecs() != len(clist) {
		panic(ErrShape)
	}
	for key, val := range clist {
		F.SetVec(key, A.Vec(val))
	}
}

//SetVecs sets the vectors of F with indexes in clist to the vectors of A, in order.
func (F *Matrix) SetVecs(A *Matrix, clist []int) {
	if A.NVecs() != len(clist) {
		panic(ErrShape)
	}
	for key, val := range clist {
		F.SetVec(val, A.Vec(key))
	}
}

//AddVec puts in F the sum of each vector of A and vec.
func (F *Matrix) AddVec(A *Matrix, vec [3]float64) {
	ar := A.NVecs()
	if F.NVecs() != ar {
		panic(ErrShape)
	}
	for i := 0; i < ar; i++ {
		v := A.Vec(i)
		F.SetVec(i, [3]float64{v[0] + vec[0], v[1] + vec[1], v[2] + vec[2]})
	}
}

//SubVec puts in F the difference between each vector of A and vec.
func (F *Matrix) SubVec(A *Matrix, vec [3]float64) {
	F.AddVec(A, [3]float64{-vec[0], -vec[1], -vec[2]})
}

//String returns a representation of F with one vector per line.
func (F *Matrix) String() string {
	if F == nil || F.Dense == nil || F.Dense.IsEmpty() {
		return "[]"
	}
	return fmt.Sprintf("%v", mat.Formatted(F.Dense, mat.Squeeze()))
}

//Errors

//Error is the error type of the package, it is the same as atoman.CError,
//redefined to avoid circular imports.
type Error struct {
	message  string
	deco     []string
	critical bool
}

//Error returns a string with an error message.
func (err Error) Error() string {
	return err.message
}

//Decorate will add the dec string to the decoration slice of strings of the error,
//and return the resulting slice.
func (err Error) Decorate(dec string) []string {
	err.deco = append(err.deco, dec)
	return err.deco
}

//Critical return whether the error is critical or it can be ignored
func (err Error) Critical() bool { return err.critical }

//PanicMsg is a message used for panics, even though it does satisfy the error interface.
//for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNotXx3Matrix = PanicMsg("atoman/v3: A Matrix should have 3 columns")
	ErrShape        = PanicMsg("atoman/v3: Dimension mismatch")
)
