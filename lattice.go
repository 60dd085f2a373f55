/*
 * lattice.go, part of atoman.
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
	"log/slog"
	"math"
	"sort"

	"github.com/cdjsvis/atoman/v3"
)

var logger = slog.Default()

//SetLogger sets the logger used by the package. A nil l restores slog.Default().
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	logger = l
}

//Lattice is a snapshot of a simulation: the positions, species, charges and IDs
//of NAtoms atoms, plus any number of named per-atom scalar and vector fields.
//All per-atom slices have NAtoms elements (Pos has 3*NAtoms).
//The species table is shared between clones, and replaced, never modified, when
//atoms of a new species are added or the last atom of a species is removed.
type Lattice struct {
	NAtoms  int
	Pos     []float64
	Specie  []int
	Charge  []float64
	AtomID  []int
	Scalars map[string][]float64
	Vectors map[string][][3]float64
	Cell    Cell

	species     *SpeciesTable
	specieCount []int
	maxID       int
}

//NewLattice returns an empty lattice with the given cell.
func NewLattice(cell Cell) *Lattice {
	return &Lattice{
		Cell:    cell,
		Scalars: make(map[string][]float64),
		Vectors: make(map[string][][3]float64),
		species: NewSpeciesTable(),
		maxID:   -1,
	}
}

//Species returns the species table of the lattice. It must not be modified.
func (L *Lattice) Species() *SpeciesTable {
	return L.species
}

//NSpecies returns the number of species in the lattice.
func (L *Lattice) NSpecies() int {
	return L.species.Len()
}

//SpecieInfo returns the properties of the i-th species of the lattice, including
//the number of atoms of that species.
func (L *Lattice) SpecieInfo(i int) SpecieInfo {
	s := L.species.Specie(i)
	s.Count = L.specieCount[i]
	return s
}

//SpecieCount returns a copy of the number of atoms of each species.
func (L *Lattice) SpecieCount() []int {
	return append([]int(nil), L.specieCount...)
}

//SpeciesIndex returns the index of the species with the given symbol, or -1.
func (L *Lattice) SpeciesIndex(symbol string) int {
	return L.species.Index(symbol)
}

//Symbol returns the chemical symbol of the i-th atom.
func (L *Lattice) Symbol(i int) string {
	return L.species.species[L.Specie[i]].Symbol
}

//SetSpeciesProperties changes the mass, covalent radius and colour of a species.
//Other lattices sharing the species table are not affected.
func (L *Lattice) SetSpeciesProperties(symbol string, mass, covrad float64, rgb [3]float64) error {
	t, err := L.species.WithProperties(symbol, mass, covrad, rgb)
	if err != nil {
		return Decorate(err, "Lattice.SetSpeciesProperties")
	}
	L.species = t
	return nil
}

//AtomPos returns the position of the i-th atom.
func (L *Lattice) AtomPos(i int) [3]float64 {
	return [3]float64{L.Pos[3*i], L.Pos[3*i+1], L.Pos[3*i+2]}
}

//SetAtomPos sets the position of the i-th atom.
func (L *Lattice) SetAtomPos(i int, p [3]float64) {
	copy(L.Pos[3*i:3*i+3], p[:])
}

//AddAtom appends an atom of species symbol, creating the species if needed.
//If id is negative, the atom gets the ID following the largest one in the lattice.
//The scalars and vectors maps give the values of the lattice's fields for the new atom.
//A field of the lattice with no value in them can't be kept consistent, so it is
//dropped from the lattice, and a warning is logged. Values for fields the lattice
//doesn't have are ignored, unless the lattice is empty, in which case the fields are created.
func (L *Lattice) AddAtom(symbol string, pos [3]float64, charge float64, id int, scalars map[string]float64, vectors map[string][3]float64) int {
	if L.Scalars == nil {
		L.Scalars = make(map[string][]float64)
	}
	if L.Vectors == nil {
		L.Vectors = make(map[string][][3]float64)
	}
	sp := L.species.Index(symbol)
	if sp < 0 {
		L.species, sp = L.species.With(symbol)
		L.specieCount = append(L.specieCount, 0)
	}
	if id < 0 {
		id = L.maxID + 1
	}
	if id > L.maxID {
		L.maxID = id
	}
	if L.NAtoms == 0 {
		for k := range scalars {
			if _, ok := L.Scalars[k]; !ok {
				L.Scalars[k] = nil
			}
		}
		for k := range vectors {
			if _, ok := L.Vectors[k]; !ok {
				L.Vectors[k] = nil
			}
		}
	}
	for name, field := range L.Scalars {
		v, ok := scalars[name]
		if !ok {
			logger.Warn("dropping scalar field with no value for new atom", slog.String("field", name), slog.Int("atom", L.NAtoms))
			delete(L.Scalars, name)
			continue
		}
		L.Scalars[name] = append(field, v)
	}
	for name, field := range L.Vectors {
		v, ok := vectors[name]
		if !ok {
			logger.Warn("dropping vector field with no value for new atom", slog.String("field", name), slog.Int("atom", L.NAtoms))
			delete(L.Vectors, name)
			continue
		}
		L.Vectors[name] = append(field, v)
	}
	L.Pos = append(L.Pos, pos[0], pos[1], pos[2])
	L.Specie = append(L.Specie, sp)
	L.Charge = append(L.Charge, charge)
	L.AtomID = append(L.AtomID, id)
	L.specieCount[sp]++
	L.NAtoms++
	return L.NAtoms - 1
}

//RemoveAtom removes the i-th atom. If it was the last atom of its species,
//the species is removed too, and the species indexes of the remaining atoms updated.
func (L *Lattice) RemoveAtom(i int) {
	L.RemoveAtoms([]int{i})
}

//RemoveAtoms removes all the atoms with the given indexes in a single pass.
//The order of the remaining atoms is kept. It panics if an index is out of range.
func (L *Lattice) RemoveAtoms(indexes []int) {
	if len(indexes) == 0 {
		return
	}
	remove := make([]bool, L.NAtoms)
	for _, i := range indexes {
		if i < 0 || i >= L.NAtoms {
			panic(fmt.Sprintf("atoman: atom index %d out of range [0,%d)", i, L.NAtoms))
		}
		remove[i] = true
	}
	n := 0
	for i := 0; i < L.NAtoms; i++ {
		if remove[i] {
			L.specieCount[L.Specie[i]]--
			continue
		}
		if n != i {
			copy(L.Pos[3*n:3*n+3], L.Pos[3*i:3*i+3])
			L.Specie[n] = L.Specie[i]
			L.Charge[n] = L.Charge[i]
			L.AtomID[n] = L.AtomID[i]
			for _, f := range L.Scalars {
				f[n] = f[i]
			}
			for _, f := range L.Vectors {
				f[n] = f[i]
			}
		}
		n++
	}
	L.Pos = L.Pos[:3*n]
	L.Specie = L.Specie[:n]
	L.Charge = L.Charge[:n]
	L.AtomID = L.AtomID[:n]
	for k, f := range L.Scalars {
		L.Scalars[k] = f[:n]
	}
	for k, f := range L.Vectors {
		L.Vectors[k] = f[:n]
	}
	L.NAtoms = n
	L.dropEmptySpecies()
}

func (L *Lattice) dropEmptySpecies() {
	var empty []int
	for i, c := range L.specieCount {
		if c == 0 {
			empty = append(empty, i)
		}
	}
	if len(empty) == 0 {
		return
	}
	var remap []int
	L.species, remap = L.species.Without(empty...)
	counts := make([]int, L.species.Len())
	for old, nw := range remap {
		if nw >= 0 {
			counts[nw] = L.specieCount[old]
		}
	}
	L.specieCount = counts
	for i, s := range L.Specie {
		L.Specie[i] = remap[s]
	}
}

//WrapAtoms puts all atoms back into the cell along the periodic axes.
func (L *Lattice) WrapAtoms() {
	for i := 0; i < L.NAtoms; i++ {
		L.SetAtomPos(i, L.Cell.Wrap(L.AtomPos(i)))
	}
}

//Translate adds v to the position of every atom.
func (L *Lattice) Translate(v [3]float64) {
	for i := 0; i < L.NAtoms; i++ {
		L.Pos[3*i] += v[0]
		L.Pos[3*i+1] += v[1]
		L.Pos[3*i+2] += v[2]
	}
}

//Separation returns the distance between atoms i and j, using the minimum
//image convention along periodic axes if usePBC is true.
func (L *Lattice) Separation(i, j int, usePBC bool) (float64, error) {
	if i < 0 || j < 0 || i >= L.NAtoms || j >= L.NAtoms {
		return -1, NewError(fmt.Sprintf("atom index out of range (%d, %d) with %d atoms", i, j, L.NAtoms), "Lattice.Separation", false)
	}
	if usePBC {
		if err := L.Cell.Validate(); err != nil {
			return -1, Decorate(err, "Lattice.Separation")
		}
	}
	return L.Cell.Separation(L.AtomPos(i), L.AtomPos(j), usePBC), nil
}

//Coords returns a matrix view of the positions. Changes to the matrix are
//changes to the lattice. It returns nil for an empty lattice.
func (L *Lattice) Coords() *v3.Matrix {
	if L.NAtoms == 0 {
		return nil
	}
	c, err := v3.NewMatrix(L.Pos[:3*L.NAtoms])
	if err != nil {
		panic(err.Error())
	}
	return c
}

//MinPos returns the minimum coordinate along each axis.
func (L *Lattice) MinPos() [3]float64 {
	min, _ := L.Coords().Bounds()
	return min
}

//MaxPos returns the maximum coordinate along each axis.
func (L *Lattice) MaxPos() [3]float64 {
	_, max := L.Coords().Bounds()
	return max
}

//Volume returns the volume of the cell.
func (L *Lattice) Volume() float64 {
	return L.Cell.Volume()
}

//Density returns the number of atoms per unit volume, or 0 if the cell has no volume.
func (L *Lattice) Density() float64 {
	v := L.Volume()
	if v <= 0 {
		return 0
	}
	return float64(L.NAtoms) / v
}

//VisibleSpeciesCount returns the number of atoms of each species among the given atoms.
func (L *Lattice) VisibleSpeciesCount(visible []int) []int {
	ret := make([]int, L.NSpecies())
	for _, i := range visible {
		ret[L.Specie[i]]++
	}
	return ret
}

//Clone returns a deep copy of L. The species table is shared.
func (L *Lattice) Clone() *Lattice {
	C := &Lattice{
		NAtoms:      L.NAtoms,
		Pos:         append([]float64(nil), L.Pos...),
		Specie:      append([]int(nil), L.Specie...),
		Charge:      append([]float64(nil), L.Charge...),
		AtomID:      append([]int(nil), L.AtomID...),
		Scalars:     make(map[string][]float64, len(L.Scalars)),
		Vectors:     make(map[string][][3]float64, len(L.Vectors)),
		Cell:        L.Cell,
		species:     L.species,
		specieCount: append([]int(nil), L.specieCount...),
		maxID:       L.maxID,
	}
	for k, v := range L.Scalars {
		C.Scalars[k] = append([]float64(nil), v...)
	}
	for k, v := range L.Vectors {
		C.Vectors[k] = append([][3]float64(nil), v...)
	}
	return C
}

//Validate checks the consistency of the lattice: the lengths of all per-atom data,
//the species indexes and counts, and that positions are finite.
func (L *Lattice) Validate() error {
	n := L.NAtoms
	if len(L.Pos) != 3*n || len(L.Specie) != n || len(L.Charge) != n || len(L.AtomID) != n {
		return NewError(fmt.Sprintf("inconsistent per-atom arrays for %d atoms", n), "Lattice.Validate", true)
	}
	for k, v := range L.Scalars {
		if len(v) != n {
			return NewError(fmt.Sprintf("scalar field %q has %d values for %d atoms", k, len(v), n), "Lattice.Validate", true)
		}
	}
	for k, v := range L.Vectors {
		if len(v) != n {
			return NewError(fmt.Sprintf("vector field %q has %d values for %d atoms", k, len(v), n), "Lattice.Validate", true)
		}
	}
	if len(L.specieCount) != L.species.Len() {
		return NewError("species counts and species table disagree", "Lattice.Validate", true)
	}
	counts := make([]int, L.species.Len())
	for i, s := range L.Specie {
		if s < 0 || s >= len(counts) {
			return NewError(fmt.Sprintf("atom %d has invalid species index %d", i, s), "Lattice.Validate", true)
		}
		counts[s]++
	}
	for i := range counts {
		if counts[i] != L.specieCount[i] {
			return NewError(fmt.Sprintf("species %s count is %d, found %d atoms", L.species.species[i].Symbol, L.specieCount[i], counts[i]), "Lattice.Validate", true)
		}
	}
	for _, v := range L.Pos {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewError("non-finite atom position", "Lattice.Validate", true)
		}
	}
	return nil
}

//AtomsWithIDs returns the indexes of the atoms with the given IDs, sorted.
func (L *Lattice) AtomsWithIDs(ids []int) []int {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var ret []int
	for i, id := range L.AtomID {
		if want[id] {
			ret = append(ret, i)
		}
	}
	sort.Ints(ret)
	return ret
}
