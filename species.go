/*
 * species.go, part of atoman.
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
	"strings"
)

//SpecieInfo contains the properties of one atomic species.
//Count is only meaningful when the SpecieInfo is obtained from a Lattice.
type SpecieInfo struct {
	Symbol    string
	Mass      float64
	CovRadius float64
	Number    int //atomic number, 0 if unknown
	RGB       [3]float64
	Count     int
}

//SpeciesTable is an ordered list of species. A table is never modified
//once it is shared: all the "mutating" methods return a new table, so
//lattices cloned from each other can point to the same one.
type SpeciesTable struct {
	species []SpecieInfo
	index   map[string]int
}

//NewSpeciesTable returns a table containing the given symbols, in order,
//with the default element properties. Repeated symbols are ignored.
func NewSpeciesTable(symbols ...string) *SpeciesTable {
	T := &SpeciesTable{index: make(map[string]int, len(symbols))}
	for _, s := range symbols {
		if _, ok := T.index[s]; ok {
			continue
		}
		T.species = append(T.species, defaultSpecie(s))
		T.index[s] = len(T.species) - 1
	}
	return T
}

func defaultSpecie(symbol string) SpecieInfo {
	e, _ := lookupElement(symbol)
	return SpecieInfo{Symbol: symbol, Mass: e.mass, CovRadius: e.covrad, Number: e.number, RGB: e.rgb}
}

//Len returns the number of species in the table.
func (T *SpeciesTable) Len() int {
	if T == nil {
		return 0
	}
	return len(T.species)
}

//Specie returns the properties of the i-th species. It panics if i is out of range.
func (T *SpeciesTable) Specie(i int) SpecieInfo {
	return T.species[i]
}

//Index returns the index of the species with the given symbol, or -1.
func (T *SpeciesTable) Index(symbol string) int {
	if T == nil {
		return -1
	}
	if i, ok := T.index[symbol]; ok {
		return i
	}
	return -1
}

//Symbols returns the symbols in the table, in order.
func (T *SpeciesTable) Symbols() []string {
	ret := make([]string, T.Len())
	for i := range ret {
		ret[i] = T.species[i].Symbol
	}
	return ret
}

func (T *SpeciesTable) copy() *SpeciesTable {
	N := &SpeciesTable{species: make([]SpecieInfo, T.Len()), index: make(map[string]int, T.Len()+1)}
	for i := 0; i < T.Len(); i++ {
		N.species[i] = T.species[i]
		N.index[T.species[i].Symbol] = i
	}
	return N
}

//With returns a table with symbol appended, and its index. If the symbol
//is already present, T itself is returned.
func (T *SpeciesTable) With(symbol string) (*SpeciesTable, int) {
	if i := T.Index(symbol); i >= 0 {
		return T, i
	}
	N := T.copy()
	N.species = append(N.species, defaultSpecie(symbol))
	N.index[symbol] = len(N.species) - 1
	return N, len(N.species) - 1
}

//Without returns a table where the species with the given indexes are
//removed, and a slice mapping old indexes to the new ones (-1 for removed species).
func (T *SpeciesTable) Without(indexes ...int) (*SpeciesTable, []int) {
	remove := make([]bool, T.Len())
	for _, v := range indexes {
		remove[v] = true
	}
	remap := make([]int, T.Len())
	N := &SpeciesTable{index: make(map[string]int, T.Len())}
	for i, s := range T.species {
		if remove[i] {
			remap[i] = -1
			continue
		}
		N.species = append(N.species, s)
		remap[i] = len(N.species) - 1
		N.index[s.Symbol] = remap[i]
	}
	return N, remap
}

//WithProperties returns a table where the species symbol has the given mass,
//covalent radius and colour. If the symbol is not in the table, an error is returned.
func (T *SpeciesTable) WithProperties(symbol string, mass, covrad float64, rgb [3]float64) (*SpeciesTable, error) {
	i := T.Index(symbol)
	if i < 0 {
		return nil, NewError(fmt.Sprintf("species %q not in table", symbol), "SpeciesTable.WithProperties", false)
	}
	N := T.copy()
	N.species[i].Mass = mass
	N.species[i].CovRadius = covrad
	N.species[i].RGB = rgb
	return N, nil
}

func (T *SpeciesTable) String() string {
	return "[" + strings.Join(T.Symbols(), " ") + "]"
}
