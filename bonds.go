/*
 * bonds.go, part of atoman.
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

import "math"

//constants from DOI:10.1186/1758-2946-3-33
const (
	tooclose = 0.63
	bondtol  = 0.45
)

//Bond is a bond between atoms I and J (I < J) of a lattice.
type Bond struct {
	I, J int
	Dist float64
}

//Cross returns the atom at the other end of the bond from i.
func (B Bond) Cross(i int) int {
	if i == B.I {
		return B.J
	}
	if i == B.J {
		return B.I
	}
	panic("Trying to cross a bond: The origin atom given is not present in the bond!")
}

//BondTable gives, for pairs of species symbols, the range of distances within which two atoms
//are bonded. Pairs not in the table use the covalent radii criterion of BondRange.
//A nil BondTable can be used, and always falls back to the covalent radii.
type BondTable map[[2]string][2]float64

func bondKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

//Set sets the bond range for the pair of species a, b. The order of the species doesn't matter.
func (B BondTable) Set(a, b string, min, max float64) {
	B[bondKey(a, b)] = [2]float64{min, max}
}

//Range returns the minimum and maximum distances for a bond between species a and b.
func (B BondTable) Range(a, b string) (float64, float64) {
	if r, ok := B[bondKey(a, b)]; ok {
		return r[0], r[1]
	}
	return BondRange(a, b)
}

//Bonded returns true if two atoms of species a and b, at a distance d, are bonded.
func (B BondTable) Bonded(a, b string, d float64) bool {
	min, max := B.Range(a, b)
	return d > min && d < max
}

//MaxDistance returns the longest bond possible between any pair of the given species.
func (B BondTable) MaxDistance(symbols []string) float64 {
	var ret float64
	for i, a := range symbols {
		for _, b := range symbols[i:] {
			_, max := B.Range(a, b)
			ret = math.Max(ret, max)
		}
	}
	return ret
}

//BondRange returns the range of distances at which atoms of species a and b are considered
//bonded using a simple distance criterium, similar to that described in DOI:10.1186/1758-2946-3-33
func BondRange(a, b string) (float64, float64) {
	cov1, _ := CovalentRadius(a)
	cov2, _ := CovalentRadius(b)
	return tooclose, cov1 + cov2 + bondtol
}
