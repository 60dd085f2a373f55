/*
 * atomicdata.go, part of atoman.
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

import "strings"

//elementData contains the per-element defaults used when a new species
//is added to a lattice.
type elementData struct {
	number int
	mass   float64
	covrad float64
	rgb    [3]float64
}

//A map for assigning element properties.
//Covalent radii from Cordero et al., 2008 (DOI:10.1039/B801115J), masses in amu,
//colours are the usual Jmol ones.
var elements = map[string]elementData{
	"H":  {1, 1.008, 0.31, [3]float64{1.00, 1.00, 1.00}},
	"He": {2, 4.003, 0.28, [3]float64{0.85, 1.00, 1.00}},
	"Li": {3, 6.94, 1.28, [3]float64{0.80, 0.50, 1.00}},
	"Be": {4, 9.012, 0.96, [3]float64{0.76, 1.00, 0.00}},
	"B":  {5, 10.81, 0.84, [3]float64{1.00, 0.71, 0.71}},
	"C":  {6, 12.011, 0.76, [3]float64{0.56, 0.56, 0.56}}, //the sp3 radius
	"N":  {7, 14.007, 0.71, [3]float64{0.19, 0.31, 0.97}},
	"O":  {8, 15.999, 0.66, [3]float64{1.00, 0.05, 0.05}},
	"F":  {9, 18.998, 0.57, [3]float64{0.56, 0.88, 0.31}},
	"Ne": {10, 20.180, 0.58, [3]float64{0.70, 0.89, 0.96}},
	"Na": {11, 22.990, 1.66, [3]float64{0.67, 0.36, 0.95}},
	"Mg": {12, 24.305, 1.41, [3]float64{0.54, 1.00, 0.00}},
	"Al": {13, 26.982, 1.21, [3]float64{0.75, 0.65, 0.65}},
	"Si": {14, 28.085, 1.11, [3]float64{0.94, 0.78, 0.63}},
	"P":  {15, 30.974, 1.07, [3]float64{1.00, 0.50, 0.00}},
	"S":  {16, 32.06, 1.05, [3]float64{1.00, 1.00, 0.19}},
	"Cl": {17, 35.45, 1.02, [3]float64{0.12, 0.94, 0.12}},
	"Ar": {18, 39.948, 1.06, [3]float64{0.50, 0.82, 0.89}},
	"K":  {19, 39.098, 2.03, [3]float64{0.56, 0.25, 0.83}},
	"Ca": {20, 40.078, 1.76, [3]float64{0.24, 1.00, 0.00}},
	"Ti": {22, 47.867, 1.60, [3]float64{0.75, 0.76, 0.78}},
	"V":  {23, 50.942, 1.53, [3]float64{0.65, 0.65, 0.67}},
	"Cr": {24, 51.996, 1.39, [3]float64{0.54, 0.60, 0.78}},
	"Mn": {25, 54.938, 1.61, [3]float64{0.61, 0.48, 0.78}}, //hs
	"Fe": {26, 55.845, 1.52, [3]float64{0.88, 0.40, 0.20}}, //hs
	"Co": {27, 58.933, 1.50, [3]float64{0.94, 0.56, 0.63}}, //hs
	"Ni": {28, 58.693, 1.24, [3]float64{0.31, 0.82, 0.31}},
	"Cu": {29, 63.546, 1.32, [3]float64{0.78, 0.50, 0.20}},
	"Zn": {30, 65.38, 1.22, [3]float64{0.49, 0.50, 0.69}},
	"Ga": {31, 69.723, 1.22, [3]float64{0.76, 0.56, 0.56}},
	"Ge": {32, 72.630, 1.20, [3]float64{0.40, 0.56, 0.56}},
	"Se": {34, 78.971, 1.20, [3]float64{1.00, 0.63, 0.00}},
	"Br": {35, 79.904, 1.20, [3]float64{0.65, 0.16, 0.16}},
	"Kr": {36, 83.798, 1.16, [3]float64{0.36, 0.72, 0.82}},
	"Zr": {40, 91.224, 1.75, [3]float64{0.58, 0.88, 0.88}},
	"Nb": {41, 92.906, 1.64, [3]float64{0.45, 0.76, 0.79}},
	"Mo": {42, 95.95, 1.54, [3]float64{0.33, 0.71, 0.71}},
	"Ag": {47, 107.868, 1.45, [3]float64{0.75, 0.75, 0.75}},
	"Sn": {50, 118.710, 1.39, [3]float64{0.40, 0.50, 0.50}},
	"I":  {53, 126.904, 1.39, [3]float64{0.58, 0.00, 0.58}},
	"Xe": {54, 131.293, 1.40, [3]float64{0.26, 0.62, 0.69}},
	"Hf": {72, 178.49, 1.75, [3]float64{0.30, 0.76, 1.00}},
	"Ta": {73, 180.948, 1.70, [3]float64{0.30, 0.65, 1.00}},
	"W":  {74, 183.84, 1.62, [3]float64{0.13, 0.58, 0.84}},
	"Pt": {78, 195.084, 1.36, [3]float64{0.82, 0.82, 0.88}},
	"Au": {79, 196.967, 1.36, [3]float64{1.00, 0.82, 0.14}},
	"Pb": {82, 207.2, 1.46, [3]float64{0.34, 0.35, 0.38}},
	"U":  {92, 238.029, 1.96, [3]float64{0.00, 0.56, 1.00}},
	"Pu": {94, 244.0, 1.87, [3]float64{0.00, 0.42, 1.00}},
}

//unknown elements get this. Simulation codes often use made up symbols.
var unknownElement = elementData{number: 0, mass: 1.0, covrad: 1.0, rgb: [3]float64{1.0, 0.08, 0.58}}

//lookupElement returns the data for symbol, falling back to a case-insensitive
//search and finally to default values.
func lookupElement(symbol string) (elementData, bool) {
	if e, ok := elements[symbol]; ok {
		return e, true
	}
	for k, e := range elements {
		if strings.EqualFold(k, symbol) {
			return e, true
		}
	}
	return unknownElement, false
}

//CovalentRadius returns the covalent radius for the element with the given symbol
//and true, or a default value and false if the element is unknown.
func CovalentRadius(symbol string) (float64, bool) {
	e, ok := lookupElement(symbol)
	return e.covrad, ok
}
