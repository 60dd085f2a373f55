/*
 * acna.go, part of atoman.
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

//Package acna identifies the local crystal structure around atoms with the adaptive
//common neighbour analysis (Stukowski, Modelling Simul. Mater. Sci. Eng. 20 (2012) 045021).
package acna

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/spatial"
)

//Structure is a local crystal structure type.
type Structure int

const (
	Disordered Structure = iota
	FCC
	HCP
	BCC
	ICO
	NumStructures
)

var names = [...]string{"Disordered", "FCC", "HCP", "BCC", "Icosahedral"}

func (s Structure) String() string {
	if s >= 0 && s < NumStructures {
		return names[s]
	}
	return fmt.Sprintf("Structure(%d)", int(s))
}

//ParseStructure returns the structure with the given name, as returned by String.
func ParseStructure(name string) (Structure, error) {
	for i, v := range names {
		if v == name {
			return Structure(i), nil
		}
	}
	return Disordered, atoman.NewError(fmt.Sprintf("unknown structure %q", name), "acna.ParseStructure", false)
}

//Options for the analysis.
type Options struct {
	maxBond float64
	pbc     bool
	cpus    int
}

//DefaultOptions returns the default options: neighbours searched up to 5 A, PBC, one goroutine per CPU.
func DefaultOptions() *Options {
	return &Options{maxBond: 5, pbc: true, cpus: runtime.NumCPU()}
}

//MaxBondDistance returns the radius within which the nearest neighbours are searched,
//and sets it, if a positive value is given.
func (O *Options) MaxBondDistance(d ...float64) float64 {
	ret := O.maxBond
	if len(d) > 0 && d[0] > 0 {
		O.maxBond = d[0]
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

//Result contains the structure of each analysed atom and the number of atoms of each structure.
type Result struct {
	Structures []Structure
	Counts     [NumStructures]int
}

//Analyze classifies the atoms in subset (all if nil), with positions in pos. All the
//atoms in the flat pos slice are considered as neighbours.
func Analyze(pos []float64, subset []int, cell atoman.Cell, options ...*Options) (*Result, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if lim := cell.MaxRadius(o.pbc); o.maxBond > lim {
		return nil, atoman.NewInvalidSettingsError("ACNA", "maxBondDistance", "acna.Analyze", "must not exceed %v, got %v", lim, o.maxBond)
	}
	if subset == nil {
		subset = make([]int, len(pos)/3)
		for i := range subset {
			subset[i] = i
		}
	}
	idx, err := spatial.New(pos, nil, cell, o.maxBond)
	if err != nil {
		return nil, atoman.Decorate(err, "acna.Analyze")
	}
	R := &Result{Structures: make([]Structure, len(subset))}
	var g errgroup.Group
	g.SetLimit(o.cpus)
	chunk := len(subset)/(4*o.cpus) + 1
	for start := 0; start < len(subset); start += chunk {
		start := start
		end := min(start+chunk, len(subset))
		g.Go(func() error {
			for k := start; k < end; k++ {
				s, err := classify(pos, subset[k], cell, idx, o)
				if err != nil {
					return err
				}
				R.Structures[k] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, atoman.Decorate(err, "acna.Analyze")
	}
	for _, s := range R.Structures {
		R.Counts[s]++
	}
	slog.Debug("ACNA done", slog.Any("counts", R.Counts))
	return R, nil
}

//neighbours returns the vectors from atom a to its nearest neighbours, closest first.
func neighbours(pos []float64, a int, cell atoman.Cell, idx *spatial.Index, o *Options) ([]r3.Vec, error) {
	p := [3]float64{pos[3*a], pos[3*a+1], pos[3*a+2]}
	nb, err := idx.WithinDist(p, o.maxBond, o.pbc)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(nb, func(i, j int) bool { return nb[i].Dist < nb[j].Dist })
	ret := make([]r3.Vec, 0, len(nb))
	for _, n := range nb {
		if n.Index == a {
			continue
		}
		d := cell.Delta(p, [3]float64{pos[3*n.Index], pos[3*n.Index+1], pos[3*n.Index+2]}, o.pbc)
		ret = append(ret, r3.Vec{X: d[0], Y: d[1], Z: d[2]})
	}
	return ret, nil
}

func classify(pos []float64, a int, cell atoman.Cell, idx *spatial.Index, o *Options) (Structure, error) {
	nb, err := neighbours(pos, a, cell, idx, o)
	if err != nil {
		return Disordered, err
	}
	if len(nb) < 12 {
		return Disordered, nil
	}
	//12 neighbour structures
	mean := 0.0
	for _, v := range nb[:12] {
		mean += r3.Norm(v)
	}
	mean /= 12
	rc := (1 + math.Sqrt2) / 2 * mean
	var n421, n422, n555 int
	for _, sig := range signatures(nb[:12], rc) {
		switch sig {
		case [3]int{4, 2, 1}:
			n421++
		case [3]int{4, 2, 2}:
			n422++
		case [3]int{5, 5, 5}:
			n555++
		}
	}
	switch {
	case n421 == 12:
		return FCC, nil
	case n421 == 6 && n422 == 6:
		return HCP, nil
	case n555 == 12:
		return ICO, nil
	}
	if len(nb) < 14 {
		return Disordered, nil
	}
	var m1, m2 float64
	for _, v := range nb[:8] {
		m1 += r3.Norm(v)
	}
	for _, v := range nb[8:14] {
		m2 += r3.Norm(v)
	}
	rc = (1 + math.Sqrt2) / 2 * (2/math.Sqrt(3)*m1/8 + m2/6) / 2
	var n444, n666 int
	for _, sig := range signatures(nb[:14], rc) {
		switch sig {
		case [3]int{4, 4, 4}:
			n444++
		case [3]int{6, 6, 6}:
			n666++
		}
	}
	if n444 == 6 && n666 == 8 {
		return BCC, nil
	}
	return Disordered, nil
}

//signatures returns, for each neighbour, the number of common neighbours, the number of bonds
//between them and the number of bonds in the longest chain, with bonds shorter than rc.
func signatures(nb []r3.Vec, rc float64) [][3]int {
	n := len(nb)
	rc2 := rc * rc
	bonded := make([][]bool, n)
	for i := range bonded {
		bonded[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if r3.Norm2(r3.Sub(nb[i], nb[j])) < rc2 {
				bonded[i][j], bonded[j][i] = true, true
			}
		}
	}
	ret := make([][3]int, n)
	for j := 0; j < n; j++ {
		var common []int
		for k := 0; k < n; k++ {
			if k != j && bonded[j][k] {
				common = append(common, k)
			}
		}
		var bonds [][2]int
		for x := 0; x < len(common); x++ {
			for y := x + 1; y < len(common); y++ {
				if bonded[common[x]][common[y]] {
					bonds = append(bonds, [2]int{x, y})
				}
			}
		}
		ret[j] = [3]int{len(common), len(bonds), longestChain(len(common), bonds)}
	}
	return ret
}

//longestChain returns the number of bonds in the largest connected group of bonds.
func longestChain(n int, bonds [][2]int) int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, b := range bonds {
		parent[find(b[0])] = find(b[1])
	}
	count := make(map[int]int)
	best := 0
	for _, b := range bonds {
		r := find(b[0])
		count[r]++
		if count[r] > best {
			best = count[r]
		}
	}
	return best
}
