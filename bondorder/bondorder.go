/*
 * bondorder.go, part of atoman.
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

//Package bondorder computes the Steinhardt bond orientational order parameters Q4 and Q6,
//optionally averaged over the first neighbour shell (Lechner and Dellago, J. Chem. Phys. 129, 114707 (2008)).
package bondorder

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/spatial"
)

//Options for the calculation.
type Options struct {
	maxBond  float64
	averaged bool
	pbc      bool
	cpus     int
}

//DefaultOptions returns the default options: neighbours within 4 A, no averaging, PBC.
func DefaultOptions() *Options {
	return &Options{maxBond: 4, pbc: true, cpus: runtime.NumCPU()}
}

//MaxBondDistance returns the neighbour cutoff and sets it, if a positive value is given.
func (O *Options) MaxBondDistance(d ...float64) float64 {
	ret := O.maxBond
	if len(d) > 0 && d[0] > 0 {
		O.maxBond = d[0]
	}
	return ret
}

//Averaged returns whether the averaged parameters are computed, and sets the value to the one given, if any.
func (O *Options) Averaged(a ...bool) bool {
	ret := O.averaged
	if len(a) > 0 {
		O.averaged = a[0]
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

//qlm holds the real and imaginary parts of q_lm for m = 0..l, for l = 4 and 6.
type qlm struct {
	re4, im4 [5]float64
	re6, im6 [7]float64
	n        int
}

//Result contains Q4 and Q6 for each analysed atom.
type Result struct {
	Q4 []float64
	Q6 []float64
}

//Compute returns the bond order parameters of the atoms in subset (all if nil), with positions in pos.
//Neighbours are taken among all the atoms. When averaging, the parameters of the neighbours of every
//analysed atom are needed, so they are computed too.
func Compute(pos []float64, subset []int, cell atoman.Cell, options ...*Options) (*Result, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if lim := cell.MaxRadius(o.pbc); o.maxBond > lim {
		return nil, atoman.NewInvalidSettingsError("Bond order", "maxBondDistance", "bondorder.Compute", "must not exceed %v, got %v", lim, o.maxBond)
	}
	natoms := len(pos) / 3
	if subset == nil {
		subset = make([]int, natoms)
		for i := range subset {
			subset[i] = i
		}
	}
	idx, err := spatial.New(pos, nil, cell, o.maxBond)
	if err != nil {
		return nil, atoman.Decorate(err, "bondorder.Compute")
	}
	//atoms for which q_lm is needed
	need := subset
	nbs := make(map[int][]int)
	if o.averaged {
		mark := make([]bool, natoms)
		need = nil
		for _, a := range subset {
			nb, err := neighbourList(pos, a, idx, o)
			if err != nil {
				return nil, atoman.Decorate(err, "bondorder.Compute")
			}
			nbs[a] = nb
			for _, b := range append(nb, a) {
				if !mark[b] {
					mark[b] = true
					need = append(need, b)
				}
			}
		}
	}
	qs := make([]qlm, len(need))
	var g errgroup.Group
	g.SetLimit(o.cpus)
	chunk := len(need)/(4*o.cpus) + 1
	for start := 0; start < len(need); start += chunk {
		start := start
		end := min(start+chunk, len(need))
		g.Go(func() error {
			for k := start; k < end; k++ {
				q, err := atomQlm(pos, need[k], cell, idx, o)
				if err != nil {
					return err
				}
				qs[k] = q
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, atoman.Decorate(err, "bondorder.Compute")
	}
	where := make(map[int]int, len(need))
	for k, a := range need {
		where[a] = k
	}
	R := &Result{Q4: make([]float64, len(subset)), Q6: make([]float64, len(subset))}
	for k, a := range subset {
		q := qs[where[a]]
		if o.averaged {
			var avg qlm
			members := append(nbs[a], a)
			for _, b := range members {
				avg.add(&qs[where[b]])
			}
			avg.scale(1 / float64(len(members)))
			q = avg
		}
		R.Q4[k], R.Q6[k] = q.q()
	}
	return R, nil
}

func neighbourList(pos []float64, a int, idx *spatial.Index, o *Options) ([]int, error) {
	p := [3]float64{pos[3*a], pos[3*a+1], pos[3*a+2]}
	nb, err := idx.Within(p, o.maxBond, o.pbc)
	if err != nil {
		return nil, err
	}
	ret := nb[:0]
	for _, b := range nb {
		if b != a {
			ret = append(ret, b)
		}
	}
	return ret, nil
}

func atomQlm(pos []float64, a int, cell atoman.Cell, idx *spatial.Index, o *Options) (qlm, error) {
	var q qlm
	nb, err := neighbourList(pos, a, idx, o)
	if err != nil {
		return q, err
	}
	p := [3]float64{pos[3*a], pos[3*a+1], pos[3*a+2]}
	for _, b := range nb {
		d := cell.Delta(p, [3]float64{pos[3*b], pos[3*b+1], pos[3*b+2]}, o.pbc)
		v := r3.Vec{X: d[0], Y: d[1], Z: d[2]}
		r := r3.Norm(v)
		if r == 0 {
			continue
		}
		cost := v.Z / r
		phi := math.Atan2(v.Y, v.X)
		for m := 0; m <= 4; m++ {
			y := ylmNorm(4, m) * legendre(4, m, cost)
			q.re4[m] += y * math.Cos(float64(m)*phi)
			q.im4[m] += y * math.Sin(float64(m)*phi)
		}
		for m := 0; m <= 6; m++ {
			y := ylmNorm(6, m) * legendre(6, m, cost)
			q.re6[m] += y * math.Cos(float64(m)*phi)
			q.im6[m] += y * math.Sin(float64(m)*phi)
		}
		q.n++
	}
	if q.n > 0 {
		q.scale(1 / float64(q.n))
	}
	return q, nil
}

func (q *qlm) add(o *qlm) {
	for m := range q.re4 {
		q.re4[m] += o.re4[m]
		q.im4[m] += o.im4[m]
	}
	for m := range q.re6 {
		q.re6[m] += o.re6[m]
		q.im6[m] += o.im6[m]
	}
}

func (q *qlm) scale(f float64) {
	for m := range q.re4 {
		q.re4[m] *= f
		q.im4[m] *= f
	}
	for m := range q.re6 {
		q.re6[m] *= f
		q.im6[m] *= f
	}
}

//q returns Q4 and Q6. |q_l,-m| = |q_lm|, so negative m are counted twice from positive ones.
func (q *qlm) q() (float64, float64) {
	sum := func(re, im []float64) float64 {
		s := re[0]*re[0] + im[0]*im[0]
		for m := 1; m < len(re); m++ {
			s += 2 * (re[m]*re[m] + im[m]*im[m])
		}
		return s
	}
	l4 := math.Sqrt(4 * math.Pi / 9 * sum(q.re4[:], q.im4[:]))
	l6 := math.Sqrt(4 * math.Pi / 13 * sum(q.re6[:], q.im6[:]))
	return l4, l6
}

//ylmNorm returns the normalisation of the spherical harmonic Y_lm.
func ylmNorm(l, m int) float64 {
	f := 1.0
	for k := l - m + 1; k <= l+m; k++ {
		f *= float64(k)
	}
	return math.Sqrt(float64(2*l+1) / (4 * math.Pi) / f)
}

//legendre returns the associated Legendre polynomial P_l^m(x), for m >= 0.
func legendre(l, m int, x float64) float64 {
	pmm := 1.0
	if m > 0 {
		s := math.Sqrt((1 - x) * (1 + x))
		fact := 1.0
		for i := 1; i <= m; i++ {
			pmm *= -fact * s
			fact += 2
		}
	}
	if l == m {
		return pmm
	}
	pmmp1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pmmp1
	}
	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (x*float64(2*ll-1)*pmmp1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm, pmmp1 = pmmp1, pll
	}
	return pll
}
