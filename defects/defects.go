/*
 * defects.go, part of atoman.
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

//Package defects compares an input lattice with a reference one and classifies
//point defects: vacancies, interstitials, antisites and split interstitials.
package defects

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/clusters"
	"github.com/cdjsvis/atoman/spatial"
)

//Kind is the type of a point defect.
type Kind int

const (
	Vacancy Kind = iota
	Interstitial
	Antisite
	SplitInterstitial
)

func (k Kind) String() string {
	switch k {
	case Vacancy:
		return "vacancy"
	case Interstitial:
		return "interstitial"
	case Antisite:
		return "antisite"
	case SplitInterstitial:
		return "split interstitial"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

//Record is one defect. Ref is the reference site (-1 for interstitials), Input the
//input atom (-1 for vacancies; the atom on the site, for antisites). Input2 is the
//second atom of a split interstitial, -1 otherwise.
type Record struct {
	Kind   Kind
	Ref    int
	Input  int
	Input2 int
}

//Cluster contains the defects, by type, of a defect cluster.
type Cluster struct {
	Vacancies     []int
	Interstitials []int
	Antisites     []int
}

//Len returns the number of defects in the cluster.
func (C Cluster) Len() int {
	return len(C.Vacancies) + len(C.Interstitials) + len(C.Antisites)
}

//Result contains the defects found by Classify. Vacancies and Antisites are indexes of reference
//sites, Interstitials of input atoms. OnAntisites[i] is the input atom sitting on Antisites[i].
//Splits are {vacant reference site, input atom, input atom}.
type Result struct {
	Vacancies     []int
	Interstitials []int
	Antisites     []int
	OnAntisites   []int
	Splits        [][3]int
	Clusters      []Cluster

	//Breakdowns by species. VacancyCount is indexed by reference species, InterstitialCount by
	//input species, AntisiteCount by [reference species][input species] and SplitCount by the
	//input species of the two atoms of the split interstitial.
	VacancyCount      []int
	InterstitialCount []int
	AntisiteCount     [][]int
	SplitCount        [][]int

	//Drift is the vector that was subtracted from the input positions, if drift compensation was on.
	Drift [3]float64
}

//Len returns the total number of defects, counting a split interstitial as one.
func (R *Result) Len() int {
	return len(R.Vacancies) + len(R.Interstitials) + len(R.Antisites) + len(R.Splits)
}

//Records returns all the defects as Records: vacancies, interstitials, antisites and split interstitials, in that order.
func (R *Result) Records() []Record {
	ret := make([]Record, 0, R.Len())
	for _, v := range R.Vacancies {
		ret = append(ret, Record{Kind: Vacancy, Ref: v, Input: -1, Input2: -1})
	}
	for _, v := range R.Interstitials {
		ret = append(ret, Record{Kind: Interstitial, Ref: -1, Input: v, Input2: -1})
	}
	for i, v := range R.Antisites {
		ret = append(ret, Record{Kind: Antisite, Ref: v, Input: R.OnAntisites[i], Input2: -1})
	}
	for _, v := range R.Splits {
		ret = append(ret, Record{Kind: SplitInterstitial, Ref: v[0], Input: v[1], Input2: v[2]})
	}
	return ret
}

type candidate struct {
	ref, input int
	d          float64
}

//matching is the outcome of assigning input atoms to reference sites.
type matching struct {
	refToInput []int //-1 for vacant sites
	inputToRef []int //-1 for interstitials
}

//match assigns input atoms to reference sites. Every (site, atom) pair closer than the
//vacancy radius of the site's species is a candidate; candidates are taken in order of
//distance, then reference index, then input index, skipping those whose site or atom is taken.
func match(ref, input *atoman.Lattice, o *Options) (*matching, error) {
	maxr := o.VacancyRadius
	for _, r := range o.SpeciesRadius {
		maxr = math.Max(maxr, r)
	}
	m := &matching{refToInput: make([]int, ref.NAtoms), inputToRef: make([]int, input.NAtoms)}
	for i := range m.refToInput {
		m.refToInput[i] = -1
	}
	for i := range m.inputToRef {
		m.inputToRef[i] = -1
	}
	if ref.NAtoms == 0 || input.NAtoms == 0 {
		return m, nil
	}
	idx, err := spatial.New(ref.Pos, nil, ref.Cell, maxr)
	if err != nil {
		return nil, atoman.Decorate(err, "match")
	}
	radius := make([]float64, ref.NSpecies())
	for s := range radius {
		radius[s] = o.Radius(ref.Species().Specie(s).Symbol)
	}
	var cands []candidate
	for i := 0; i < input.NAtoms; i++ {
		nb, err := idx.WithinDist(input.AtomPos(i), maxr, o.UsePBC)
		if err != nil {
			return nil, atoman.Decorate(err, "match")
		}
		for _, n := range nb {
			if n.Dist < radius[ref.Specie[n.Index]] {
				cands = append(cands, candidate{ref: n.Index, input: i, d: n.Dist})
			}
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.d != b.d {
			return a.d < b.d
		}
		if a.ref != b.ref {
			return a.ref < b.ref
		}
		return a.input < b.input
	})
	for _, c := range cands {
		if m.refToInput[c.ref] >= 0 || m.inputToRef[c.input] >= 0 {
			continue
		}
		m.refToInput[c.ref] = c.input
		m.inputToRef[c.input] = c.ref
	}
	return m, nil
}

//driftVector returns the mean minimum image displacement from the reference site to the
//input atom, over the matched pairs.
func driftVector(ref, input *atoman.Lattice, m *matching, usePBC bool) [3]float64 {
	var comps [3][]float64
	for r, i := range m.refToInput {
		if i < 0 {
			continue
		}
		d := ref.Cell.Delta(ref.AtomPos(r), input.AtomPos(i), usePBC)
		for j := 0; j < 3; j++ {
			comps[j] = append(comps[j], d[j])
		}
	}
	var drift [3]float64
	if len(comps[0]) == 0 {
		return drift
	}
	for j := 0; j < 3; j++ {
		drift[j] = stat.Mean(comps[j], nil)
	}
	return drift
}

//Classify finds the point defects of input with respect to ref. Neither lattice is modified.
func Classify(ref, input *atoman.Lattice, options ...*Options) (*Result, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if err := o.Validate(ref.Cell); err != nil {
		return nil, atoman.Decorate(err, "defects.Classify")
	}
	log := o.logger()
	R := &Result{}
	m, err := match(ref, input, o)
	if err != nil {
		return nil, atoman.Decorate(err, "defects.Classify")
	}
	if o.DriftCompensation {
		R.Drift = driftVector(ref, input, m, o.UsePBC)
		shifted := input.Clone()
		shifted.Translate([3]float64{-R.Drift[0], -R.Drift[1], -R.Drift[2]})
		log.Debug("drift compensation", slog.Any("drift", R.Drift))
		input = shifted
		if m, err = match(ref, input, o); err != nil {
			return nil, atoman.Decorate(err, "defects.Classify")
		}
	}
	var vacancies, interstitials []int
	for r, i := range m.refToInput {
		switch {
		case i < 0:
			vacancies = append(vacancies, r)
		case ref.Symbol(r) != input.Symbol(i):
			R.Antisites = append(R.Antisites, r)
			R.OnAntisites = append(R.OnAntisites, i)
		}
	}
	for i, r := range m.inputToRef {
		if r < 0 {
			interstitials = append(interstitials, i)
		}
	}
	if o.IdentifySplits && len(vacancies) > 0 && len(interstitials) > 1 {
		vacancies, interstitials, R.Splits, err = findSplits(ref, input, vacancies, interstitials, o)
		if err != nil {
			return nil, atoman.Decorate(err, "defects.Classify")
		}
	}
	if o.FindVacancies {
		R.Vacancies = exclude(vacancies, ref, o.ExcludeRef)
	}
	if o.FindInterstitials {
		R.Interstitials = exclude(interstitials, input, o.ExcludeInput)
	}
	if !o.FindSplits {
		R.Splits = nil
	}
	if !o.FindAntisites {
		R.Antisites, R.OnAntisites = nil, nil
	}
	if o.FindClusters {
		if err := R.cluster(ref, input, o); err != nil {
			return nil, atoman.Decorate(err, "defects.Classify")
		}
	}
	R.Recount(ref, input)
	log.Debug("point defects",
		slog.Int("vacancies", len(R.Vacancies)),
		slog.Int("interstitials", len(R.Interstitials)),
		slog.Int("antisites", len(R.Antisites)),
		slog.Int("splits", len(R.Splits)))
	return R, nil
}

func exclude(list []int, L *atoman.Lattice, species []string) []int {
	if len(species) == 0 {
		return list
	}
	skip := make(map[string]bool, len(species))
	for _, s := range species {
		skip[s] = true
	}
	ret := list[:0]
	for _, i := range list {
		if !skip[L.Symbol(i)] {
			ret = append(ret, i)
		}
	}
	return ret
}

//findSplits looks, for each vacancy in ascending order, for interstitials closer than the split
//distance that have not been used by a previous split. If there are exactly two, the vacancy and
//the two interstitials are replaced by a split interstitial.
func findSplits(ref, input *atoman.Lattice, vacancies, interstitials []int, o *Options) ([]int, []int, [][3]int, error) {
	dist := o.splitDistance()
	idx, err := spatial.New(input.Pos, interstitials, input.Cell, dist)
	if err != nil {
		return nil, nil, nil, atoman.Decorate(err, "findSplits")
	}
	used := make(map[int]bool)
	var splits [][3]int
	var vacs []int
	for _, v := range vacancies {
		nb, err := idx.WithinDist(ref.AtomPos(v), dist, o.UsePBC)
		if err != nil {
			return nil, nil, nil, atoman.Decorate(err, "findSplits")
		}
		var near []int
		for _, n := range nb {
			if n.Dist < dist && !used[n.Index] {
				near = append(near, n.Index)
			}
		}
		if len(near) != 2 {
			vacs = append(vacs, v)
			continue
		}
		used[near[0]] = true
		used[near[1]] = true
		splits = append(splits, [3]int{v, near[0], near[1]})
	}
	var ints []int
	for _, i := range interstitials {
		if !used[i] {
			ints = append(ints, i)
		}
	}
	return vacs, ints, splits, nil
}

//cluster groups vacancies, interstitials and antisites and drops those in clusters with the wrong size.
func (R *Result) cluster(ref, input *atoman.Lattice, o *Options) error {
	nv, ni := len(R.Vacancies), len(R.Interstitials)
	n := nv + ni + len(R.Antisites)
	pos := make([]float64, 0, 3*n)
	for _, v := range R.Vacancies {
		p := ref.AtomPos(v)
		pos = append(pos, p[:]...)
	}
	for _, v := range R.Interstitials {
		p := input.AtomPos(v)
		pos = append(pos, p[:]...)
	}
	for _, v := range R.Antisites {
		p := ref.AtomPos(v)
		pos = append(pos, p[:]...)
	}
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	cl, err := clusters.Analyze(pos, all, ref.Cell, o.ClusterRadius, o.UsePBC)
	if err != nil {
		return atoman.Decorate(err, "cluster")
	}
	max := o.MaxClusterSize
	if max < o.MinClusterSize {
		max = 0
	}
	_, kept := cl.KeepSizes(o.MinClusterSize, max)
	var vacs, ints, ants, onants []int
	R.Clusters = R.Clusters[:0]
	for _, id := range kept {
		var c Cluster
		for _, d := range cl.Clusters[id] {
			switch {
			case d < nv:
				c.Vacancies = append(c.Vacancies, R.Vacancies[d])
			case d < nv+ni:
				c.Interstitials = append(c.Interstitials, R.Interstitials[d-nv])
			default:
				c.Antisites = append(c.Antisites, R.Antisites[d-nv-ni])
			}
		}
		R.Clusters = append(R.Clusters, c)
	}
	//keep the original order of each list
	keep := make([]bool, n)
	for _, id := range kept {
		for _, d := range cl.Clusters[id] {
			keep[d] = true
		}
	}
	for d := 0; d < n; d++ {
		if !keep[d] {
			continue
		}
		switch {
		case d < nv:
			vacs = append(vacs, R.Vacancies[d])
		case d < nv+ni:
			ints = append(ints, R.Interstitials[d-nv])
		default:
			ants = append(ants, R.Antisites[d-nv-ni])
			onants = append(onants, R.OnAntisites[d-nv-ni])
		}
	}
	R.Vacancies, R.Interstitials, R.Antisites, R.OnAntisites = vacs, ints, ants, onants
	return nil
}

func square(n, m int) [][]int {
	ret := make([][]int, n)
	for i := range ret {
		ret[i] = make([]int, m)
	}
	return ret
}

//Recount recomputes the species breakdowns from the defect lists, which must refer to ref and input.
func (R *Result) Recount(ref, input *atoman.Lattice) {
	R.VacancyCount = make([]int, ref.NSpecies())
	R.InterstitialCount = make([]int, input.NSpecies())
	R.AntisiteCount = square(ref.NSpecies(), input.NSpecies())
	R.SplitCount = square(input.NSpecies(), input.NSpecies())
	for _, v := range R.Vacancies {
		R.VacancyCount[ref.Specie[v]]++
	}
	for _, v := range R.Interstitials {
		R.InterstitialCount[input.Specie[v]]++
	}
	for i, v := range R.Antisites {
		R.AntisiteCount[ref.Specie[v]][input.Specie[R.OnAntisites[i]]]++
	}
	for _, s := range R.Splits {
		R.SplitCount[input.Specie[s[1]]][input.Specie[s[2]]]++
	}
}
