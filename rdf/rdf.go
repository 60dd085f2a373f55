//Package rdf computes radial distribution functions between two selections of atoms.
package rdf

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/histo"
	"github.com/cdjsvis/atoman/spatial"
)

//Options contains the options for the RDF calculation.
type Options struct {
	start float64
	end   float64
	bins  int
	pbc   bool
	cpus  int
}

//Returns a Options with the default options.
func DefaultOptions() *Options {
	return &Options{start: 0, end: 10, bins: 100, pbc: true, cpus: runtime.NumCPU()}
}

//Returns the smallest distance in the RDF and sets it, if a non-negative value is given.
func (r *Options) Start(start ...float64) float64 {
	ret := r.start
	if len(start) > 0 && start[0] >= 0 {
		r.start = start[0]
	}
	return ret
}

//Returns the largest distance in the RDF, and sets it, if a positive value is given.
func (r *Options) End(end ...float64) float64 {
	ret := r.end
	if len(end) > 0 && end[0] > 0 {
		r.end = end[0]
	}
	return ret
}

//Returns the number of bins, and sets it, if a positive value is given.
func (r *Options) Bins(bins ...int) int {
	ret := r.bins
	if len(bins) > 0 && bins[0] > 0 {
		r.bins = bins[0]
	}
	return ret
}

//Returns whether periodic boundaries are used and sets the value to the one given, if any.
func (r *Options) PBC(pbc ...bool) bool {
	ret := r.pbc
	if len(pbc) > 0 {
		r.pbc = pbc[0]
	}
	return ret
}

//Returns the current value of the Cpus options (the number of gorutines to
//use on the concurrent calculation) and sets it, if a valid value is given
func (r *Options) Cpus(cpus ...int) int {
	ret := r.cpus
	if len(cpus) > 0 && cpus[0] > 0 {
		r.cpus = cpus[0]
	}
	return ret
}

//Result is a radial distribution function. R contains the centre of each bin, G the RDF,
//and Counts the raw number of pairs in each bin.
type Result struct {
	R      []float64
	G      []float64
	Counts *histo.Data
}

//Compute returns the RDF between the atoms in visible of species spec1 (any species if negative)
//and those of species spec2. specie gives the species index of each atom, and pos the positions.
//An atom is never paired with itself.
func Compute(pos []float64, specie []int, visible []int, spec1, spec2 int, cell atoman.Cell, options ...*Options) (*Result, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	if !(o.end > o.start) {
		return nil, atoman.NewInvalidSettingsError("RDF", "end", "rdf.Compute", "must be larger than start (%v), got %v", o.start, o.end)
	}
	if lim := cell.MaxRadius(o.pbc); o.end > lim {
		return nil, atoman.NewInvalidSettingsError("RDF", "end", "rdf.Compute", "must not exceed %v, got %v", lim, o.end)
	}
	vol := cell.Volume()
	if !(vol > 0) {
		return nil, atoman.NewError("the cell has no volume", "rdf.Compute", false)
	}
	var first, second []int
	for _, a := range visible {
		if spec1 < 0 || specie[a] == spec1 {
			first = append(first, a)
		}
		if spec2 < 0 || specie[a] == spec2 {
			second = append(second, a)
		}
	}
	dividers := histo.Uniform(o.start, o.end, o.bins)
	R := &Result{Counts: histo.NewData(dividers, nil)}
	R.R = R.Counts.Centers()
	R.G = make([]float64, o.bins)
	if len(first) == 0 || len(second) == 0 {
		return R, nil
	}
	idx, err := spatial.New(pos, second, cell, o.end)
	if err != nil {
		return nil, atoman.Decorate(err, "rdf.Compute")
	}
	cpus := min(o.cpus, len(first))
	partial := make([]*histo.Data, cpus)
	var g errgroup.Group
	chunk := (len(first) + cpus - 1) / cpus
	for w := 0; w < cpus; w++ {
		w := w
		g.Go(func() error {
			h := histo.NewData(dividers, nil)
			var dists []float64
			for k := w * chunk; k < min((w+1)*chunk, len(first)); k++ {
				a := first[k]
				nb, err := idx.WithinDist([3]float64{pos[3*a], pos[3*a+1], pos[3*a+2]}, o.end, o.pbc)
				if err != nil {
					return err
				}
				dists = dists[:0]
				for _, n := range nb {
					if n.Index != a {
						dists = append(dists, n.Dist)
					}
				}
				h.AddData(dists...)
			}
			partial[w] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, atoman.Decorate(err, "rdf.Compute")
	}
	for _, h := range partial {
		R.Counts.Add(R.Counts, h)
	}
	//pairs expected in an ideal gas with the same density
	density := float64(len(second)) / vol
	counts := R.Counts.View()
	for i := range counts {
		shell := 4.0 / 3.0 * math.Pi * (math.Pow(dividers[i+1], 3) - math.Pow(dividers[i], 3))
		R.G[i] = counts[i] / (float64(len(first)) * density * shell)
	}
	return R, nil
}

//Partials returns the RDF for every pair of species, as a matrix of histograms with
//the RDF as bins, indexed by species.
func Partials(pos []float64, specie []int, nspecies int, visible []int, cell atoman.Cell, options ...*Options) (*histo.Matrix, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	dividers := histo.Uniform(o.start, o.end, o.bins)
	M := histo.NewMatrix(nspecies, nspecies, dividers)
	M.Fill()
	var g errgroup.Group
	for i := 0; i < nspecies; i++ {
		for j := 0; j < nspecies; j++ {
			i, j := i, j
			g.Go(func() error {
				r, err := Compute(pos, specie, visible, i, j, cell, o)
				if err != nil {
					return err
				}
				copy(M.View(i, j).View(), r.G)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, atoman.Decorate(err, "rdf.Partials")
	}
	return M, nil
}
