package rdf

import (
	"errors"
	"math"
	"testing"

	"github.com/cdjsvis/atoman"
)

//cubic returns a simple cubic lattice of n^3 atoms with a unit lattice constant,
//with species alternating as in rock salt.
func cubic(n int) ([]float64, []int) {
	var pos []float64
	var specie []int
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				pos = append(pos, float64(i), float64(j), float64(k))
				specie = append(specie, (i+j+k)%2)
			}
		}
	}
	return pos, specie
}

func shell(a, b float64) float64 {
	return 4.0 / 3.0 * math.Pi * (b*b*b - a*a*a)
}

func all(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

func TestSimpleCubic(Te *testing.T) {
	pos, specie := cubic(6)
	cell := atoman.NewCell(6, 6, 6)
	o := DefaultOptions()
	o.Start(0.125)
	o.End(2.125)
	o.Bins(8)
	o.Cpus(3)
	R, err := Compute(pos, specie, all(216), -1, -1, cell, o)
	if err != nil {
		Te.Fatal(err)
	}
	//6 first neighbours at 1, 12 at sqrt(2), 8 at sqrt(3) and 6 at 2
	expected := map[int]float64{3: 6, 5: 12, 6: 8, 7: 6}
	counts := R.Counts.View()
	for i, c := range counts {
		if c != expected[i]*216 {
			Te.Errorf("bin %d (r=%.3f): expected %v pairs, got %v", i, R.R[i], expected[i]*216, c)
		}
	}
	want := 6 / shell(0.875, 1.125)
	if math.Abs(R.G[3]-want) > 1e-9 {
		Te.Errorf("expected g(1)=%v, got %v", want, R.G[3])
	}
	if R.G[0] != 0 {
		Te.Errorf("the atoms should not be paired with themselves, g(0.25)=%v", R.G[0])
	}
}

func TestPartials(Te *testing.T) {
	pos, specie := cubic(6)
	cell := atoman.NewCell(6, 6, 6)
	o := DefaultOptions()
	o.Start(0.125)
	o.End(2.125)
	o.Bins(8)
	M, err := Partials(pos, specie, 2, all(216), cell, o)
	if err != nil {
		Te.Fatal(err)
	}
	if g := M.View(0, 0).View()[3]; g != 0 {
		Te.Errorf("first neighbours are never of the same species, got g=%v", g)
	}
	want := 12 / shell(0.875, 1.125)
	if g := M.View(0, 1).View()[3]; math.Abs(g-want) > 1e-9 {
		Te.Errorf("expected g01(1)=%v, got %v", want, g)
	}
	//only visible atoms count.
	R, err := Compute(pos, specie, []int{0}, 0, 1, cell, o)
	if err != nil {
		Te.Fatal(err)
	}
	if R.Counts.Sum() != 0 {
		Te.Errorf("a single visible atom can't have neighbours, got %v", R.Counts.View())
	}
}

func TestInvalidRange(Te *testing.T) {
	pos, specie := cubic(4)
	o := DefaultOptions()
	o.End(2.5)
	_, err := Compute(pos, specie, all(64), -1, -1, atoman.NewCell(4, 4, 4), o)
	var ise *atoman.InvalidSettingsError
	if !errors.As(err, &ise) {
		Te.Errorf("expected an InvalidSettingsError, got %v", err)
	}
}
