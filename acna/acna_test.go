package acna

import (
	"testing"

	"github.com/cdjsvis/atoman"
)

//crystal returns the positions of n x n x n unit cells with lattice constant a and the given basis.
func crystal(n int, a float64, basis [][3]float64) []float64 {
	var pos []float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				for _, b := range basis {
					pos = append(pos, (float64(i)+b[0])*a, (float64(j)+b[1])*a, (float64(k)+b[2])*a)
				}
			}
		}
	}
	return pos
}

func TestFCC(Te *testing.T) {
	const a = 3.6
	pos := crystal(3, a, [][3]float64{{0, 0, 0}, {0.5, 0.5, 0}, {0.5, 0, 0.5}, {0, 0.5, 0.5}})
	cell := atoman.NewCell(3*a, 3*a, 3*a)
	o := DefaultOptions()
	o.MaxBondDistance(4)
	R, err := Analyze(pos, nil, cell, o)
	if err != nil {
		Te.Fatal(err)
	}
	if R.Counts[FCC] != 108 {
		Te.Errorf("expected 108 FCC atoms, got %v", R.Counts)
	}
	//without PBC the surface atoms are not FCC.
	o.PBC(false)
	R, err = Analyze(pos, nil, cell, o)
	if err != nil {
		Te.Fatal(err)
	}
	if R.Counts[FCC] == 108 || R.Counts[FCC] == 0 {
		Te.Errorf("expected only bulk atoms to be FCC without PBC, got %v", R.Counts)
	}
}

func TestBCC(Te *testing.T) {
	const a = 2.87
	pos := crystal(4, a, [][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}})
	cell := atoman.NewCell(4*a, 4*a, 4*a)
	o := DefaultOptions()
	o.MaxBondDistance(3.5)
	R, err := Analyze(pos, []int{0, 5, 17}, cell, o)
	if err != nil {
		Te.Fatal(err)
	}
	for i, s := range R.Structures {
		if s != BCC {
			Te.Errorf("atom %d: expected BCC, got %v", i, s)
		}
	}
	if s, err := ParseStructure("BCC"); err != nil || s != BCC {
		Te.Errorf("could not parse structure name: %v %v", s, err)
	}
}
