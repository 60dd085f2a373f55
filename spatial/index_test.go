package spatial

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/cdjsvis/atoman"
)

func randomPositions(r *rand.Rand, n int, dims [3]float64) []float64 {
	pos := make([]float64, 3*n)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			//some atoms slightly outside the cell
			pos[3*i+j] = (r.Float64()*1.1 - 0.05) * dims[j]
		}
	}
	return pos
}

func bruteForce(pos []float64, subset []int, cell atoman.Cell, p [3]float64, radius float64, usePBC bool) []int {
	var ret []int
	for _, a := range subset {
		q := [3]float64{pos[3*a], pos[3*a+1], pos[3*a+2]}
		if cell.Separation2(p, q, usePBC) <= radius*radius {
			ret = append(ret, a)
		}
	}
	return ret
}

func TestWithinMatchesBruteForce(Te *testing.T) {
	r := rand.New(rand.NewSource(7))
	cells := []atoman.Cell{
		atoman.NewCell(20, 15, 12),
		{Dims: [3]float64{20, 15, 12}, PBC: [3]bool{true, false, true}},
		{Dims: [3]float64{20, 15, 12}},
	}
	for ci, cell := range cells {
		pos := randomPositions(r, 400, cell.Dims)
		subset := make([]int, 0, 400)
		for i := 0; i < 400; i += 2 {
			subset = append(subset, i)
		}
		for _, cellSize := range []float64{1.0, 3.5, 6} {
			I, err := New(pos, subset, cell, cellSize)
			if err != nil {
				Te.Fatal(err)
			}
			for q := 0; q < 50; q++ {
				p := [3]float64{r.Float64() * 20, r.Float64() * 15, r.Float64() * 12}
				radius := r.Float64() * 5.9
				for _, usePBC := range []bool{true, false} {
					got, err := I.Within(p, radius, usePBC)
					if err != nil {
						Te.Fatal(err)
					}
					want := bruteForce(pos, subset, cell, p, radius, usePBC)
					if len(got) == 0 && len(want) == 0 {
						continue
					}
					if !reflect.DeepEqual(got, want) {
						Te.Fatalf("cell %d, size %v, pbc %v: got %v want %v", ci, cellSize, usePBC, got, want)
					}
				}
			}
		}
	}
}

func TestQueryScansNeighbourCells(Te *testing.T) {
	r := rand.New(rand.NewSource(11))
	cell := atoman.Cell{Dims: [3]float64{30, 30, 30}, PBC: [3]bool{true, false, false}}
	pos := randomPositions(r, 600, cell.Dims)
	I, err := New(pos, nil, cell, 2.5)
	if err != nil {
		Te.Fatal(err)
	}
	for j := 0; j < 3; j++ {
		if got := len(I.axisRange(j, I.n[j]/2, 2.5, true)); got != 3 {
			Te.Errorf("axis %d: %d cells scanned for a radius equal to the cell size, want 3", j, got)
		}
	}
	all := make([]int, 600)
	for i := range all {
		all[i] = i
	}
	//query points off the grid along the non-periodic axes
	for _, p := range [][3]float64{{5, -3.4, 10}, {29, 33.1, -2}, {15, 15, 34}, {0.1, -1, 31.7}} {
		for _, radius := range []float64{1, 2.5, 4.9} {
			got, err := I.Within(p, radius, true)
			if err != nil {
				Te.Fatal(err)
			}
			want := bruteForce(pos, all, cell, p, radius, true)
			if len(got) == 0 && len(want) == 0 {
				continue
			}
			if !reflect.DeepEqual(got, want) {
				Te.Errorf("point %v, radius %v: got %v want %v", p, radius, got, want)
			}
		}
	}
}

func TestNearestAndErrors(Te *testing.T) {
	cell := atoman.NewCell(10, 10, 10)
	pos := []float64{0.5, 0.5, 0.5, 9.5, 0.5, 0.5, 5, 5, 5}
	I, err := New(pos, nil, cell, 2)
	if err != nil {
		Te.Fatal(err)
	}
	i, d, err := I.Nearest([3]float64{0.5, 0.5, 0.5}, 2, true, 0)
	if err != nil {
		Te.Fatal(err)
	}
	if i != 1 || d != 1 {
		Te.Errorf("expected atom 1 at distance 1 across the boundary, got %d, %v", i, d)
	}
	if i, _, _ := I.Nearest([3]float64{0.5, 0.5, 0.5}, 2, false, 0); i != -1 {
		Te.Errorf("without PBC there should be no neighbour, got %d", i)
	}
	if _, err := I.Within([3]float64{}, 6, true); err == nil {
		Te.Error("expected an error for a radius above half the cell")
	}
	if _, err := New(pos, nil, cell, 0); err == nil {
		Te.Error("expected an error for a zero cell size")
	}
	if _, err := New(pos, nil, atoman.NewCell(10, -1, 10), 1); err == nil {
		Te.Error("expected an error for a degenerate cell")
	}
}
