package clusters

import (
	"reflect"
	"testing"

	"github.com/cdjsvis/atoman"
)

func TestChainIsOneCluster(Te *testing.T) {
	cell := atoman.NewCell(20, 20, 20)
	//a chain 0-1-2 where 0 and 2 are further apart than the threshold,
	//an isolated atom, and a pair across the periodic boundary.
	pos := []float64{
		1, 1, 1,
		2.5, 1, 1,
		4, 1, 1,
		10, 10, 10,
		0.2, 15, 15,
		19.5, 15, 15,
	}
	visible := []int{3, 0, 1, 2, 4, 5}
	R, err := Analyze(pos, visible, cell, 1.6, true)
	if err != nil {
		Te.Fatal(err)
	}
	if R.Len() != 3 {
		Te.Fatalf("expected 3 clusters, got %d: %v", R.Len(), R.Clusters)
	}
	if !reflect.DeepEqual(R.Labels, []int{0, 1, 1, 1, 2, 2}) {
		Te.Errorf("wrong labels %v", R.Labels)
	}
	if !reflect.DeepEqual(R.Clusters[1], []int{0, 1, 2}) {
		Te.Errorf("wrong members %v", R.Clusters[1])
	}
	atoms, kept := R.KeepSizes(2, 2)
	if !reflect.DeepEqual(atoms, []int{4, 5}) || !reflect.DeepEqual(kept, []int{2}) {
		Te.Errorf("wrong size filter %v %v", atoms, kept)
	}
	c := Centre(pos, R.Clusters[2], cell, true)
	if c[0] > 0.2 && c[0] < 19.5 {
		Te.Errorf("centre was not computed across the boundary: %v", c)
	}
	R, err = Analyze(pos, visible, cell, 1.6, false)
	if err != nil {
		Te.Fatal(err)
	}
	if R.Len() != 4 {
		Te.Errorf("expected 4 clusters without PBC, got %d", R.Len())
	}
}
