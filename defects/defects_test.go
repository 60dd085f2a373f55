package defects

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/cdjsvis/atoman"
)

type site struct {
	sym string
	pos [3]float64
}

func build(cell atoman.Cell, atoms ...site) *atoman.Lattice {
	L := atoman.NewLattice(cell)
	for _, a := range atoms {
		L.AddAtom(a.sym, a.pos, 0, -1, nil, nil)
	}
	return L
}

func TestVacancyInterstitialAntisite(Te *testing.T) {
	cell := atoman.NewCell(10, 10, 10)
	ref := build(cell,
		site{"Fe", [3]float64{1, 1, 1}},
		site{"Fe", [3]float64{5, 1, 1}},
		site{"Fe", [3]float64{1, 5, 1}},
		site{"Fe", [3]float64{5, 5, 1}})
	input := build(cell,
		site{"Fe", [3]float64{1.1, 1, 1}},
		site{"Fe", [3]float64{3, 3, 6}},
		site{"Cr", [3]float64{1, 5, 1}},
		site{"Fe", [3]float64{5, 5, 1}})
	R, err := Classify(ref, input)
	if err != nil {
		Te.Fatal(err)
	}
	if !reflect.DeepEqual(R.Vacancies, []int{1}) || !reflect.DeepEqual(R.Interstitials, []int{1}) {
		Te.Errorf("wrong vacancies/interstitials: %v %v", R.Vacancies, R.Interstitials)
	}
	if !reflect.DeepEqual(R.Antisites, []int{2}) || !reflect.DeepEqual(R.OnAntisites, []int{2}) {
		Te.Errorf("wrong antisites: %v on %v", R.Antisites, R.OnAntisites)
	}
	if len(R.Splits) != 0 || R.Len() != 3 {
		Te.Errorf("wrong number of defects: %d, splits %v", R.Len(), R.Splits)
	}
	cr := input.SpeciesIndex("Cr")
	if R.VacancyCount[0] != 1 || R.InterstitialCount[0] != 1 || R.AntisiteCount[0][cr] != 1 {
		Te.Errorf("wrong breakdowns %v %v %v", R.VacancyCount, R.InterstitialCount, R.AntisiteCount)
	}
	recs := R.Records()
	if len(recs) != 3 || recs[2].Kind != Antisite || recs[2].Input != 2 {
		Te.Errorf("wrong records %v", recs)
	}

	o := DefaultOptions()
	o.ExcludeRef = []string{"Fe"}
	o.FindAntisites = false
	R, err = Classify(ref, input, o)
	if err != nil {
		Te.Fatal(err)
	}
	if len(R.Vacancies) != 0 || len(R.Antisites) != 0 || len(R.Interstitials) != 1 {
		Te.Errorf("exclusions not applied: %v %v %v", R.Vacancies, R.Antisites, R.Interstitials)
	}
}

func TestSplitInterstitial(Te *testing.T) {
	cell := atoman.NewCell(10, 10, 10)
	ref := build(cell,
		site{"Fe", [3]float64{1, 1, 1}},
		site{"Fe", [3]float64{5, 5, 5}},
		site{"Fe", [3]float64{8, 8, 8}})
	input := build(cell,
		site{"Fe", [3]float64{1, 1, 1}},
		site{"Fe", [3]float64{3.6, 5, 5}},
		site{"Fe", [3]float64{6.4, 5, 5}},
		site{"Fe", [3]float64{8, 8, 8}})
	R, err := Classify(ref, input)
	if err != nil {
		Te.Fatal(err)
	}
	if !reflect.DeepEqual(R.Splits, [][3]int{{1, 1, 2}}) {
		Te.Fatalf("expected one split interstitial, got %v", R.Splits)
	}
	if len(R.Vacancies) != 0 || len(R.Interstitials) != 0 {
		Te.Errorf("split atoms still reported: %v %v", R.Vacancies, R.Interstitials)
	}
	if R.SplitCount[0][0] != 1 {
		Te.Errorf("wrong split breakdown %v", R.SplitCount)
	}
	o := DefaultOptions()
	o.IdentifySplits = false
	R, _ = Classify(ref, input, o)
	if len(R.Vacancies) != 1 || len(R.Interstitials) != 2 {
		Te.Errorf("without splits expected 1 vacancy and 2 interstitials, got %v %v", R.Vacancies, R.Interstitials)
	}
	o = DefaultOptions()
	o.FindInterstitials = false
	R, _ = Classify(ref, input, o)
	if len(R.Splits) != 1 || len(R.Interstitials) != 0 || len(R.Vacancies) != 0 {
		Te.Errorf("hiding interstitials should keep the split: %v %v %v", R.Splits, R.Interstitials, R.Vacancies)
	}
	o.FindInterstitials = true
	o.FindSplits = false
	R, _ = Classify(ref, input, o)
	if len(R.Splits) != 0 || len(R.Interstitials) != 0 || len(R.Vacancies) != 0 {
		Te.Errorf("hidden splits should not be reported as other defects: %v %v %v", R.Splits, R.Interstitials, R.Vacancies)
	}
}

func TestClosestThenLowestIndex(Te *testing.T) {
	cell := atoman.NewCell(10, 10, 10)
	ref := build(cell,
		site{"Fe", [3]float64{2, 2, 2}},
		site{"Fe", [3]float64{3, 2, 2}})
	input := build(cell, site{"Fe", [3]float64{2.5, 2, 2}})
	R, err := Classify(ref, input)
	if err != nil {
		Te.Fatal(err)
	}
	if !reflect.DeepEqual(R.Vacancies, []int{1}) {
		Te.Errorf("tie should go to the lowest reference index, vacancies: %v", R.Vacancies)
	}
	ref = build(cell, site{"Fe", [3]float64{5, 5, 5}})
	input = build(cell,
		site{"Fe", [3]float64{5, 5, 4.5}},
		site{"Fe", [3]float64{5, 5, 5.5}})
	R, _ = Classify(ref, input)
	if !reflect.DeepEqual(R.Interstitials, []int{1}) || len(R.Vacancies) != 0 {
		Te.Errorf("tie should go to the lowest input index, interstitials: %v", R.Interstitials)
	}
}

func TestDriftCompensation(Te *testing.T) {
	cell := atoman.NewCell(10, 10, 10)
	ref := build(cell,
		site{"Fe", [3]float64{1, 1, 1}},
		site{"Fe", [3]float64{5, 1, 1}},
		site{"Fe", [3]float64{1, 5, 1}},
		site{"Fe", [3]float64{9.5, 5, 5}})
	input := ref.Clone()
	input.Translate([3]float64{1, 0, 0})
	input.WrapAtoms()
	o := DefaultOptions()
	o.DriftCompensation = true
	R, err := Classify(ref, input, o)
	if err != nil {
		Te.Fatal(err)
	}
	for j, want := range []float64{1, 0, 0} {
		if math.Abs(R.Drift[j]-want) > 1e-9 {
			Te.Errorf("wrong drift %v", R.Drift)
		}
	}
	if R.Len() != 0 {
		Te.Errorf("expected no defects, got %d", R.Len())
	}
	if input.AtomPos(0)[0] != 2 {
		Te.Error("the input lattice was modified")
	}
}

func TestDefectClusters(Te *testing.T) {
	cell := atoman.NewCell(10, 10, 10)
	ref := build(cell,
		site{"Fe", [3]float64{1, 1, 1}},
		site{"Fe", [3]float64{2.5, 1, 1}},
		site{"Fe", [3]float64{8, 8, 8}},
		site{"Fe", [3]float64{5, 5, 5}})
	input := build(cell, site{"Fe", [3]float64{5, 5, 5}})
	o := DefaultOptions()
	o.IdentifySplits = false
	o.FindClusters = true
	o.ClusterRadius = 2
	o.MinClusterSize = 2
	R, err := Classify(ref, input, o)
	if err != nil {
		Te.Fatal(err)
	}
	if !reflect.DeepEqual(R.Vacancies, []int{0, 1}) || len(R.Clusters) != 1 || R.Clusters[0].Len() != 2 {
		Te.Errorf("wrong clustered vacancies %v, clusters %v", R.Vacancies, R.Clusters)
	}
}

func TestInvalidRadius(Te *testing.T) {
	cell := atoman.NewCell(4, 4, 4)
	ref := build(cell, site{"Fe", [3]float64{1, 1, 1}})
	o := DefaultOptions()
	o.VacancyRadius = 2.5
	_, err := Classify(ref, ref.Clone(), o)
	var ise *atoman.InvalidSettingsError
	if !errors.As(err, &ise) {
		Te.Errorf("expected an InvalidSettingsError, got %v", err)
	}
}
