package filtering

import (
	"math"
	"slices"
	"testing"

	"github.com/cdjsvis/atoman"
)

func apply(Te *testing.T, P *Pipeline, stages ...Settings) *Result {
	Te.Helper()
	for _, s := range stages {
		if err := P.AddStage(s); err != nil {
			Te.Fatal(err)
		}
	}
	R, err := P.Apply()
	if err != nil {
		Te.Fatal(err)
	}
	return R
}

func TestPointDefects(Te *testing.T) {
	const a = 2.5
	cell := atoman.NewCell(20, 20, 20)
	corners := [][3]float64{{0, 0, 0}, {a, 0, 0}, {0, a, 0}, {0, 0, a}}
	ref := lattice(cell, []string{"Fe"}, corners)
	input := lattice(cell, []string{"Fe"}, append(slices.Clone(corners[:3]), [3]float64{10, 10, 10}))
	P := New("defects", ref, input)
	R := apply(Te, P, DefaultPointDefectsSettings())
	D := R.Defects
	if D == nil {
		Te.Fatal("no defects in the result")
	}
	if !slices.Equal(D.Vacancies, []int{3}) || !slices.Equal(D.Interstitials, []int{3}) || len(D.Antisites) != 0 {
		Te.Errorf("expected a vacancy at site 3 and an interstitial at atom 3, got %v %v %v", D.Vacancies, D.Interstitials, D.Antisites)
	}
	if !slices.Equal(R.Visible, []int{3}) {
		Te.Errorf("only the interstitial should be visible, got %v", R.Visible)
	}
	//cropping around the origin removes the interstitial but not the vacancy.
	cb := DefaultCropBoxSettings()
	cb.Min = [3]float64{-1, -1, -1}
	cb.Max = [3]float64{5, 5, 5}
	R = apply(Te, P, cb)
	D = R.Defects
	if len(D.Vacancies) != 1 || len(D.Interstitials) != 0 || len(R.Visible) != 0 {
		Te.Errorf("expected only the vacancy after cropping, got %v %v %v", D.Vacancies, D.Interstitials, R.Visible)
	}
	if D.VacancyCount[0] != 1 || D.InterstitialCount[0] != 0 {
		Te.Errorf("species counts not updated after cropping: %v %v", D.VacancyCount, D.InterstitialCount)
	}
}

func TestAntisiteStage(Te *testing.T) {
	cell := atoman.NewCell(20, 20, 20)
	ref := lattice(cell, []string{"Fe"}, [][3]float64{{5, 5, 5}, {8, 5, 5}})
	input := lattice(cell, []string{"Fe", "Cr"}, [][3]float64{{5, 5, 5}, {8.1, 5, 5}})
	P := New("antisite", ref, input)
	R := apply(Te, P, DefaultPointDefectsSettings())
	D := R.Defects
	if !slices.Equal(D.Antisites, []int{1}) || !slices.Equal(D.OnAntisites, []int{1}) {
		Te.Errorf("expected an antisite on site 1, got %v %v", D.Antisites, D.OnAntisites)
	}
	if len(D.Vacancies)+len(D.Interstitials) != 0 {
		Te.Errorf("no vacancies or interstitials expected, got %v %v", D.Vacancies, D.Interstitials)
	}
	if D.AntisiteCount[0][1] != 1 {
		Te.Errorf("expected a Fe->Cr antisite, got %v", D.AntisiteCount)
	}
}

//An antisite is cropped by the position of its site, and the atom on it follows.
func TestCropAntisite(Te *testing.T) {
	cell := atoman.NewCell(20, 20, 20)
	for _, c := range []struct {
		min, max float64
		visible  []int
	}{{0, 5.3, []int{0}}, {5.3, 10, []int{}}} {
		ref := lattice(cell, []string{"Fe"}, [][3]float64{{5, 5, 5}})
		input := lattice(cell, []string{"Cr"}, [][3]float64{{5.6, 5, 5}})
		P := New("antisite crop", ref, input)
		crop := DefaultCropBoxSettings()
		crop.Min[0], crop.Max[0] = c.min, c.max
		R := apply(Te, P, DefaultPointDefectsSettings(), crop)
		D := R.Defects
		if !slices.Equal(R.Visible, c.visible) || !slices.Equal(D.OnAntisites, c.visible) {
			Te.Errorf("box x in [%v, %v]: visible %v and atoms on antisites %v should both be %v", c.min, c.max, R.Visible, D.OnAntisites, c.visible)
		}
		if R.VisibleSpecieCount[0] != len(c.visible) {
			Te.Errorf("box x in [%v, %v]: wrong visible count %v", c.min, c.max, R.VisibleSpecieCount)
		}
	}
}

func TestDisplacementAndDrift(Te *testing.T) {
	cell := atoman.NewCell(20, 20, 20)
	pos := crystal(2, 3, [][3]float64{{0, 0, 0}})
	ref := lattice(cell, []string{"Fe"}, pos)
	moved := make([][3]float64, len(pos))
	for i, p := range pos {
		moved[i] = [3]float64{p[0] + 0.5, p[1], p[2]}
	}
	moved[3][1] += 4 //atom 3 moves 4 along y on top of the drift.
	input := lattice(cell, []string{"Fe"}, moved)
	o := DefaultOptions()
	o.DriftCompensation(true)
	P := New("disp", ref, input, o)
	ds := DefaultDisplacementSettings()
	ds.Min = 1
	R := apply(Te, P, ds)
	if math.Abs(R.Drift[0]-0.5) > 1e-12 || math.Abs(R.Drift[1]-0.5) > 1e-12 || R.Drift[2] != 0 {
		Te.Errorf("expected a drift of (0.5, 0.5, 0), got %v", R.Drift)
	}
	if !slices.Equal(R.Visible, []int{3}) {
		Te.Errorf("only atom 3 should be displaced, got %v", R.Visible)
	}
	d := R.Scalars[DisplacementField]
	if math.Abs(d[3]-3.5) > 1e-12 || math.Abs(d[0]-0.5) > 1e-12 {
		Te.Errorf("wrong displacements: %v", d)
	}
	if v := R.Vectors[DisplacementField][3]; math.Abs(v[1]-3.5) > 1e-12 {
		Te.Errorf("wrong displacement vector %v", v)
	}
}

func TestCoordinationNumber(Te *testing.T) {
	L := bccIron()
	P := New("coord", nil, L)
	cn := DefaultCoordinationNumberSettings()
	R := apply(Te, P, cn)
	//with covalent radii, the second shell (at a) is bonded too.
	for _, i := range R.Visible {
		if c := R.Scalars[CoordinationField][i]; c != 14 {
			Te.Fatalf("atom %d: expected 14 bonds, got %v", i, c)
		}
	}
	o := DefaultOptions()
	B := atoman.BondTable{}
	B.Set("Fe", "Cr", 0, 2.6)
	B.Set("Fe", "Fe", 0, 2.6)
	B.Set("Cr", "Cr", 0, 2.6)
	o.Bonds(B)
	P = New("coord", nil, L, o)
	cn = DefaultCoordinationNumberSettings()
	cn.FilteringEnabled = true
	cn.Min, cn.Max = 9, 20
	sp := DefaultSpeciesSettings()
	sp.Visible = []string{"Fe", "Cr"}
	R = apply(Te, P, sp, cn)
	if len(R.Visible) != 0 {
		Te.Errorf("no atom has more than 8 first neighbours, got %d visible", len(R.Visible))
	}
	if c := R.Scalars[CoordinationField][0]; c != 8 {
		Te.Errorf("expected 8 bonds, got %v", c)
	}
}

func TestVoronoiStages(Te *testing.T) {
	const a = 1.5
	L := lattice(atoman.NewCell(4*a, 4*a, 4*a), []string{"Cu"}, crystal(4, a, [][3]float64{{0, 0, 0}}))
	P := New("voro", nil, L)
	vv := DefaultVoronoiVolumeSettings()
	vv.FilteringEnabled = true
	vv.Min, vv.Max = 3, 4
	vn := DefaultVoronoiNeighboursSettings()
	R := apply(Te, P, vv, vn)
	if len(R.Visible) != 64 {
		Te.Errorf("all the atoms have a volume of a^3, got %d visible", len(R.Visible))
	}
	for _, i := range R.Visible {
		if v := R.Scalars[VoronoiVolumeField][i]; math.Abs(v-a*a*a) > 1e-6 {
			Te.Fatalf("atom %d: expected volume %v, got %v", i, a*a*a, v)
		}
		if n := R.Scalars[VoronoiNeighboursField][i]; n != 6 {
			Te.Fatalf("atom %d: expected 6 neighbours, got %v", i, n)
		}
	}
	vn.FilteringEnabled = true
	vn.Min, vn.Max = 7, 20
	R, err := P.Apply()
	if err != nil {
		Te.Fatal(err)
	}
	if len(R.Visible) != 0 {
		Te.Errorf("no atom has more than 6 neighbours, got %d visible", len(R.Visible))
	}
}

func TestStructureStages(Te *testing.T) {
	const a = 3.6
	L := lattice(atoman.NewCell(3*a, 3*a, 3*a), []string{"Cu"}, crystal(3, a, [][3]float64{{0, 0, 0}, {0.5, 0.5, 0}, {0.5, 0, 0.5}, {0, 0.5, 0.5}}))
	P := New("structure", nil, L)
	ac := DefaultACNASettings()
	ac.MaxBondDistance = 4
	bo := DefaultBondOrderSettings()
	bo.MaxBondDistance = 3
	bo.FilterQ6 = true
	bo.MinQ6, bo.MaxQ6 = 0.5, 0.6
	R := apply(Te, P, ac, bo)
	if n := R.StructureCounts[ACNAField]["FCC"]; n != 108 {
		Te.Errorf("expected 108 FCC atoms, got %v", R.StructureCounts)
	}
	if len(R.Visible) != 108 {
		Te.Errorf("all atoms have the FCC Q6, got %d visible", len(R.Visible))
	}
	if q := R.Scalars[Q6Field][5]; math.Abs(q-0.57452) > 1e-4 {
		Te.Errorf("expected Q6=0.57452, got %v", q)
	}
	ac.FilteringEnabled = true
	ac.Visible["FCC"] = false
	R, err := P.Apply()
	if err != nil {
		Te.Fatal(err)
	}
	if len(R.Visible) != 0 {
		Te.Errorf("FCC atoms should be hidden, got %d visible", len(R.Visible))
	}
	if !math.IsNaN(R.Scalars[Q6Field][0]) {
		Te.Errorf("the Q6 of hidden atoms should be NaN")
	}
}

func TestSelectionStages(Te *testing.T) {
	cell := atoman.NewCell(10, 10, 10)
	L := atoman.NewLattice(cell)
	for i := 0; i < 10; i++ {
		L.AddAtom("Fe", [3]float64{float64(i), 0.5, 0.5}, float64(i)-5, i+1, map[string]float64{"KE": float64(i) / 10}, nil)
	}
	cases := []struct {
		name     string
		settings Settings
		visible  []int
	}{
		{"sphere", &CropSphereSettings{Centre: [3]float64{0.5, 0.5, 0.5}, Radius: 1.6}, []int{0, 1, 2, 9}},
		{"slice", &SliceSettings{Point: [3]float64{7, 0, 0}, Normal: [3]float64{1, 0, 0}}, []int{7, 8, 9}},
		{"inverted slice", &SliceSettings{Point: [3]float64{7, 0, 0}, Normal: [3]float64{1, 0, 0}, Invert: true}, []int{0, 1, 2, 3, 4, 5, 6}},
		{"atom ID", &AtomIDSettings{Filter: "1-2, 5"}, []int{0, 1, 4}},
		{"charge", &ChargeSettings{Min: -1, Max: 1}, []int{4, 5, 6}},
		{"scalar", &ScalarRangeSettings{Name: "KE", Min: 0.75, Max: 2}, []int{8, 9}},
	}
	for _, c := range cases {
		P := New(c.name, nil, L)
		R := apply(Te, P, c.settings)
		if !slices.Equal(R.Visible, c.visible) {
			Te.Errorf("%s: expected %v, got %v", c.name, c.visible, R.Visible)
		}
	}
}
