package filtering

import (
	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/defects"
)

type speciesStage struct{ s *SpeciesSettings }

func (S *speciesStage) Kind() Kind { return Species }

func (S *speciesStage) Apply(in *Input) (*Output, error) {
	show := make(map[string]bool, len(S.s.Visible))
	for _, v := range S.s.Visible {
		show[v] = true
	}
	L := in.Lattice
	return &Output{Visible: keep(in.Visible, func(i int) bool { return show[L.Symbol(i)] })}, nil
}

type cropBoxStage struct{ s *CropBoxSettings }

func (S *cropBoxStage) Kind() Kind { return CropBox }

func (S *cropBoxStage) inside(p [3]float64) bool {
	in := true
	for j := 0; j < 3; j++ {
		if S.s.Enabled[j] && (p[j] < S.s.Min[j] || p[j] > S.s.Max[j]) {
			in = false
			break
		}
	}
	return in != S.s.Invert
}

func (S *cropBoxStage) Apply(in *Input) (*Output, error) {
	return cropDefects(in, S.inside), nil
}

type sliceStage struct{ s *SliceSettings }

func (S *sliceStage) Kind() Kind { return Slice }

func (S *sliceStage) front(p [3]float64) bool {
	var dot float64
	for j := 0; j < 3; j++ {
		dot += (p[j] - S.s.Point[j]) * S.s.Normal[j]
	}
	return (dot >= 0) != S.s.Invert
}

func (S *sliceStage) Apply(in *Input) (*Output, error) {
	return cropDefects(in, S.front), nil
}

//cropDefects keeps the visible atoms with a position for which pass is true and, if point defects
//have been classified, the defects. Vacancies and antisites are located at their reference site,
//interstitials at the input atom, and split interstitials are kept only if both their atoms pass.
func cropDefects(in *Input, pass func(p [3]float64) bool) *Output {
	L := in.Lattice
	O := &Output{Visible: keep(in.Visible, func(i int) bool { return pass(L.AtomPos(i)) })}
	if in.Defects == nil {
		return O
	}
	D := in.Defects
	R := in.Ref
	refOK := func(i int) bool { return pass(R.AtomPos(i)) }
	inOK := func(i int) bool { return pass(L.AtomPos(i)) }
	N := &defects.Result{Drift: D.Drift}
	N.Vacancies = keep(D.Vacancies, refOK)
	N.Interstitials = keep(D.Interstitials, inOK)
	for k, a := range D.Antisites {
		if refOK(a) {
			N.Antisites = append(N.Antisites, a)
			N.OnAntisites = append(N.OnAntisites, D.OnAntisites[k])
		}
	}
	for _, s := range D.Splits {
		if inOK(s[1]) && inOK(s[2]) {
			N.Splits = append(N.Splits, s)
		}
	}
	for _, c := range D.Clusters {
		nc := defects.Cluster{
			Vacancies:     keep(c.Vacancies, refOK),
			Interstitials: keep(c.Interstitials, inOK),
			Antisites:     keep(c.Antisites, refOK),
		}
		if nc.Len() > 0 {
			N.Clusters = append(N.Clusters, nc)
		}
	}
	N.Recount(R, L)
	O.Defects = N
	//antisites are cropped by site, so the visible atoms follow the defect lists.
	O.Visible = defectAtoms(N)
	return O
}

type cropSphereStage struct{ s *CropSphereSettings }

func (S *cropSphereStage) Kind() Kind { return CropSphere }

func (S *cropSphereStage) Apply(in *Input) (*Output, error) {
	L := in.Lattice
	r2 := S.s.Radius * S.s.Radius
	return &Output{Visible: keep(in.Visible, func(i int) bool {
		return (L.Cell.Separation2(S.s.Centre, L.AtomPos(i), in.UsePBC) <= r2) != S.s.Invert
	})}, nil
}

type atomIDStage struct{ s *AtomIDSettings }

func (S *atomIDStage) Kind() Kind { return AtomID }

func (S *atomIDStage) Apply(in *Input) (*Output, error) {
	ranges, err := S.s.ranges()
	if err != nil {
		return nil, err
	}
	L := in.Lattice
	return &Output{Visible: keep(in.Visible, func(i int) bool {
		id := L.AtomID[i]
		for _, r := range ranges {
			if id >= r[0] && id <= r[1] {
				return true
			}
		}
		return false
	})}, nil
}

type chargeStage struct{ s *ChargeSettings }

func (S *chargeStage) Kind() Kind { return Charge }

func (S *chargeStage) Apply(in *Input) (*Output, error) {
	L := in.Lattice
	return &Output{Visible: keep(in.Visible, func(i int) bool { return inRange(L.Charge[i], S.s.Min, S.s.Max) })}, nil
}

type scalarRangeStage struct{ s *ScalarRangeSettings }

func (S *scalarRangeStage) Kind() Kind { return ScalarRange }

func (S *scalarRangeStage) Apply(in *Input) (*Output, error) {
	vals, ok := in.Scalar(S.s.Name)
	if !ok {
		return nil, atoman.NewError("no scalar field named "+S.s.Name, "scalarRangeStage.Apply", false)
	}
	return &Output{Visible: keep(in.Visible, func(i int) bool { return inRange(vals[i], S.s.Min, S.s.Max) })}, nil
}
