package filtering

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/acna"
	"github.com/cdjsvis/atoman/bondorder"
	"github.com/cdjsvis/atoman/clusters"
	"github.com/cdjsvis/atoman/defects"
	"github.com/cdjsvis/atoman/spatial"
)

//Names of the fields computed by the stages.
const (
	CoordinationField      = "Coordination number"
	VoronoiNeighboursField = "Voronoi neighbours"
	VoronoiVolumeField     = "Voronoi volume"
	Q4Field                = "Q4"
	Q6Field                = "Q6"
	ClusterField           = "Cluster"
	ACNAField              = "ACNA"
	DisplacementField      = "Displacement"
)

//rangeOutput stores values (one per visible atom) in a field, and keeps the atoms with a
//value in [min, max] if filter is true.
func rangeOutput(in *Input, name string, values []float64, filter bool, min, max float64) *Output {
	field := nanField(in.Lattice.NAtoms)
	for k, a := range in.Visible {
		field[a] = values[k]
	}
	O := &Output{Visible: in.Visible}
	if filter {
		O.Visible = keep(in.Visible, func(i int) bool { return inRange(field[i], min, max) })
	}
	O.addScalar(name, field)
	return O
}

//parallel calls f(k) for k in [0, n) using up to cpus goroutines.
func parallel(n, cpus int, f func(k int) error) error {
	var g errgroup.Group
	g.SetLimit(max(cpus, 1))
	chunk := n/(4*max(cpus, 1)) + 1
	for start := 0; start < n; start += chunk {
		start := start
		end := min(start+chunk, n)
		g.Go(func() error {
			for k := start; k < end; k++ {
				if err := f(k); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

type coordinationStage struct{ s *CoordinationNumberSettings }

func (S *coordinationStage) Kind() Kind { return CoordinationNumber }

//Apply counts, for each visible atom, the visible atoms bonded to it.
func (S *coordinationStage) Apply(in *Input) (*Output, error) {
	L := in.Lattice
	coord := make([]float64, len(in.Visible))
	if len(in.Visible) == 0 {
		return rangeOutput(in, CoordinationField, coord, S.s.FilteringEnabled, float64(S.s.Min), float64(S.s.Max)), nil
	}
	var symbols []string
	for s, n := range L.VisibleSpeciesCount(in.Visible) {
		if n > 0 {
			symbols = append(symbols, L.SpecieInfo(s).Symbol)
		}
	}
	maxd := in.Bonds.MaxDistance(symbols)
	if lim := L.Cell.MaxRadius(in.UsePBC); maxd > lim {
		return nil, atoman.NewError(fmt.Sprintf("longest bond (%v) larger than half the cell (%v)", maxd, lim), "coordinationStage.Apply", false)
	}
	idx, err := spatial.New(L.Pos, in.Visible, L.Cell, maxd)
	if err != nil {
		return nil, atoman.Decorate(err, "coordinationStage.Apply")
	}
	err = parallel(len(in.Visible), in.Cpus, func(k int) error {
		a := in.Visible[k]
		nb, err := idx.WithinDist(L.AtomPos(a), maxd, in.UsePBC)
		if err != nil {
			return err
		}
		var n int
		for _, b := range nb {
			if b.Index != a && in.Bonds.Bonded(L.Symbol(a), L.Symbol(b.Index), b.Dist) {
				n++
			}
		}
		coord[k] = float64(n)
		return nil
	})
	if err != nil {
		return nil, atoman.Decorate(err, "coordinationStage.Apply")
	}
	return rangeOutput(in, CoordinationField, coord, S.s.FilteringEnabled, float64(S.s.Min), float64(S.s.Max)), nil
}

type voronoiNeighboursStage struct{ s *VoronoiNeighboursSettings }

func (S *voronoiNeighboursStage) Kind() Kind { return VoronoiNeighbours }

func (S *voronoiNeighboursStage) Apply(in *Input) (*Output, error) {
	cells, err := in.Voronoi()
	if err != nil {
		return nil, atoman.Decorate(err, "voronoiNeighboursStage.Apply")
	}
	vals := make([]float64, len(in.Visible))
	for k, a := range in.Visible {
		vals[k] = float64(cells[a].NumNeighbours())
	}
	return rangeOutput(in, VoronoiNeighboursField, vals, S.s.FilteringEnabled, float64(S.s.Min), float64(S.s.Max)), nil
}

type voronoiVolumeStage struct{ s *VoronoiVolumeSettings }

func (S *voronoiVolumeStage) Kind() Kind { return VoronoiVolume }

func (S *voronoiVolumeStage) Apply(in *Input) (*Output, error) {
	cells, err := in.Voronoi()
	if err != nil {
		return nil, atoman.Decorate(err, "voronoiVolumeStage.Apply")
	}
	vals := make([]float64, len(in.Visible))
	for k, a := range in.Visible {
		vals[k] = cells[a].Volume
	}
	return rangeOutput(in, VoronoiVolumeField, vals, S.s.FilteringEnabled, S.s.Min, S.s.Max), nil
}

type bondOrderStage struct{ s *BondOrderSettings }

func (S *bondOrderStage) Kind() Kind { return BondOrder }

func (S *bondOrderStage) Apply(in *Input) (*Output, error) {
	L := in.Lattice
	o := bondorder.DefaultOptions()
	o.MaxBondDistance(S.s.MaxBondDistance)
	o.Averaged(S.s.LechnerDellago)
	o.PBC(in.UsePBC)
	o.Cpus(in.Cpus)
	R, err := bondorder.Compute(L.Pos, in.Visible, L.Cell, o)
	if err != nil {
		return nil, atoman.Decorate(err, "bondOrderStage.Apply")
	}
	O := rangeOutput(in, Q4Field, R.Q4, S.s.FilterQ4, S.s.MinQ4, S.s.MaxQ4)
	//the Q6 field covers every atom that was analysed, even those the Q4 filter removed.
	field := nanField(L.NAtoms)
	for k, a := range in.Visible {
		field[a] = R.Q6[k]
	}
	if S.s.FilterQ6 {
		O.Visible = keep(O.Visible, func(i int) bool { return inRange(field[i], S.s.MinQ6, S.s.MaxQ6) })
	}
	O.addScalar(Q6Field, field)
	return O, nil
}

type clusterStage struct{ s *ClusterSettings }

func (S *clusterStage) Kind() Kind { return Cluster }

func (S *clusterStage) Apply(in *Input) (*Output, error) {
	L := in.Lattice
	R, err := clusters.Analyze(L.Pos, in.Visible, L.Cell, S.s.NeighbourRadius, in.UsePBC)
	if err != nil {
		return nil, atoman.Decorate(err, "clusterStage.Apply")
	}
	_, kept := R.KeepSizes(S.s.MinClusterSize, S.s.MaxClusterSize)
	newID := make([]int, R.Len())
	for i := range newID {
		newID[i] = -1
	}
	O := &Output{Clusters: make([][]int, 0, len(kept))}
	for n, id := range kept {
		newID[id] = n
		O.Clusters = append(O.Clusters, R.Clusters[id])
	}
	field := nanField(L.NAtoms)
	for k, a := range in.Visible {
		if id := newID[R.Labels[k]]; id >= 0 {
			field[a] = float64(id)
			O.Visible = append(O.Visible, a)
		}
	}
	O.addScalar(ClusterField, field)
	in.logger().Debug("clusters", slog.Int("found", R.Len()), slog.Int("kept", len(kept)))
	return O, nil
}

type acnaStage struct{ s *ACNASettings }

func (S *acnaStage) Kind() Kind { return ACNA }

func (S *acnaStage) Apply(in *Input) (*Output, error) {
	L := in.Lattice
	o := acna.DefaultOptions()
	o.MaxBondDistance(S.s.MaxBondDistance)
	o.PBC(in.UsePBC)
	o.Cpus(in.Cpus)
	R, err := acna.Analyze(L.Pos, in.Visible, L.Cell, o)
	if err != nil {
		return nil, atoman.Decorate(err, "acnaStage.Apply")
	}
	vals := make([]float64, len(R.Structures))
	for k, s := range R.Structures {
		vals[k] = float64(s)
	}
	O := rangeOutput(in, ACNAField, vals, false, 0, 0)
	if S.s.FilteringEnabled {
		O.Visible = nil
		for k, a := range in.Visible {
			if S.s.Visible[R.Structures[k].String()] {
				O.Visible = append(O.Visible, a)
			}
		}
	}
	O.StructureCountsName = ACNAField
	O.StructureCounts = make(map[string]int, acna.NumStructures)
	for s, n := range R.Counts {
		O.StructureCounts[acna.Structure(s).String()] = n
	}
	return O, nil
}

type displacementStage struct{ s *DisplacementSettings }

func (S *displacementStage) Kind() Kind { return Displacement }

//Apply computes the displacement of each visible atom from the reference atom with the same
//index, after removing the drift.
func (S *displacementStage) Apply(in *Input) (*Output, error) {
	L, R := in.Lattice, in.Ref
	if R == nil || R.NAtoms != L.NAtoms {
		var n int
		if R != nil {
			n = R.NAtoms
		}
		return nil, atoman.NewAtomCountMismatchError(Displacement.String(), L.NAtoms, n, "displacementStage.Apply")
	}
	vals := make([]float64, len(in.Visible))
	vecs := make([][3]float64, L.NAtoms)
	for i := range vecs {
		vecs[i] = [3]float64{math.NaN(), math.NaN(), math.NaN()}
	}
	for k, a := range in.Visible {
		p := L.AtomPos(a)
		for j := 0; j < 3; j++ {
			p[j] -= in.Drift[j]
		}
		d := L.Cell.Delta(R.AtomPos(a), p, in.UsePBC)
		vecs[a] = d
		vals[k] = math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	}
	O := rangeOutput(in, DisplacementField, vals, S.s.FilteringEnabled, S.s.Min, S.s.Max)
	O.addVector(DisplacementField, vecs)
	return O, nil
}

type pointDefectsStage struct{ s *PointDefectsSettings }

func (S *pointDefectsStage) Kind() Kind { return PointDefects }

//Apply classifies the input lattice. The new visible set contains the input atoms involved in
//the defects found (interstitials, atoms on antisites and the atoms of split interstitials), in
//ascending order. Vacancies, having no input atom, are only reported in the defects result.
func (S *pointDefectsStage) Apply(in *Input) (*Output, error) {
	if in.Ref == nil {
		return nil, atoman.NewError("the Point defects filter needs a reference lattice", "pointDefectsStage.Apply", false)
	}
	o := S.s.options()
	o.DriftCompensation = in.DriftCompensation
	o.UsePBC = in.UsePBC
	o.Logger = in.logger()
	D, err := defects.Classify(in.Ref, in.Lattice, o)
	if err != nil {
		return nil, atoman.Decorate(err, "pointDefectsStage.Apply")
	}
	in.logger().Info("point defects", slog.Int("defects", D.Len()))
	return &Output{Visible: defectAtoms(D), Defects: D}, nil
}

//defectAtoms returns the input atoms involved in the defects of D: interstitials, atoms on
//antisites and the atoms of split interstitials, in ascending order.
func defectAtoms(D *defects.Result) []int {
	visible := make([]int, 0, len(D.Interstitials)+len(D.OnAntisites)+2*len(D.Splits))
	visible = append(visible, D.Interstitials...)
	visible = append(visible, D.OnAntisites...)
	for _, s := range D.Splits {
		visible = append(visible, s[1], s[2])
	}
	slices.Sort(visible)
	return slices.Compact(visible)
}
