/*
 * stage.go, part of atoman.
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

package filtering

import (
	"log/slog"
	"math"
	"sync"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/defects"
	"github.com/cdjsvis/atoman/voro"
)

//Input is what a stage receives: the lattices, the current visible set and everything
//the previous stages of the same run have computed. Stages must not modify it.
type Input struct {
	Lattice *atoman.Lattice
	Ref     *atoman.Lattice
	Visible []int

	//Fields computed by previous stages in this run. Each slice has one element per
	//atom of Lattice (NaN for atoms the field was not computed for).
	Scalars map[string][]float64
	Vectors map[string][][3]float64

	//Non nil once a Point defects stage has run.
	Defects *defects.Result

	//Drift is the drift vector of the run, zero unless DriftCompensation is on.
	Drift             [3]float64
	DriftCompensation bool

	Bonds   atoman.BondTable
	Cpus    int
	UsePBC  bool
	Logger  *slog.Logger
	voronoi *voronoiCache
}

//Scalar returns the scalar field with the given name, looking first among the fields computed
//in this run and then among those of the lattice.
func (I *Input) Scalar(name string) ([]float64, bool) {
	if s, ok := I.Scalars[name]; ok {
		return s, true
	}
	s, ok := I.Lattice.Scalars[name]
	return s, ok
}

//Voronoi returns the Voronoi cells of all the atoms in the input lattice. They are computed only
//once per pipeline run, and shared by every stage that needs them.
func (I *Input) Voronoi() ([]voro.Cell, error) {
	if I.voronoi == nil {
		I.voronoi = &voronoiCache{}
	}
	return I.voronoi.get(I.Lattice, I.Cpus, I.UsePBC, I.logger())
}

func (I *Input) logger() *slog.Logger {
	if I.Logger == nil {
		return slog.Default()
	}
	return I.Logger
}

type voronoiCache struct {
	once  sync.Once
	cells []voro.Cell
	err   error
	opts  *voro.Options
}

func (V *voronoiCache) get(L *atoman.Lattice, cpus int, pbc bool, log *slog.Logger) ([]voro.Cell, error) {
	V.once.Do(func() {
		o := V.opts
		if o == nil {
			o = voro.DefaultOptions()
			o.Cpus(cpus)
			o.PBC(pbc)
			o.Logger(log)
		}
		V.cells, V.err = voro.Compute(L.Pos, nil, L.Cell, o)
	})
	return V.cells, V.err
}

//Output is what a stage returns. Fields here replace those of the same name.
type Output struct {
	Visible []int
	Scalars map[string][]float64
	Vectors map[string][][3]float64
	Defects *defects.Result
	//Clusters, if not nil, replaces the cluster list of the run.
	Clusters [][]int
	//Structure counts, by structure name, stored under StructureCountsName.
	StructureCountsName string
	StructureCounts     map[string]int
}

func (O *Output) addScalar(name string, s []float64) {
	if O.Scalars == nil {
		O.Scalars = make(map[string][]float64)
	}
	O.Scalars[name] = s
}

func (O *Output) addVector(name string, v [][3]float64) {
	if O.Vectors == nil {
		O.Vectors = make(map[string][][3]float64)
	}
	O.Vectors[name] = v
}

//Stage applies one filter.
type Stage interface {
	Kind() Kind
	Apply(in *Input) (*Output, error)
}

//Builder returns the stage for the given settings.
type Builder func(Settings) (Stage, error)

//Registry maps each kind to the Builder of its stages.
type Registry struct {
	mu       sync.RWMutex
	builders map[Kind]Builder
}

//NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[Kind]Builder)}
}

//Register sets the builder for the kind k, replacing any previous one.
func (R *Registry) Register(k Kind, b Builder) {
	R.mu.Lock()
	defer R.mu.Unlock()
	R.builders[k] = b
}

//Build returns a stage for the given settings. The settings are validated first.
func (R *Registry) Build(s Settings) (Stage, error) {
	if err := s.Validate(); err != nil {
		return nil, atoman.Decorate(err, "Registry.Build")
	}
	R.mu.RLock()
	b, ok := R.builders[s.Kind()]
	R.mu.RUnlock()
	if !ok {
		return nil, atoman.NewError("no stage registered for "+s.Kind().String(), "Registry.Build", false)
	}
	return b(s)
}

//typed turns a function taking a concrete settings type into a Builder.
func typed[S Settings](f func(S) Stage) Builder {
	return func(s Settings) (Stage, error) {
		c, ok := s.(S)
		if !ok {
			return nil, atoman.NewInvalidSettingsError(s.Kind().String(), "", "Builder", "wrong settings type %T", s)
		}
		return f(c), nil
	}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	R := NewRegistry()
	R.Register(Species, typed(func(s *SpeciesSettings) Stage { return &speciesStage{s} }))
	R.Register(CropBox, typed(func(s *CropBoxSettings) Stage { return &cropBoxStage{s} }))
	R.Register(CropSphere, typed(func(s *CropSphereSettings) Stage { return &cropSphereStage{s} }))
	R.Register(Slice, typed(func(s *SliceSettings) Stage { return &sliceStage{s} }))
	R.Register(CoordinationNumber, typed(func(s *CoordinationNumberSettings) Stage { return &coordinationStage{s} }))
	R.Register(VoronoiNeighbours, typed(func(s *VoronoiNeighboursSettings) Stage { return &voronoiNeighboursStage{s} }))
	R.Register(VoronoiVolume, typed(func(s *VoronoiVolumeSettings) Stage { return &voronoiVolumeStage{s} }))
	R.Register(BondOrder, typed(func(s *BondOrderSettings) Stage { return &bondOrderStage{s} }))
	R.Register(Cluster, typed(func(s *ClusterSettings) Stage { return &clusterStage{s} }))
	R.Register(ACNA, typed(func(s *ACNASettings) Stage { return &acnaStage{s} }))
	R.Register(AtomID, typed(func(s *AtomIDSettings) Stage { return &atomIDStage{s} }))
	R.Register(Displacement, typed(func(s *DisplacementSettings) Stage { return &displacementStage{s} }))
	R.Register(Charge, typed(func(s *ChargeSettings) Stage { return &chargeStage{s} }))
	R.Register(PointDefects, typed(func(s *PointDefectsSettings) Stage { return &pointDefectsStage{s} }))
	R.Register(ScalarRange, typed(func(s *ScalarRangeSettings) Stage { return &scalarRangeStage{s} }))
	return R
})

//DefaultRegistry returns the registry with the stages for every Kind.
//Registering a new builder on it affects every pipeline using it.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

//helpers shared by the stages

//keep returns the elements of visible for which f is true, in the same order.
func keep(visible []int, f func(i int) bool) []int {
	ret := make([]int, 0, len(visible))
	for _, i := range visible {
		if f(i) {
			ret = append(ret, i)
		}
	}
	return ret
}

//nanField returns a slice of n NaNs.
func nanField(n int) []float64 {
	ret := make([]float64, n)
	for i := range ret {
		ret[i] = math.NaN()
	}
	return ret
}

func inRange(v, min, max float64) bool {
	return v >= min && v <= max
}
