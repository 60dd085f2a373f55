package filtering

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/voro"
)

//Recorder receives the timings of pipeline runs. Implementations must be safe for
//concurrent use, as independent pipelines can run at the same time.
type Recorder interface {
	//ObserveStage is called after each stage, with the number of atoms it left visible.
	ObserveStage(pipeline, stage string, d time.Duration, visible int, err error)
	//ObserveRun is called after each complete run.
	ObserveRun(pipeline string, d time.Duration, visible int, err error)
}

//Options contains the options of a pipeline.
type Options struct {
	cpus     int
	pbc      bool
	drift    bool
	bonds    atoman.BondTable
	voronoi  *voro.Options
	registry *Registry
	recorder Recorder
	logger   *slog.Logger
}

//DefaultOptions returns the default options: all the CPUs, periodic boundaries, no drift
//compensation, covalent-radii bonds and the default registry.
func DefaultOptions() *Options {
	return &Options{cpus: runtime.NumCPU(), pbc: true, registry: DefaultRegistry(), logger: slog.Default()}
}

//Returns the number of goroutines the stages can use, and sets it, if a positive value is given.
func (O *Options) Cpus(cpus ...int) int {
	ret := O.cpus
	if len(cpus) > 0 && cpus[0] > 0 {
		O.cpus = cpus[0]
	}
	return ret
}

//Returns whether periodic boundaries are applied, and sets the value, if one is given.
func (O *Options) PBC(pbc ...bool) bool {
	ret := O.pbc
	if len(pbc) > 0 {
		O.pbc = pbc[0]
	}
	return ret
}

//Returns whether the drift of the input lattice with respect to the reference is removed,
//and sets the value, if one is given.
func (O *Options) DriftCompensation(drift ...bool) bool {
	ret := O.drift
	if len(drift) > 0 {
		O.drift = drift[0]
	}
	return ret
}

//Returns the bond table used by the Coordination number stage, and sets it, if one is given.
//A nil table means bonds are determined from the covalent radii.
func (O *Options) Bonds(bonds ...atoman.BondTable) atoman.BondTable {
	ret := O.bonds
	if len(bonds) > 0 {
		O.bonds = bonds[0]
	}
	return ret
}

//Returns the options for the Voronoi calculation, and sets them, if non-nil options are given.
//If no options are set, voro's defaults are used, with the pipeline's PBC and Cpus.
func (O *Options) Voronoi(v ...*voro.Options) *voro.Options {
	ret := O.voronoi
	if len(v) > 0 && v[0] != nil {
		O.voronoi = v[0]
	}
	return ret
}

//Returns the stage registry, and sets it, if a non-nil one is given.
func (O *Options) Registry(r ...*Registry) *Registry {
	ret := O.registry
	if len(r) > 0 && r[0] != nil {
		O.registry = r[0]
	}
	return ret
}

//Returns the recorder, and sets it, if one is given. The recorder can be nil.
func (O *Options) Recorder(r ...Recorder) Recorder {
	ret := O.recorder
	if len(r) > 0 {
		O.recorder = r[0]
	}
	return ret
}

//Returns the logger, and sets it, if a non-nil one is given.
func (O *Options) Logger(l ...*slog.Logger) *slog.Logger {
	ret := O.logger
	if len(l) > 0 && l[0] != nil {
		O.logger = l[0]
	}
	return ret
}
