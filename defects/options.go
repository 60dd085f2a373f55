/*
 * options.go, part of atoman.
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

package defects

import (
	"log/slog"
	"math"

	"github.com/cdjsvis/atoman"
)

//Options controls the classification.
type Options struct {
	//VacancyRadius is the largest distance at which an input atom still occupies
	//a reference site. SpeciesRadius overrides it for given reference species.
	VacancyRadius float64
	SpeciesRadius map[string]float64

	FindVacancies     bool
	FindInterstitials bool
	FindAntisites     bool
	//If IdentifySplits is true, pairs of interstitials around a vacancy are taken as a
	//split interstitial, and are no longer reported as a vacancy and two interstitials.
	//FindSplits controls whether those splits are reported, independently of FindInterstitials.
	IdentifySplits bool
	FindSplits     bool
	//SplitDistance is the radius around a vacancy where the two atoms of a split
	//interstitial are searched. If zero, twice the vacancy radius is used.
	SplitDistance float64

	//Vacancies on reference sites of these species, and interstitials of these input species,
	//are not reported.
	ExcludeRef   []string
	ExcludeInput []string

	DriftCompensation bool
	UsePBC            bool

	//If FindClusters is true, only defects in clusters with a number of defects between
	//MinClusterSize and MaxClusterSize are kept. A MaxClusterSize smaller than MinClusterSize
	//means no upper limit.
	FindClusters   bool
	ClusterRadius  float64
	MinClusterSize int
	MaxClusterSize int

	Logger *slog.Logger
}

//DefaultOptions returns the options normally used: all defect types, split interstitials,
//PBC, and no clustering.
func DefaultOptions() *Options {
	return &Options{
		VacancyRadius:     1.3,
		FindVacancies:     true,
		FindInterstitials: true,
		FindAntisites:     true,
		IdentifySplits:    true,
		FindSplits:        true,
		UsePBC:            true,
		ClusterRadius:     3.5,
		MinClusterSize:    1,
		MaxClusterSize:    -1,
	}
}

//Radius returns the vacancy radius for reference sites of the given species.
func (O *Options) Radius(symbol string) float64 {
	if r, ok := O.SpeciesRadius[symbol]; ok {
		return r
	}
	return O.VacancyRadius
}

func (O *Options) splitDistance() float64 {
	if O.SplitDistance > 0 {
		return O.SplitDistance
	}
	return 2 * O.VacancyRadius
}

func (O *Options) logger() *slog.Logger {
	if O.Logger != nil {
		return O.Logger
	}
	return slog.Default()
}

//Validate checks the options against the geometry of cell.
func (O *Options) Validate(cell atoman.Cell) error {
	const stage = "Point defects"
	if !(O.VacancyRadius > 0) {
		return atoman.NewInvalidSettingsError(stage, "vacancyRadius", "defects.Options.Validate", "must be positive, got %v", O.VacancyRadius)
	}
	max := cell.MaxRadius(O.UsePBC)
	for s, r := range O.SpeciesRadius {
		if !(r > 0) || r > max {
			return atoman.NewInvalidSettingsError(stage, "speciesRadius", "defects.Options.Validate", "radius for %s must be in (0, %v], got %v", s, max, r)
		}
	}
	if O.VacancyRadius > max {
		return atoman.NewInvalidSettingsError(stage, "vacancyRadius", "defects.Options.Validate", "must not exceed %v, got %v", max, O.VacancyRadius)
	}
	if O.IdentifySplits && (O.splitDistance() > max || O.SplitDistance < 0) {
		return atoman.NewInvalidSettingsError(stage, "splitDistance", "defects.Options.Validate", "must be in (0, %v], got %v", max, O.splitDistance())
	}
	if O.FindClusters {
		if !(O.ClusterRadius > 0) || O.ClusterRadius > max || math.IsInf(O.ClusterRadius, 0) {
			return atoman.NewInvalidSettingsError(stage, "clusterRadius", "defects.Options.Validate", "must be in (0, %v], got %v", max, O.ClusterRadius)
		}
		if O.MinClusterSize < 1 {
			return atoman.NewInvalidSettingsError(stage, "minClusterSize", "defects.Options.Validate", "must be at least 1, got %d", O.MinClusterSize)
		}
	}
	return nil
}
