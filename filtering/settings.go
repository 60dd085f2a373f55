package filtering

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/acna"
	"github.com/cdjsvis/atoman/defects"
)

//Settings is the configuration of one stage. Each Kind has its own Settings type.
type Settings interface {
	Kind() Kind
	Validate() error
}

func invalid(k Kind, option, reason string, args ...any) error {
	return atoman.NewInvalidSettingsError(k.String(), option, "Settings.Validate", reason, args...)
}

func checkRange(k Kind, option string, min, max float64) error {
	if math.IsNaN(min) || math.IsNaN(max) {
		return invalid(k, option, "NaN limits")
	}
	if max < min {
		return invalid(k, option, "maximum (%v) smaller than minimum (%v)", max, min)
	}
	return nil
}

//SpeciesSettings keeps the atoms whose species symbol is in Visible.
type SpeciesSettings struct {
	Visible []string `json:"visibleSpecies"`
}

func DefaultSpeciesSettings() *SpeciesSettings { return &SpeciesSettings{} }
func (S *SpeciesSettings) Kind() Kind           { return Species }
func (S *SpeciesSettings) Validate() error      { return nil }

//CropBoxSettings keeps the atoms inside the box (limits included) along the enabled axes,
//or those outside, if Invert is true.
type CropBoxSettings struct {
	Min     [3]float64 `json:"min"`
	Max     [3]float64 `json:"max"`
	Enabled [3]bool    `json:"enabled"`
	Invert  bool       `json:"invertSelection"`
}

func DefaultCropBoxSettings() *CropBoxSettings {
	return &CropBoxSettings{Max: [3]float64{10, 10, 10}, Enabled: [3]bool{true, true, true}}
}

func (S *CropBoxSettings) Kind() Kind { return CropBox }

func (S *CropBoxSettings) Validate() error {
	axes := "xyz"
	for i := 0; i < 3; i++ {
		if !S.Enabled[i] {
			continue
		}
		if err := checkRange(CropBox, axes[i:i+1], S.Min[i], S.Max[i]); err != nil {
			return err
		}
	}
	return nil
}

//CropSphereSettings keeps the atoms within Radius of Centre (minimum image), or those
//outside, if Invert is true.
type CropSphereSettings struct {
	Centre [3]float64 `json:"centre"`
	Radius float64    `json:"radius"`
	Invert bool       `json:"invertSelection"`
}

func DefaultCropSphereSettings() *CropSphereSettings { return &CropSphereSettings{Radius: 1} }
func (S *CropSphereSettings) Kind() Kind            { return CropSphere }

func (S *CropSphereSettings) Validate() error {
	if !(S.Radius > 0) || math.IsInf(S.Radius, 0) {
		return invalid(CropSphere, "radius", "must be positive and finite, got %v", S.Radius)
	}
	return nil
}

//SliceSettings keeps the atoms on the side of the plane through Point the Normal points to
//(atoms on the plane included), or those on the other side, if Invert is true.
type SliceSettings struct {
	Point  [3]float64 `json:"point"`
	Normal [3]float64 `json:"normal"`
	Invert bool       `json:"invert"`
}

func DefaultSliceSettings() *SliceSettings { return &SliceSettings{Normal: [3]float64{1, 0, 0}} }
func (S *SliceSettings) Kind() Kind       { return Slice }

func (S *SliceSettings) Validate() error {
	if S.Normal == [3]float64{} {
		return invalid(Slice, "normal", "the normal can't be the zero vector")
	}
	return nil
}

//CoordinationNumberSettings computes the number of bonded visible neighbours of each visible atom.
//If FilteringEnabled, only atoms with a coordination number in [Min, Max] are kept.
type CoordinationNumberSettings struct {
	Min              int  `json:"minCoordNum"`
	Max              int  `json:"maxCoordNum"`
	FilteringEnabled bool `json:"filteringEnabled"`
}

func DefaultCoordinationNumberSettings() *CoordinationNumberSettings {
	return &CoordinationNumberSettings{Min: 0, Max: 100}
}

func (S *CoordinationNumberSettings) Kind() Kind { return CoordinationNumber }

func (S *CoordinationNumberSettings) Validate() error {
	if S.Min < 0 {
		return invalid(CoordinationNumber, "minCoordNum", "must be non-negative, got %d", S.Min)
	}
	return checkRange(CoordinationNumber, "maxCoordNum", float64(S.Min), float64(S.Max))
}

//VoronoiNeighboursSettings computes the number of Voronoi neighbours of each visible atom.
//If FilteringEnabled, only atoms with a number of neighbours in [Min, Max] are kept.
type VoronoiNeighboursSettings struct {
	Min              int  `json:"minVoroNebs"`
	Max              int  `json:"maxVoroNebs"`
	FilteringEnabled bool `json:"filteringEnabled"`
}

func DefaultVoronoiNeighboursSettings() *VoronoiNeighboursSettings {
	return &VoronoiNeighboursSettings{Min: 0, Max: 999}
}

func (S *VoronoiNeighboursSettings) Kind() Kind { return VoronoiNeighbours }

func (S *VoronoiNeighboursSettings) Validate() error {
	if S.Min < 0 {
		return invalid(VoronoiNeighbours, "minVoroNebs", "must be non-negative, got %d", S.Min)
	}
	return checkRange(VoronoiNeighbours, "maxVoroNebs", float64(S.Min), float64(S.Max))
}

//VoronoiVolumeSettings computes the Voronoi volume of each visible atom.
//If FilteringEnabled, only atoms with a volume in [Min, Max] are kept.
type VoronoiVolumeSettings struct {
	Min              float64 `json:"minVoroVol"`
	Max              float64 `json:"maxVoroVol"`
	FilteringEnabled bool    `json:"filteringEnabled"`
}

func DefaultVoronoiVolumeSettings() *VoronoiVolumeSettings {
	return &VoronoiVolumeSettings{Min: 0, Max: 9999}
}

func (S *VoronoiVolumeSettings) Kind() Kind { return VoronoiVolume }

func (S *VoronoiVolumeSettings) Validate() error {
	if S.Min < 0 {
		return invalid(VoronoiVolume, "minVoroVol", "must be non-negative, got %v", S.Min)
	}
	return checkRange(VoronoiVolume, "maxVoroVol", S.Min, S.Max)
}

//BondOrderSettings computes Q4 and Q6 for the visible atoms, optionally averaged over
//the neighbours. Atoms can be filtered on either parameter.
type BondOrderSettings struct {
	MaxBondDistance float64 `json:"maxBondDistance"`
	LechnerDellago  bool    `json:"lechnerDellago"`
	FilterQ4        bool    `json:"filterQ4Enabled"`
	MinQ4           float64 `json:"minQ4"`
	MaxQ4           float64 `json:"maxQ4"`
	FilterQ6        bool    `json:"filterQ6Enabled"`
	MinQ6           float64 `json:"minQ6"`
	MaxQ6           float64 `json:"maxQ6"`
}

func DefaultBondOrderSettings() *BondOrderSettings {
	return &BondOrderSettings{MaxBondDistance: 4, MaxQ4: 99, MaxQ6: 99}
}

func (S *BondOrderSettings) Kind() Kind { return BondOrder }

func (S *BondOrderSettings) Validate() error {
	if !(S.MaxBondDistance > 0) {
		return invalid(BondOrder, "maxBondDistance", "must be positive, got %v", S.MaxBondDistance)
	}
	if err := checkRange(BondOrder, "maxQ4", S.MinQ4, S.MaxQ4); err != nil {
		return err
	}
	return checkRange(BondOrder, "maxQ6", S.MinQ6, S.MaxQ6)
}

//ClusterSettings groups the visible atoms in clusters of atoms closer than NeighbourRadius,
//and keeps the atoms in clusters with a size in [MinClusterSize, MaxClusterSize].
//A negative MaxClusterSize means no upper limit.
type ClusterSettings struct {
	NeighbourRadius float64 `json:"neighbourRadius"`
	MinClusterSize  int     `json:"minClusterSize"`
	MaxClusterSize  int     `json:"maxClusterSize"`
}

func DefaultClusterSettings() *ClusterSettings {
	return &ClusterSettings{NeighbourRadius: 5, MinClusterSize: 8, MaxClusterSize: -1}
}

func (S *ClusterSettings) Kind() Kind { return Cluster }

func (S *ClusterSettings) Validate() error {
	if !(S.NeighbourRadius > 0) {
		return invalid(Cluster, "neighbourRadius", "must be positive, got %v", S.NeighbourRadius)
	}
	if S.MinClusterSize < 1 {
		return invalid(Cluster, "minClusterSize", "must be at least 1, got %d", S.MinClusterSize)
	}
	if S.MaxClusterSize >= 0 && S.MaxClusterSize < S.MinClusterSize {
		return invalid(Cluster, "maxClusterSize", "smaller than the minimum (%d < %d)", S.MaxClusterSize, S.MinClusterSize)
	}
	return nil
}

//ACNASettings computes the structure of each visible atom with adaptive common neighbour
//analysis. If FilteringEnabled, only atoms with a structure in Visible are kept.
type ACNASettings struct {
	MaxBondDistance  float64         `json:"maxBondDistance"`
	FilteringEnabled bool            `json:"filteringEnabled"`
	Visible          map[string]bool `json:"structureVisibility"`
}

func DefaultACNASettings() *ACNASettings {
	S := &ACNASettings{MaxBondDistance: 5, Visible: make(map[string]bool)}
	for s := acna.Structure(0); s < acna.NumStructures; s++ {
		S.Visible[s.String()] = true
	}
	return S
}

func (S *ACNASettings) Kind() Kind { return ACNA }

func (S *ACNASettings) Validate() error {
	if !(S.MaxBondDistance > 0) {
		return invalid(ACNA, "maxBondDistance", "must be positive, got %v", S.MaxBondDistance)
	}
	for k := range S.Visible {
		if _, err := acna.ParseStructure(k); err != nil {
			return invalid(ACNA, "structureVisibility", "%v", err)
		}
	}
	return nil
}

//AtomIDSettings keeps the atoms whose ID is in the list. The list is a comma separated
//list of IDs and ranges, as in "1-10, 15, 20-22".
type AtomIDSettings struct {
	Filter string `json:"filterString"`
}

func DefaultAtomIDSettings() *AtomIDSettings { return &AtomIDSettings{} }
func (S *AtomIDSettings) Kind() Kind        { return AtomID }

func (S *AtomIDSettings) Validate() error {
	_, err := S.ranges()
	return err
}

//ranges parses the filter string.
func (S *AtomIDSettings) ranges() ([][2]int, error) {
	var ret [][2]int
	for _, f := range strings.Split(S.Filter, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(f, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, invalid(AtomID, "filterString", "can't parse %q", f)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, invalid(AtomID, "filterString", "can't parse %q", f)
			}
		}
		if b < a {
			return nil, invalid(AtomID, "filterString", "reversed range %q", f)
		}
		ret = append(ret, [2]int{a, b})
	}
	return ret, nil
}

//DisplacementSettings computes the (minimum image) displacement of each visible atom with
//respect to the same atom in the reference. If FilteringEnabled, only atoms with a displacement
//in [Min, Max] are kept. The reference and input must have the same number of atoms.
type DisplacementSettings struct {
	Min              float64 `json:"minDisplacement"`
	Max              float64 `json:"maxDisplacement"`
	FilteringEnabled bool    `json:"filteringEnabled"`
}

func DefaultDisplacementSettings() *DisplacementSettings {
	return &DisplacementSettings{Min: 1.2, Max: 1000, FilteringEnabled: true}
}

func (S *DisplacementSettings) Kind() Kind { return Displacement }

func (S *DisplacementSettings) Validate() error {
	if S.Min < 0 {
		return invalid(Displacement, "minDisplacement", "must be non-negative, got %v", S.Min)
	}
	return checkRange(Displacement, "maxDisplacement", S.Min, S.Max)
}

//ChargeSettings keeps the atoms with a charge in [Min, Max].
type ChargeSettings struct {
	Min float64 `json:"minCharge"`
	Max float64 `json:"maxCharge"`
}

func DefaultChargeSettings() *ChargeSettings { return &ChargeSettings{Min: -100, Max: 100} }
func (S *ChargeSettings) Kind() Kind        { return Charge }

func (S *ChargeSettings) Validate() error {
	return checkRange(Charge, "maxCharge", S.Min, S.Max)
}

//PointDefectsSettings classifies the input lattice against the reference.
//The visible set becomes the input atoms involved in the defects that are shown.
type PointDefectsSettings struct {
	VacancyRadius     float64            `json:"vacancyRadius"`
	SpeciesRadius     map[string]float64 `json:"specieRadius,omitempty"`
	ShowVacancies     bool               `json:"showVacancies"`
	ShowInterstitials bool               `json:"showInterstitials"`
	ShowAntisites     bool               `json:"showAntisites"`
	IdentifySplits    bool               `json:"identifySplitInts"`
	ShowSplits        bool               `json:"showSplitInterstitials"`
	SplitDistance     float64            `json:"splitDistance,omitempty"`
	ExcludeRef        []string           `json:"excludeRefSpecies,omitempty"`
	ExcludeInput      []string           `json:"excludeInputSpecies,omitempty"`
	FindClusters      bool               `json:"findClusters"`
	NeighbourRadius   float64            `json:"neighbourRadius"`
	MinClusterSize    int                `json:"minClusterSize"`
	MaxClusterSize    int                `json:"maxClusterSize"`
}

func DefaultPointDefectsSettings() *PointDefectsSettings {
	o := defects.DefaultOptions()
	return &PointDefectsSettings{
		VacancyRadius:     o.VacancyRadius,
		ShowVacancies:     o.FindVacancies,
		ShowInterstitials: o.FindInterstitials,
		ShowAntisites:     o.FindAntisites,
		IdentifySplits:    o.IdentifySplits,
		ShowSplits:        o.FindSplits,
		NeighbourRadius:   o.ClusterRadius,
		MinClusterSize:    o.MinClusterSize,
		MaxClusterSize:    o.MaxClusterSize,
	}
}

func (S *PointDefectsSettings) Kind() Kind { return PointDefects }

//options returns the classifier options corresponding to the settings.
func (S *PointDefectsSettings) options() *defects.Options {
	o := defects.DefaultOptions()
	o.VacancyRadius = S.VacancyRadius
	o.SpeciesRadius = S.SpeciesRadius
	o.FindVacancies = S.ShowVacancies
	o.FindInterstitials = S.ShowInterstitials
	o.FindAntisites = S.ShowAntisites
	o.IdentifySplits = S.IdentifySplits
	o.FindSplits = S.ShowSplits
	o.SplitDistance = S.SplitDistance
	o.ExcludeRef = S.ExcludeRef
	o.ExcludeInput = S.ExcludeInput
	o.FindClusters = S.FindClusters
	o.ClusterRadius = S.NeighbourRadius
	o.MinClusterSize = S.MinClusterSize
	o.MaxClusterSize = S.MaxClusterSize
	return o
}

func (S *PointDefectsSettings) Validate() error {
	if !(S.VacancyRadius > 0) {
		return invalid(PointDefects, "vacancyRadius", "must be positive, got %v", S.VacancyRadius)
	}
	for k, v := range S.SpeciesRadius {
		if !(v > 0) {
			return invalid(PointDefects, "specieRadius", "radius for %s must be positive, got %v", k, v)
		}
	}
	if S.SplitDistance < 0 {
		return invalid(PointDefects, "splitDistance", "must be non-negative, got %v", S.SplitDistance)
	}
	if S.FindClusters {
		if !(S.NeighbourRadius > 0) {
			return invalid(PointDefects, "neighbourRadius", "must be positive, got %v", S.NeighbourRadius)
		}
		if S.MinClusterSize < 1 {
			return invalid(PointDefects, "minClusterSize", "must be at least 1, got %d", S.MinClusterSize)
		}
		if S.MaxClusterSize >= 0 && S.MaxClusterSize < S.MinClusterSize {
			return invalid(PointDefects, "maxClusterSize", "smaller than the minimum (%d < %d)", S.MaxClusterSize, S.MinClusterSize)
		}
	}
	return nil
}

//ScalarRangeSettings keeps the atoms for which the scalar field Name is in [Min, Max].
//The field can belong to the input lattice or be computed by a previous stage.
type ScalarRangeSettings struct {
	Name string  `json:"scalarName"`
	Min  float64 `json:"minVal"`
	Max  float64 `json:"maxVal"`
}

func DefaultScalarRangeSettings() *ScalarRangeSettings {
	return &ScalarRangeSettings{Min: -10000, Max: 10000}
}

func (S *ScalarRangeSettings) Kind() Kind { return ScalarRange }

func (S *ScalarRangeSettings) Validate() error {
	if S.Name == "" {
		return invalid(ScalarRange, "scalarName", "no scalar given")
	}
	return checkRange(ScalarRange, "maxVal", S.Min, S.Max)
}

//DefaultSettings returns the default settings for the given kind.
func DefaultSettings(k Kind) (Settings, error) {
	switch k {
	case Species:
		return DefaultSpeciesSettings(), nil
	case CropBox:
		return DefaultCropBoxSettings(), nil
	case CropSphere:
		return DefaultCropSphereSettings(), nil
	case Slice:
		return DefaultSliceSettings(), nil
	case CoordinationNumber:
		return DefaultCoordinationNumberSettings(), nil
	case VoronoiNeighbours:
		return DefaultVoronoiNeighboursSettings(), nil
	case VoronoiVolume:
		return DefaultVoronoiVolumeSettings(), nil
	case BondOrder:
		return DefaultBondOrderSettings(), nil
	case Cluster:
		return DefaultClusterSettings(), nil
	case ACNA:
		return DefaultACNASettings(), nil
	case AtomID:
		return DefaultAtomIDSettings(), nil
	case Displacement:
		return DefaultDisplacementSettings(), nil
	case Charge:
		return DefaultChargeSettings(), nil
	case PointDefects:
		return DefaultPointDefectsSettings(), nil
	case ScalarRange:
		return DefaultScalarRangeSettings(), nil
	}
	return nil, atoman.NewError("unknown filter kind "+k.String(), "filtering.DefaultSettings", false)
}

//DecodeSettings returns the settings of the given kind, starting from the defaults and
//replacing the options present in the JSON object data. Unknown options are rejected,
//and the result is validated.
func DecodeSettings(k Kind, data []byte) (Settings, error) {
	S, err := DefaultSettings(k)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(S); err != nil {
		return nil, atoman.NewInvalidSettingsError(k.String(), "", "filtering.DecodeSettings", "%v", err)
	}
	if err := S.Validate(); err != nil {
		return nil, atoman.Decorate(err, "filtering.DecodeSettings")
	}
	return S, nil
}
