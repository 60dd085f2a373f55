package filtering

import (
	"fmt"
	"strings"
)

//Kind identifies the type of a filter stage.
type Kind int

const (
	Species Kind = iota
	CropBox
	CropSphere
	Slice
	CoordinationNumber
	VoronoiNeighbours
	VoronoiVolume
	BondOrder
	Cluster
	ACNA
	AtomID
	Displacement
	Charge
	PointDefects
	ScalarRange
	numKinds
)

var kindNames = [numKinds]string{
	"Species",
	"Crop box",
	"Crop sphere",
	"Slice",
	"Coordination number",
	"Voronoi neighbours",
	"Voronoi volume",
	"Bond order",
	"Cluster",
	"ACNA",
	"Atom ID",
	"Displacement",
	"Charge",
	"Point defects",
	"Scalar range",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

//Kinds returns all the stage kinds, in order.
func Kinds() []Kind {
	ret := make([]Kind, numKinds)
	for i := range ret {
		ret[i] = Kind(i)
	}
	return ret
}

//ParseKind returns the Kind with the given name (case insensitive).
func ParseKind(name string) (Kind, error) {
	for i, v := range kindNames {
		if strings.EqualFold(v, name) {
			return Kind(i), nil
		}
	}
	return -1, fmt.Errorf("filtering: unknown filter %q", name)
}

//defectCompatible tells which stages can be used together with the Point defects stage.
func defectCompatible(k Kind) bool {
	return k == CropBox || k == Slice
}
