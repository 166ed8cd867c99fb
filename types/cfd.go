package types

import (
	"fmt"
	"strings"
)

type BCFLAG uint8

// Boundary treatment applied at the six faces of the Cartesian domain. The
// value is what the ghost cell beyond the face holds relative to the adjacent
// interior cell.
const (
	BC_ZeroGradient BCFLAG = iota // ghost = interior
	BC_Extrapolated               // ghost = 2*interior - next interior
	BC_Wall                       // ghost = -interior, zero value on the face
)

var BCNameMap = map[string]BCFLAG{
	"zerogradient": BC_ZeroGradient,
	"neuman":       BC_ZeroGradient,
	"symmetry":     BC_ZeroGradient,
	"out":          BC_ZeroGradient,
	"outflow":      BC_ZeroGradient,
	"extrapolated": BC_Extrapolated,
	"far":          BC_Extrapolated,
	"in":           BC_Extrapolated,
	"inflow":       BC_Extrapolated,
	"wall":         BC_Wall,
	"noslip":       BC_Wall,
	"dirichlet":    BC_Wall,
}

func (bc BCFLAG) String() string {
	switch bc {
	case BC_ZeroGradient:
		return "zeroGradient"
	case BC_Extrapolated:
		return "extrapolated"
	case BC_Wall:
		return "wall"
	}
	return fmt.Sprintf("BCFLAG(%d)", uint8(bc))
}

func NewBCFLAG(label string) (bc BCFLAG, err error) {
	var ok bool
	if bc, ok = BCNameMap[strings.ToLower(label)]; !ok {
		err = fmt.Errorf("unknown boundary type %q", label)
	}
	return
}

// Face indexes the six faces of the Cartesian domain
type Face uint8

const (
	XMin Face = iota
	XMax
	YMin
	YMax
	ZMin
	ZMax
)

var FaceNames = [6]string{"x-", "x+", "y-", "y+", "z-", "z+"}

func NewFace(label string) (f Face, err error) {
	for i, name := range FaceNames {
		if name == label {
			return Face(i), nil
		}
	}
	err = fmt.Errorf("unknown domain face %q, want one of %v", label, FaceNames)
	return
}
