package field

import (
	"fmt"

	"github.com/ctessum/unit"
)

func MulDims(d ...unit.Dimensions) unit.Dimensions {
	u := make([]*unit.Unit, len(d))
	for i, dd := range d {
		u[i] = unit.New(1, dd)
	}
	if len(u) == 0 {
		return unit.Dimensions{}
	}
	return unit.Mul(u...).Dimensions()
}

func DivDims(num, den unit.Dimensions) unit.Dimensions {
	return unit.Div(unit.New(1, num), unit.New(1, den)).Dimensions()
}

// RootDims returns the dimensions of sqrt(d), which requires even powers
func RootDims(d unit.Dimensions) (r unit.Dimensions, err error) {
	r = make(unit.Dimensions, len(d))
	for key, pow := range d {
		if pow%2 != 0 {
			return nil, fmt.Errorf("square root of odd power dimensions %s", d.String())
		}
		if pow != 0 {
			r[key] = pow / 2
		}
	}
	return
}

// CheckDims returns an error naming the field when got does not match want
func CheckDims(name string, got, want unit.Dimensions) error {
	if err := unit.New(1, got).Check(want); err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	return nil
}
