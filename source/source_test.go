package source

import (
	"testing"

	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerm(t *testing.T) {
	tm := NewTerm("kSource", 2, types.DimKSource)
	tm.Sp[0], tm.Sp[1] = -30, -10
	tm.Su[0], tm.Su[1] = 60, 5
	assert.Equal(t, 2, tm.Len())
	assert.Equal(t, []float64{30, 10}, tm.SinkCoefficient())

	k := field.NewScalarFrom("k", []float64{2, 0.5}, types.DimVelocity2)
	s, err := tm.Evaluate("dragSource", k)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, s.Data, 1e-12)
	assert.True(t, s.Dims.Matches(types.DimKSource))

	_, err = tm.Evaluate("bad", field.NewScalar("k", 3, 0, types.DimVelocity2))
	assert.Error(t, err)

	assert.NoError(t, tm.Check(types.DimKSource))
	assert.Error(t, tm.Check(types.DimEpsilonSource))
	assert.Error(t, Term{Name: "empty"}.Check(types.DimKSource))
}
