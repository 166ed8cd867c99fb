package mesh

import (
	"testing"

	"github.com/ctessum/unit"
	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearGrid(t *testing.T) (g *Grid, s *field.Scalar) {
	var err error
	g, err = NewGrid(5, 4, 1, 1, 2, 0.1)
	require.NoError(t, err)
	s = field.NewScalar("phi", g.NCells(), 0, types.DimVelocity2)
	for c := 0; c < g.NCells(); c++ {
		x := g.Centre(c)
		s.Data[c] = 3*x[0] - 2*x[1]
	}
	return
}

func TestGridGeometry(t *testing.T) {
	_, err := NewGrid(0, 1, 1, 1, 1, 1)
	assert.Error(t, err)
	_, err = NewGrid(1, 1, 1, 1, -1, 1)
	assert.Error(t, err)

	g, err := NewGrid(3, 2, 2, 3, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 12, g.NCells())
	assert.Equal(t, 1., g.Volume())
	for c := 0; c < g.NCells(); c++ {
		ijk := g.IJK(c)
		assert.Equal(t, c, g.Index(ijk[0], ijk[1], ijk[2]))
	}
	assert.Equal(t, [3]float64{2.5, 1.5, 0.5}, g.Centre(g.Index(2, 1, 0)))
	// 2*2*2 x-faces + 3*1*2 y-faces + 3*2*1 z-faces
	assert.Len(t, g.Connections(), 8+6+6)
	assert.Len(t, g.BoundaryCells(types.XMax), 4)
	g1, _ := NewGrid(3, 2, 1, 3, 2, 1)
	assert.Empty(t, g1.BoundaryCells(types.ZMin))
}

func TestGradient(t *testing.T) {
	g, s := linearGrid(t)
	{ // Extrapolated boundaries reproduce a linear field exactly
		for f := types.XMin; f <= types.ZMax; f++ {
			g.SetBC(f, types.BC_Extrapolated)
		}
		grad, err := g.Grad(s)
		require.NoError(t, err)
		for c := 0; c < g.NCells(); c++ {
			v := grad.At(c)
			assert.InDelta(t, 3., v[0], 1e-12)
			assert.InDelta(t, -2., v[1], 1e-12)
			assert.Equal(t, 0., v[2])
		}
		assert.True(t, grad.Dims.Matches(unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -2}))
	}
	{ // Zero gradient halves the boundary-cell slope
		g.SetBC(types.XMin, types.BC_ZeroGradient)
		grad, err := g.Grad(s)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, grad.At(g.Index(0, 1, 0))[0], 1e-12)
		assert.InDelta(t, 3., grad.At(g.Index(2, 1, 0))[0], 1e-12)
	}
	_, err := g.Grad(field.NewScalar("short", 3, 0, types.DimLess))
	assert.Error(t, err)
}

func TestGradVectorAndDiv(t *testing.T) {
	g, err := NewGrid(4, 4, 1, 1, 1, 1)
	require.NoError(t, err)
	for f := types.XMin; f <= types.ZMax; f++ {
		g.SetBC(f, types.BC_Extrapolated)
	}
	U := field.NewVector("U", g.NCells(), [3]float64{}, types.DimVelocity)
	for c := 0; c < g.NCells(); c++ {
		x := g.Centre(c)
		U.Set(c, [3]float64{5 * x[1], 2 * x[0], 0}) // u = 5y, v = 2x
	}
	T, err := g.GradVector(U)
	require.NoError(t, err)
	c := g.Index(1, 2, 0)
	assert.InDelta(t, 0., T.At(c, 0, 0), 1e-12)
	assert.InDelta(t, 2., T.At(c, 0, 1), 1e-12, "d v / d x")
	assert.InDelta(t, 5., T.At(c, 1, 0), 1e-12, "d u / d y")
	assert.True(t, T.Dims.Matches(types.DimRate))

	U2 := field.NewVector("U2", g.NCells(), [3]float64{}, types.DimVelocity)
	for c := 0; c < g.NCells(); c++ {
		x := g.Centre(c)
		U2.Set(c, [3]float64{x[0], 3 * x[1], 7})
	}
	div, err := g.Div(U2)
	require.NoError(t, err)
	for c := 0; c < g.NCells(); c++ {
		assert.InDelta(t, 4., div.Data[c], 1e-12)
	}
	k := field.NewScalar("k", g.NCells(), 2, types.DimVelocity2)
	dk, err := g.DivFlux(U2, k)
	require.NoError(t, err)
	assert.InDelta(t, 8., dk.Data[5], 1e-12)
}

func TestDdt(t *testing.T) {
	g, err := NewGrid(2, 1, 1, 1, 1, 1)
	require.NoError(t, err)
	alpha := field.NewScalar("alpha", 2, 0.5, types.DimLess)
	rho := field.NewScalar("rho", 2, 2, types.DimDensity)
	k := field.NewScalar("k", 2, 1, types.DimVelocity2)
	for _, f := range []*field.Scalar{alpha, rho, k} {
		f.StoreOldTime()
	}
	k.Data[0] = 3
	r, err := g.Ddt(0.5, alpha, rho, k)
	require.NoError(t, err)
	assert.InDelta(t, (0.5*2*3-0.5*2*1)/0.5, r.Data[0], 1e-14)
	assert.Equal(t, 0., r.Data[1])
	assert.True(t, r.Dims.Matches(types.DimKSource))
	_, err = g.Ddt(0, k)
	assert.Error(t, err)
}

func TestCourantNumber(t *testing.T) {
	g, err := NewGrid(10, 1, 1, 1, 1, 1)
	require.NoError(t, err)
	U := field.NewVector("U", g.NCells(), [3]float64{10, 50, 0}, types.DimVelocity)
	mean, max := g.CourantNumber(U, 1e-3)
	assert.InDelta(t, 0.1, max, 1e-14) // y is unresolved
	assert.InDelta(t, 0.1, mean, 1e-14)
}
