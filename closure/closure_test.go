package closure

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/notargets/mpturb/field"
	"github.com/notargets/mpturb/fieldio"
	"github.com/notargets/mpturb/mesh"
	"github.com/notargets/mpturb/source"
	"github.com/notargets/mpturb/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const nCells = 4

type particles struct {
	alpha, d, rho *field.Scalar
}

func (p *particles) Name() string         { return "particles" }
func (p *particles) Alpha() *field.Scalar { return p.alpha }
func (p *particles) D() *field.Scalar     { return p.d }
func (p *particles) Rho() *field.Scalar   { return p.rho }

type gasPhase struct {
	alpha *field.Scalar
}

func (p *gasPhase) Name() string         { return "gas" }
func (p *gasPhase) Alpha() *field.Scalar { return p.alpha }
func (p *gasPhase) D() *field.Scalar     { return nil }
func (p *gasPhase) Rho() *field.Scalar   { return nil }

type mockBase struct {
	mock.Mock
	k, eps, nut, nu *field.Scalar
}

func newMockBase() *mockBase {
	return &mockBase{
		k:   field.NewScalar("k", nCells, 1, types.DimVelocity2),
		eps: field.NewScalar("epsilon", nCells, 10, types.DimDissipation),
		nut: field.NewScalar("nut", nCells, 1e-3, types.DimKinematicViscosity),
		nu:  field.NewScalar("nu", nCells, 1e-5, types.DimKinematicViscosity),
	}
}

func (m *mockBase) Correct(ctx context.Context, coupling source.Coupling) error {
	return m.Called(ctx, coupling).Error(0)
}
func (m *mockBase) K() *field.Scalar       { return m.k }
func (m *mockBase) Epsilon() *field.Scalar { return m.eps }
func (m *mockBase) Nut() *field.Scalar     { return m.nut }
func (m *mockBase) Nu() *field.Scalar      { return m.nu }

type fixedClock struct {
	time string
	dt   float64
}

func (c fixedClock) TimeName() string { return c.time }
func (c fixedClock) DeltaT() float64  { return c.dt }

type testCase struct {
	reg   *field.Registry
	grid  *mesh.Grid
	store *fieldio.Store
	base  *mockBase
	clock fixedClock
	Kd    *field.Scalar
	Ur    *field.Vector
	Theta *field.Scalar
	p     *particles
}

// newTestCase registers alpha=0.3, Kd=50, dp=1e-4, rhoP=2500, Ur=(2,0,0)
// and Theta=0.01 in every cell, plus uniform gas fields.
func newTestCase(t *testing.T) (tc *testCase) {
	grid, err := mesh.NewGrid(nCells, 1, 1, 1, 0.1, 0.1)
	require.NoError(t, err)
	tc = &testCase{
		reg:   field.NewRegistry(),
		grid:  grid,
		store: fieldio.NewStore(t.TempDir()),
		base:  newMockBase(),
		clock: fixedClock{time: "0.001", dt: 1e-3},
		Kd:    field.NewScalar("Kd.particlesInGas", nCells, 50, types.DimDrag),
		Ur:    field.NewVector("Ur.particlesInGas", nCells, [3]float64{2, 0, 0}, types.DimVelocity),
		Theta: field.NewScalar("Theta.particles", nCells, 0.01, types.DimVelocity2),
		p: &particles{
			alpha: field.NewScalar("alpha.particles", nCells, 0.3, types.DimLess),
			d:     field.NewScalar("d.particles", nCells, 1e-4, types.DimLength),
			rho:   field.NewScalar("rho.particles", nCells, 2500, types.DimDensity),
		},
	}
	tc.store.Log = quietLog()
	tc.reg.AddPhase(tc.p).AddScalar(tc.Kd, tc.Theta).AddVector(tc.Ur)
	tc.reg.AddPhase(&gasPhase{alpha: field.NewScalar("alpha.gas", nCells, 0.7, types.DimLess)})
	tc.reg.AddScalar(
		field.NewScalar("thermo:rho.gas", nCells, 1.2, types.DimDensity),
		field.NewScalar("Dk.gas", nCells, 1e-3, types.DimKinematicViscosity),
	)
	tc.reg.AddVector(
		field.NewVector("alphaRhoPhi.gas", nCells, [3]float64{0.84, 0, 0}, types.DimMassFlux),
		field.NewVector("U.gas", nCells, [3]float64{1, 0, 0}, types.DimVelocity),
	)
	return
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

func (tc *testCase) deps() Dependencies {
	return Dependencies{
		Fields:   tc.reg,
		Base:     tc.base,
		Calculus: tc.grid,
		Store:    tc.store,
		Clock:    tc.clock,
		Log:      quietLog(),
	}
}

func kochKpg(Kd, dp, ur2, rhoP, theta float64) float64 {
	return Kd * dp * ur2 / rhoP / (4 * math.Sqrt(math.Pi*theta))
}

func TestEstimators(t *testing.T) {
	tc := newTestCase(t)
	in := EstimatorInputs{Kd: tc.Kd, Ur: tc.Ur, Theta: tc.Theta, Dp: tc.p.d, RhoP: tc.p.rho, K: tc.base.k}
	{ // Koch relation
		kpg, err := (&Koch{ThetaFloor: DefaultThetaFloor}).Estimate(in)
		require.NoError(t, err)
		assert.True(t, kpg.Dims.Matches(types.DimVelocity2))
		for _, val := range kpg.Data {
			assert.InEpsilon(t, kochKpg(50, 1e-4, 4, 2500, 0.01), val, 1e-12)
		}
	}
	{ // Vanishing granular temperature stays finite
		in0 := in
		in0.Theta = field.NewScalar("Theta.particles", nCells, 0, types.DimVelocity2)
		kpg, err := (&Koch{ThetaFloor: DefaultThetaFloor}).Estimate(in0)
		require.NoError(t, err)
		for _, val := range kpg.Data {
			assert.False(t, math.IsInf(val, 0) || math.IsNaN(val))
			assert.InEpsilon(t, kochKpg(50, 1e-4, 4, 2500, DefaultThetaFloor), val, 1e-12)
		}
	}
	{ // Isotropic correlation
		in.K = field.NewScalar("k", nCells, 4, types.DimVelocity2)
		in.Theta = field.NewScalar("Theta.particles", nCells, 1, types.DimVelocity2)
		kpg, err := (&Isotropic{Csf: 0.5, ThetaFloor: DefaultThetaFloor, KFloor: DefaultKFloor}).Estimate(in)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 1, 1, 1}, kpg.Data, 1e-14)
		assert.True(t, kpg.Dims.Matches(types.DimVelocity2))
	}
	{ // Missing inputs
		_, err := (&Koch{}).Estimate(EstimatorInputs{})
		assert.Error(t, err)
		_, err = (&Isotropic{}).Estimate(EstimatorInputs{})
		assert.Error(t, err)
	}
	{ // Selection by name
		est, err := NewEstimator(Config{Estimator: EstimatorIsotropic}.WithDefaults())
		require.NoError(t, err)
		assert.Equal(t, EstimatorIsotropic, est.Name())
		_, err = NewEstimator(Config{Estimator: "bogus"})
		var cerr *ConfigError
		assert.True(t, errors.As(err, &cerr))
		assert.Equal(t, []string{EstimatorIsotropic, EstimatorKoch}, EstimatorNames())
	}
}

func TestDragSources(t *testing.T) {
	tc := newTestCase(t)
	cfg := Config{ParticlePhase: "particles"}.WithDefaults()
	kpg := field.NewScalar("Kpg.gas", nCells, 4, types.DimVelocity2)
	d := NewDragSourceBuilder(cfg, tc.reg, tc.base, kpg)

	ks, err := d.KSource()
	require.NoError(t, err)
	assert.True(t, ks.Dims.Matches(types.DimKSource))
	for i := 0; i < nCells; i++ {
		assert.InDelta(t, 60, ks.Su[i], 1e-12)
		assert.InDelta(t, -30, ks.Sp[i], 1e-12)
	}
	assert.InDeltaSlice(t, []float64{30, 30, 30, 30}, ks.SinkCoefficient(), 1e-12)
	{ // The k source vanishes at k = Kpg/2
		s, err := ks.Evaluate("dragSource", field.NewScalar("k", nCells, 2, types.DimVelocity2))
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0, 0, 0, 0}, s.Data, 1e-12)
	}

	tc.base.k.Data[0], tc.base.k.Data[1] = 0, 1
	es, err := d.EpsilonSource()
	require.NoError(t, err)
	assert.True(t, es.Dims.Matches(types.DimEpsilonSource))
	assert.InEpsilon(t, 1.2*0.3*50*(4/1e-15-2), es.Sp[0], 1e-12)
	assert.InEpsilon(t, 1.2*0.3*50*(4/1.-2), es.Sp[1], 1e-12)
	assert.Greater(t, es.Sp[0], es.Sp[1])
	assert.Equal(t, []float64{0, 0, 0, 0}, es.Su)

	{ // A missing particle phase is a configuration error
		bad := NewDragSourceBuilder(Config{ParticlePhase: "dust"}.WithDefaults(), tc.reg, tc.base, kpg)
		_, err := bad.KSource()
		var cerr *ConfigError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "particlePhase", cerr.Key)
		assert.True(t, errors.Is(err, field.ErrNotFound))
		_, err = bad.EpsilonSource()
		assert.True(t, errors.As(err, &cerr))
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{ParticlePhase: "particles"}.WithDefaults()
	assert.Equal(t, Config{
		ParticlePhase: "particles",
		GasPhase:      "gas",
		DragPair:      "particlesInGas",
		CEpsilon3:     1.2,
		Estimator:     EstimatorKoch,
		Csf:           1,
		ThetaFloor:    1e-15,
		KFloor:        1e-15,
	}, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "Kpg.gas", cfg.KpgName())
	assert.Equal(t, "Ur.particlesInGas", cfg.SlipName())

	for _, tt := range []struct {
		cfg Config
		key string
	}{
		{Config{}, "particlePhase"},
		{Config{ParticlePhase: "gas"}, "particlePhase"},
		{Config{ParticlePhase: "particles", CEpsilon3: -1}, "CEpsilon3"},
		{Config{ParticlePhase: "particles", KFloor: math.NaN()}, "KFloor"},
		{Config{ParticlePhase: "particles", Estimator: "bogus"}, "estimator"},
	} {
		err := tt.cfg.WithDefaults().Validate()
		var cerr *ConfigError
		require.True(t, errors.As(err, &cerr), "%+v", tt.cfg)
		assert.Equal(t, tt.key, cerr.Key)
	}
}

func TestControllerSetup(t *testing.T) {
	tc := newTestCase(t)
	{ // Missing required field
		deps := tc.deps()
		deps.Fields = field.NewRegistry().AddPhase(tc.p)
		_, err := New(Config{ParticlePhase: "particles"}, deps)
		var cerr *ConfigError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "dragPair", cerr.Key)
	}
	{ // Wrong dimensions
		deps := tc.deps()
		deps.Fields = field.NewRegistry().AddPhase(tc.p).AddVector(tc.Ur).AddScalar(
			field.NewScalar("Kd.particlesInGas", nCells, 50, types.DimRate), tc.Theta)
		_, err := New(Config{ParticlePhase: "particles"}, deps)
		var cerr *ConfigError
		require.True(t, errors.As(err, &cerr))
	}
	{ // Diagnostic mode needs the gas fields up front
		deps := tc.deps()
		deps.Fields = field.NewRegistry().AddPhase(tc.p).AddVector(tc.Ur).AddScalar(tc.Kd, tc.Theta)
		_, err := New(Config{ParticlePhase: "particles", WriteFields: true}, deps)
		var cerr *ConfigError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "writeFields", cerr.Key)
		c, err := New(Config{ParticlePhase: "particles"}, deps)
		require.NoError(t, err)
		assert.Equal(t, Idle, c.State())
	}
	{
		deps := tc.deps()
		deps.Clock = nil
		_, err := New(Config{ParticlePhase: "particles"}, deps)
		assert.Error(t, err)
	}
}

func TestControllerRestart(t *testing.T) {
	tc := newTestCase(t)
	c, err := New(Config{ParticlePhase: "particles"}, tc.deps())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, c.Kpg().Data)
	assert.Equal(t, "Kpg.gas", c.Kpg().Name)

	require.NoError(t, tc.store.Write(tc.clock.time, field.NewScalar("Kpg.gas", nCells, 7, types.DimVelocity2), true))
	c, err = New(Config{ParticlePhase: "particles"}, tc.deps())
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 7, 7, 7}, c.Kpg().Data)

	require.NoError(t, c.CorrectKpg())
	require.NoError(t, c.Write("0.002"))
	restart, err := tc.store.IsRestart("0.002", "Kpg.gas")
	require.NoError(t, err)
	assert.True(t, restart)
	back, found, err := tc.store.ReadScalar("0.002", "Kpg.gas", nCells)
	require.NoError(t, err)
	require.True(t, found)
	assert.InDeltaSlice(t, c.Kpg().Data, back.Data, 1e-15)
}

func TestControllerCorrect(t *testing.T) {
	tc := newTestCase(t)
	for i := range tc.Ur.Data {
		tc.Ur.Data[i] = 0
	}
	c, err := New(Config{ParticlePhase: "particles"}, tc.deps())
	require.NoError(t, err)

	var (
		seen     []float64
		statesIn []State
	)
	tc.base.On("Correct", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		statesIn = append(statesIn, c.State())
		ks, err := args.Get(1).(source.Coupling).KSource()
		require.NoError(t, err)
		seen = append(seen, ks.Su[0])
	})

	{ // Refresh is idempotent
		require.NoError(t, c.CorrectKpg())
		first := append([]float64{}, c.Kpg().Data...)
		require.NoError(t, c.CorrectKpg())
		assert.Equal(t, first, c.Kpg().Data)
	}

	require.NoError(t, c.Correct(context.Background()))
	assert.Equal(t, 0., seen[0])

	// A changed relative velocity is seen by the sources of the same step
	for i := 0; i < nCells; i++ {
		tc.Ur.Set(i, [3]float64{2, 0, 0})
	}
	require.NoError(t, c.Correct(context.Background()))
	kpg := kochKpg(50, 1e-4, 4, 2500, 0.01)
	assert.InEpsilon(t, 0.3*50*kpg, seen[1], 1e-12)
	assert.Equal(t, []State{BaseCorrect, BaseCorrect}, statesIn)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 2, c.Step())
	tc.base.AssertNumberOfCalls(t, "Correct", 2)

	// Nothing but restart output is written outside diagnostic mode
	names, _ := tc.store.Fields(tc.clock.time)
	assert.Empty(t, names)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Correct(ctx), context.Canceled)
	tc.base.AssertNumberOfCalls(t, "Correct", 2)
}

func TestControllerBaseFailure(t *testing.T) {
	tc := newTestCase(t)
	c, err := New(Config{ParticlePhase: "particles", WriteFields: true}, tc.deps())
	require.NoError(t, err)
	boom := errors.New("diverged")
	tc.base.On("Correct", mock.Anything, mock.Anything).Return(boom)
	err = c.Correct(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrDiagnosticHalt))
	assert.Equal(t, Idle, c.State())
	names, _ := tc.store.Fields(tc.clock.time)
	assert.Empty(t, names)
}

func TestDiagnosticBudget(t *testing.T) {
	tc := newTestCase(t)
	c, err := New(Config{ParticlePhase: "particles", WriteFields: true}, tc.deps())
	require.NoError(t, err)
	tc.base.k.StoreOldTime()
	tc.base.On("Correct", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		for i := range tc.base.k.Data {
			tc.base.k.Data[i] = 2
		}
	})

	err = c.Correct(context.Background())
	require.ErrorIs(t, err, ErrDiagnosticHalt)
	var halt *HaltError
	require.True(t, errors.As(err, &halt))
	assert.Equal(t, BudgetFieldNames, halt.Fields)
	assert.Equal(t, tc.clock.time, halt.Time)
	assert.Equal(t, DiagnosticEmit, c.State())

	names, err := tc.store.Fields(tc.clock.time)
	require.NoError(t, err)
	assert.ElementsMatch(t, BudgetFieldNames, names)
	for _, name := range names {
		restart, err := tc.store.IsRestart(tc.clock.time, name)
		require.NoError(t, err)
		assert.False(t, restart, name)
	}

	read := func(name string) []float64 {
		f, found, err := tc.store.ReadScalar(tc.clock.time, name, nCells)
		require.NoError(t, err)
		require.True(t, found, name)
		return f.Data
	}
	// Uniform fields: no convection, production or transport
	assert.InDeltaSlice(t, []float64{840, 840, 840, 840}, read("ddt"), 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0}, read("div"), 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0}, read("production"), 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0}, read("transport"), 1e-12)
	assert.InDeltaSlice(t, []float64{7, 7, 7, 7}, read("dissipation"), 1e-12)
	assert.InDeltaSlice(t, []float64{100, 100, 100, 100}, read("nuRatio"), 1e-9)
	kpg := kochKpg(50, 1e-4, 4, 2500, 0.01)
	drag := -2*0.3*50*2 + 0.3*50*kpg
	assert.InDeltaSlice(t, []float64{drag, drag, drag, drag}, read("dragSource"), 1e-9)

	assert.ErrorIs(t, c.Correct(context.Background()), ErrTerminated)
	tc.base.AssertNumberOfCalls(t, "Correct", 1)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CorrelationRefresh", CorrelationRefresh.String())
	assert.Equal(t, "DiagnosticEmit", DiagnosticEmit.String())
	assert.Equal(t, "State(9)", State(9).String())
	err := &ConfigError{Key: "Kd", Reason: "lookup failed", Err: field.ErrNotFound}
	assert.Contains(t, err.Error(), "lookup failed")
	assert.ErrorIs(t, err, field.ErrNotFound)
}

// Shear U = (3y, 0, 0) and k = y^2 on a column of cells along y
func TestBudgetShear(t *testing.T) {
	const n = 8
	grid, err := mesh.NewGrid(1, n, 1, 0.1, 1, 0.1)
	require.NoError(t, err)
	for f := types.XMin; f <= types.ZMax; f++ {
		grid.SetBC(f, types.BC_Extrapolated)
	}
	var (
		U   = field.NewVector("U.gas", n, [3]float64{}, types.DimVelocity)
		k   = field.NewScalar("k", n, 0, types.DimVelocity2)
		reg = field.NewRegistry()
	)
	for c := 0; c < n; c++ {
		y := grid.Centre(c)[1]
		U.Set(c, [3]float64{3 * y, 0, 0})
		k.Data[c] = y * y
	}
	reg.AddPhase(&gasPhase{alpha: field.NewScalar("alpha.gas", n, 0.7, types.DimLess)})
	reg.AddScalar(
		field.NewScalar("thermo:rho.gas", n, 1.2, types.DimDensity),
		field.NewScalar("Dk.gas", n, 1e-3, types.DimKinematicViscosity),
	)
	reg.AddVector(U, field.NewVector("alphaRhoPhi.gas", n, [3]float64{0, 0.84, 0}, types.DimMassFlux))
	base := &mockBase{
		k:   k,
		eps: field.NewScalar("epsilon", n, 10, types.DimDissipation),
		nut: field.NewScalar("nut", n, 1e-3, types.DimKinematicViscosity),
		nu:  field.NewScalar("nu", n, 1e-5, types.DimKinematicViscosity),
	}

	b := NewDiagnosticBudgetEmitter(Config{ParticlePhase: "particles"}.WithDefaults(), reg, grid, nil, quietLog())
	terms, err := b.Compute(base, source.NewTerm("kSource", n, types.DimKSource), 1e-3)
	require.NoError(t, err)
	require.Len(t, terms, len(BudgetFieldNames))
	byName := make(map[string]*field.Scalar)
	for _, f := range terms {
		byName[f.Name] = f
	}
	for _, name := range []string{"div", "production", "transport"} {
		assert.True(t, byName[name].Dims.Matches(types.DimKSource), name)
	}

	// rho nut (dU/dy) (alpha dU/dy), exact for a linear profile
	for c := 0; c < n; c++ {
		assert.InDelta(t, 1.2*1e-3*3*2.1, byName["production"].Data[c], 1e-12, "cell %d", c)
	}
	// Convection by the y mass flux is 0.84 dk/dy = 1.68 y away from the walls
	for c := 1; c < n-1; c++ {
		assert.InDelta(t, 1.68*grid.Centre(c)[1], byName["div"].Data[c], 1e-12, "cell %d", c)
	}
	// Diffusion of a quadratic is 2 alpha rho Dk two cells in from the walls
	for c := 2; c < n-2; c++ {
		assert.InDelta(t, 2*0.7*1.2*1e-3, byName["transport"].Data[c], 1e-12, "cell %d", c)
	}
	assert.InDeltaSlice(t, make([]float64, n), byName["ddt"].Data, 1e-12)
}
