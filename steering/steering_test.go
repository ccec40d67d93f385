package steering

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/hvz/physics"
	"github.com/lixenwraith/hvz/vmath"
)

func testProfile() *Profile {
	p := DefaultPreyProfile()
	p.FleeRadius = 5
	p.EvadeRadius = 12
	return &p
}

func newTestAgent(t *testing.T, role Role, pos vmath.Vec3, profile *Profile) *Agent {
	t.Helper()
	body, err := physics.NewKinetic(pos, 1, 5, 0.5, 0)
	require.NoError(t, err)
	a, err := NewAgent(AgentID(1), role, body, profile)
	require.NoError(t, err)
	return a
}

func TestNewAgentRejectsInvalid(t *testing.T) {
	body, err := physics.NewKinetic(vmath.Vec3{}, 1, 5, 0.5, 0)
	require.NoError(t, err)

	_, err = NewAgent(1, RoleNone, body, testProfile())
	assert.Equal(t, ErrInvalidRole, errors.Cause(err))

	_, err = NewAgent(1, RolePrey, body, nil)
	assert.Equal(t, ErrInvalidProfile, errors.Cause(err))

	body.Mass = 0
	_, err = NewAgent(1, RolePrey, body, testProfile())
	assert.Equal(t, physics.ErrInvalidMass, errors.Cause(err))
}

// TestSeekConvergence verifies a resting agent fed Seek closes on a stationary target every step
func TestSeekConvergence(t *testing.T) {
	a := newTestAgent(t, RoleHunter, vmath.Vec3{}, testProfile())
	target := vmath.Vec3{20, 0, -7}
	const dt = 0.1

	dist := vmath.V3Distance(a.Position, target)
	for i := 0; dist > physics.StoppingTravel(a.MaxSpeed, dt, 1); i++ {
		require.Less(t, i, 1000, "seek did not converge")

		a.ApplyForce(a.Seek(target))
		a.Integrate(dt, 1)

		next := vmath.V3Distance(a.Position, target)
		require.Less(t, next, dist, "distance must strictly decrease (step %d)", i)
		dist = next
	}
}

// TestFleeSeekDuality verifies Flee is the exact negation of the direction-only seek force
func TestFleeSeekDuality(t *testing.T) {
	a := newTestAgent(t, RolePrey, vmath.Vec3{1, 0, 1}, testProfile())
	a.Velocity = vmath.Vec3{1, 0, 2}
	target := vmath.Vec3{4, 0, 5}

	directionOnly := vmath.V3Normalize(target.Sub(a.Position)).Mul(a.MaxSpeed).Sub(a.Velocity)
	assert.Equal(t, directionOnly.Mul(-1), a.Flee(target))

	seek, flee := a.Seek(target), a.Flee(target)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, -seek[i], flee[i], 1e-9)
	}
}

func TestSeekAtTargetIsBraking(t *testing.T) {
	a := newTestAgent(t, RolePrey, vmath.Vec3{2, 0, 2}, testProfile())
	a.Velocity = vmath.Vec3{1, 0, 0}
	f := a.Seek(a.Position)
	assert.Equal(t, vmath.Vec3{-1, 0, 0}, f)
	assert.True(t, vmath.V3Finite(a.Flee(a.Position)))
}

func TestPursueUsesPrediction(t *testing.T) {
	p := testProfile()
	p.LookAhead = 2
	hunter := newTestAgent(t, RoleHunter, vmath.Vec3{}, p)
	prey := newTestAgent(t, RolePrey, vmath.Vec3{10, 0, 0}, p)
	prey.Velocity = vmath.Vec3{0, 0, 3}

	assert.Equal(t, vmath.Vec3{10, 0, 6}, hunter.Predict(prey))
	assert.Equal(t, hunter.Seek(vmath.Vec3{10, 0, 6}), hunter.Pursue(prey))
	assert.Equal(t, hunter.Flee(vmath.Vec3{10, 0, 6}), hunter.Evade(prey))
}

// TestWanderRerollGate verifies the wander heading changes at most once per interval
func TestWanderRerollGate(t *testing.T) {
	a := newTestAgent(t, RolePrey, vmath.Vec3{}, testProfile())
	rng := vmath.NewFastRand(99)

	a.Wander(0, rng)
	first := a.WanderAngle()

	a.Wander(0.4, rng)
	a.Wander(0.99, rng)
	assert.Equal(t, first, a.WanderAngle())

	a.Wander(1.0, rng)
	assert.NotEqual(t, first, a.WanderAngle())

	f := a.Wander(1.5, rng)
	assert.True(t, vmath.V3Finite(f))
}

func headingAgent(t *testing.T) *Agent {
	a := newTestAgent(t, RolePrey, vmath.Vec3{}, testProfile())
	a.Velocity = vmath.Vec3{5, 0, 0}
	a.Direction = vmath.Vec3{1, 0, 0}
	return a
}

// TestObstacleAvoidanceIgnoresBehind verifies obstacles behind the agent never produce force
func TestObstacleAvoidanceIgnoresBehind(t *testing.T) {
	a := headingAgent(t)
	for _, x := range []float64{-0.1, -2, -7, -100} {
		o, err := NewObstacle(1, vmath.Vec3{x, 0, 0.1}, 3)
		require.NoError(t, err)
		assert.Equal(t, vmath.Vec3{}, a.ObstacleAvoidance(o), "x=%v", x)
	}
}

func TestObstacleAvoidanceSteersAway(t *testing.T) {
	a := headingAgent(t)

	left, err := NewObstacle(1, vmath.Vec3{3, 0, 0.2}, 1)
	require.NoError(t, err)
	f := a.ObstacleAvoidance(left)
	assert.Less(t, f.Z(), 0.0, "obstacle at +z must push toward -z")

	right, err := NewObstacle(2, vmath.Vec3{3, 0, -0.2}, 1)
	require.NoError(t, err)
	f = a.ObstacleAvoidance(right)
	assert.Greater(t, f.Z(), 0.0, "obstacle at -z must push toward +z")
}

func TestObstacleAvoidanceExclusions(t *testing.T) {
	a := headingAgent(t)

	far, _ := NewObstacle(1, vmath.Vec3{20, 0, 0}, 1)
	assert.Equal(t, vmath.Vec3{}, a.ObstacleAvoidance(far))

	clear, _ := NewObstacle(2, vmath.Vec3{3, 0, 2}, 1)
	assert.Equal(t, vmath.Vec3{}, a.ObstacleAvoidance(clear))

	a.Direction = vmath.Vec3{}
	ahead, _ := NewObstacle(3, vmath.Vec3{3, 0, 0}, 1)
	assert.Equal(t, vmath.Vec3{}, a.ObstacleAvoidance(ahead), "no heading means nothing is ahead")
}

func TestAvoidObstaclesSetsFlag(t *testing.T) {
	a := headingAgent(t)
	field := NewObstacleField()

	assert.Equal(t, vmath.Vec3{}, a.AvoidObstacles(field))
	assert.False(t, a.Avoiding)

	o, _ := NewObstacle(1, vmath.Vec3{3, 0, 0.2}, 1)
	field.Insert(o)
	f := a.AvoidObstacles(field)
	assert.True(t, a.Avoiding)
	assert.Equal(t, a.ObstacleAvoidance(o), f)
}

func TestAvoidEdge(t *testing.T) {
	a := newTestAgent(t, RolePrey, vmath.Vec3{10, 0, 10}, testProfile())
	assert.Equal(t, vmath.Vec3{}, a.AvoidEdge())

	a.Position = vmath.Vec3{45, 0, 0}
	f := a.AvoidEdge()
	assert.Less(t, f.X(), 0.0)

	a.Position = vmath.Vec3{0, 0, -41}
	f = a.AvoidEdge()
	assert.Greater(t, f.Z(), 0.0)
}

// TestPreyFleeScenario verifies a hunter at +3 inside the flee radius pushes the prey toward -x
func TestPreyFleeScenario(t *testing.T) {
	p := testProfile()
	prey := newTestAgent(t, RolePrey, vmath.Vec3{}, p)
	hunter := newTestAgent(t, RoleHunter, vmath.Vec3{3, 0, 0}, p)

	env := &Env{Rng: vmath.NewFastRand(1), Target: hunter, Obstacles: NewObstacleField()}
	f := PreyBehavior{}.Steer(prey, env)

	assert.Less(t, f.X(), 0.0)
	assert.InDelta(t, 0.0, f.Z(), 1e-12)
	assert.Equal(t, prey.Flee(hunter.Position).Mul(p.EnemyWeight), f)
	assert.Equal(t, vmath.Vec3{}, prey.Acceleration, "flee branch applies no friction")
}

func TestPreyEvadeBranch(t *testing.T) {
	p := testProfile()
	prey := newTestAgent(t, RolePrey, vmath.Vec3{}, p)
	hunter := newTestAgent(t, RoleHunter, vmath.Vec3{8, 0, 0}, p)
	hunter.Velocity = vmath.Vec3{-1, 0, 0}

	env := &Env{Rng: vmath.NewFastRand(1), Target: hunter}
	f := PreyBehavior{}.Steer(prey, env)
	assert.Equal(t, prey.Evade(hunter).Mul(p.EnemyWeight), f)
}

func TestPreyCalmBranch(t *testing.T) {
	p := testProfile()
	prey := newTestAgent(t, RolePrey, vmath.Vec3{}, p)
	prey.Velocity = vmath.Vec3{2, 0, 0}
	far := newTestAgent(t, RoleHunter, vmath.Vec3{30, 0, 0}, p)

	env := &Env{Rng: vmath.NewFastRand(1), Target: far}
	f := PreyBehavior{}.Steer(prey, env)
	assert.True(t, vmath.V3Finite(f))
	assert.Less(t, prey.Acceleration.X(), 0.0, "calm prey apply friction")

	prey.Acceleration = vmath.Vec3{}
	prey.Avoiding = true
	f = PreyBehavior{}.Steer(prey, env)
	assert.Equal(t, vmath.Vec3{}, f)
	assert.Equal(t, vmath.Vec3{}, prey.Acceleration)
}

func TestPreySanctuary(t *testing.T) {
	p := testProfile()
	home := vmath.Vec3{0, 0, 20}
	p.Sanctuary = &home
	p.WanderWeight = 0

	prey := newTestAgent(t, RolePrey, vmath.Vec3{}, p)
	f := PreyBehavior{}.Steer(prey, &Env{Rng: vmath.NewFastRand(1)})
	assert.Greater(t, f.Z(), 0.0)
}

func TestHunterBehavior(t *testing.T) {
	p := testProfile()
	hunter := newTestAgent(t, RoleHunter, vmath.Vec3{}, p)
	prey := newTestAgent(t, RolePrey, vmath.Vec3{6, 0, 0}, p)
	env := &Env{Rng: vmath.NewFastRand(3), Target: prey}

	assert.Equal(t, hunter.Pursue(prey).Mul(p.PursueWeight), HunterBehavior{}.Steer(hunter, env))

	hunter.Velocity = vmath.Vec3{1, 0, 0}
	env.Target = nil
	assert.Equal(t, vmath.Vec3{}, HunterBehavior{}.Steer(hunter, env))
	assert.Less(t, hunter.Acceleration.X(), 0.0)

	hunter.Wandering = true
	f := HunterBehavior{}.Steer(hunter, env)
	assert.True(t, vmath.V3Finite(f))
}

func TestAccumulateAppliesSum(t *testing.T) {
	p := testProfile()
	prey := newTestAgent(t, RolePrey, vmath.Vec3{}, p)
	hunter := newTestAgent(t, RoleHunter, vmath.Vec3{3, 0, 0}, p)

	f := prey.Accumulate(BehaviorFor(RolePrey), &Env{Rng: vmath.NewFastRand(1), Target: hunter, Obstacles: NewObstacleField()})
	assert.Equal(t, vmath.V3Planar(f), prey.Acceleration)
	assert.Nil(t, BehaviorFor(RoleNone))
}

func TestObstacleFieldNear(t *testing.T) {
	field := NewObstacleField()
	for _, spec := range []struct {
		id  ObstacleID
		pos vmath.Vec3
	}{
		{3, vmath.Vec3{1, 0, 1}},
		{1, vmath.Vec3{-2, 0, 0}},
		{2, vmath.Vec3{50, 0, 50}},
		{4, vmath.Vec3{0, 0, 3}},
	} {
		o, err := NewObstacle(spec.id, spec.pos, 1)
		require.NoError(t, err)
		field.Insert(o)
	}

	near := field.Near(vmath.Vec3{}, 5)
	ids := make([]ObstacleID, 0, len(near))
	for _, o := range near {
		ids = append(ids, o.ID())
	}
	assert.Equal(t, []ObstacleID{1, 3, 4}, ids)
	assert.Equal(t, 4, field.Len())
	assert.Equal(t, ObstacleID(3), field.All()[0].ID())
}

func TestNewObstacleRejectsNegativeRadius(t *testing.T) {
	_, err := NewObstacle(1, vmath.Vec3{}, -1)
	assert.Equal(t, ErrInvalidObstacle, errors.Cause(err))

	o, err := NewObstacle(2, vmath.Vec3{1, 0, 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, o.Radius())
}

func TestProfileValidate(t *testing.T) {
	p := DefaultPreyProfile()
	require.NoError(t, p.Validate())

	h := DefaultHunterProfile()
	require.NoError(t, h.Validate())

	bad := DefaultPreyProfile()
	bad.FleeRadius, bad.EvadeRadius = 10, 5
	assert.Equal(t, ErrInvalidProfile, errors.Cause(bad.Validate()))

	bad = DefaultPreyProfile()
	bad.AvoidWeight = -1
	assert.Equal(t, ErrInvalidProfile, errors.Cause(bad.Validate()))
}

func TestBoostScalesDesiredSpeed(t *testing.T) {
	a := newTestAgent(t, RoleHunter, vmath.Vec3{}, testProfile())
	assert.Equal(t, 1.0, a.Boost())

	a.SetBoost(2)
	assert.Equal(t, 10.0, a.TopSpeed())
	assert.InDelta(t, 10.0, a.Seek(vmath.Vec3{100, 0, 0}).Len(), 1e-9)

	a.SetBoost(-3)
	assert.Equal(t, 1.0, a.Boost())
	assert.Equal(t, a.MaxSpeed, a.TopSpeed())
}
