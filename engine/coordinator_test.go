package engine

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/hvz/physics"
	"github.com/lixenwraith/hvz/status"
	"github.com/lixenwraith/hvz/steering"
	"github.com/lixenwraith/hvz/vmath"
)

const testDT = 1.0 / 60

// emptyConfig returns defaults with no starting population
func emptyConfig() Config {
	cfg := DefaultConfig()
	cfg.Prey.Count = 0
	cfg.Hunter.Count = 0
	cfg.Obstacles = 0
	return cfg
}

func newEmpty(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	c, err := New(emptyConfig(), opts...)
	require.NoError(t, err)
	return c
}

func mustAgent(t *testing.T, c *Coordinator, role steering.Role, pos vmath.Vec3) *steering.Agent {
	t.Helper()
	id, err := c.CreateAgent(role, pos)
	require.NoError(t, err)
	a, ok := c.Agent(id)
	require.True(t, ok)
	return a
}

func ids(agents []*steering.Agent) []steering.AgentID {
	out := make([]steering.AgentID, len(agents))
	for i, a := range agents {
		out[i] = a.ID
	}
	return out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero prey mass", func(c *Config) { c.Prey.Mass = 0 }, physics.ErrInvalidMass},
		{"zero hunter speed", func(c *Config) { c.Hunter.MaxSpeed = 0 }, physics.ErrInvalidMaxSpeed},
		{"negative radius", func(c *Config) { c.Prey.Radius = -1 }, physics.ErrInvalidRadius},
		{"inverted flee", func(c *Config) { c.Prey.Profile.FleeRadius = 20 }, steering.ErrInvalidProfile},
		{"negative count", func(c *Config) { c.Hunter.Count = -1 }, ErrInvalidConfig},
		{"obstacle range", func(c *Config) { c.ObstacleRadiusMin = 4 }, ErrInvalidConfig},
		{"boost below one", func(c *Config) { c.BoostFactor = 0.5 }, ErrInvalidConfig},
		{"nan ground", func(c *Config) { c.Hunter.GroundHeight = math.NaN() }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			c, err := New(cfg)
			assert.Nil(t, c)
			assert.Equal(t, tt.want, errors.Cause(err))
		})
	}
}

// TestResetPopulates verifies Reset spawns starting counts on their ground heights with fresh IDs
func TestResetPopulates(t *testing.T) {
	cfg := DefaultConfig()
	c, err := New(cfg)
	require.NoError(t, err)

	require.Len(t, c.Prey(), cfg.Prey.Count)
	require.Len(t, c.Hunters(), cfg.Hunter.Count)
	assert.Equal(t, cfg.Obstacles, c.Obstacles().Len())

	seen := make(map[steering.AgentID]bool)
	for _, p := range c.Prey() {
		assert.Equal(t, cfg.Prey.GroundHeight, p.Position.Y())
		assert.LessOrEqual(t, math.Abs(p.Position.X()), cfg.SpawnExtent)
		assert.Equal(t, c.Hunters()[0].ID, p.Target)
		seen[p.ID] = true
	}
	for _, h := range c.Hunters() {
		assert.Equal(t, cfg.Hunter.GroundHeight, h.Position.Y())
		seen[h.ID] = true
	}
	assert.Len(t, seen, cfg.Prey.Count+cfg.Hunter.Count)
	for _, o := range c.Obstacles().All() {
		assert.GreaterOrEqual(t, o.Radius(), cfg.ObstacleRadiusMin)
		assert.LessOrEqual(t, o.Radius(), cfg.ObstacleRadiusMax)
	}

	for i := 0; i < 10; i++ {
		c.Step(testDT)
	}
	oldFirst := c.Prey()[0].ID
	c.Reset()

	assert.Equal(t, uint64(0), c.Tick())
	assert.Equal(t, 0.0, c.Elapsed())
	require.Len(t, c.Prey(), cfg.Prey.Count)
	_, ok := c.Agent(oldFirst)
	assert.False(t, ok, "pre-reset handles must not resolve")
	for _, p := range c.Prey() {
		assert.False(t, seen[p.ID], "IDs are never reused")
	}
}

// TestResetReleasesOldAgents verifies a shrinking reset leaves no agents behind the slice length
func TestResetReleasesOldAgents(t *testing.T) {
	cfg := emptyConfig()
	cfg.Hunter.Count = 3
	c, err := New(cfg)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		mustAgent(t, c, steering.RoleHunter, vmath.Vec3{float64(i), 0, 10})
		mustAgent(t, c, steering.RolePrey, vmath.Vec3{float64(i), 0, -10})
	}
	require.Len(t, c.hunters, 23)

	c.Reset()
	require.Len(t, c.hunters, 3)
	require.Empty(t, c.prey)
	for i, a := range c.hunters[len(c.hunters):cap(c.hunters)] {
		assert.Nil(t, a, "hunter slot %d still referenced", i+len(c.hunters))
	}
	for i, a := range c.prey[:cap(c.prey)] {
		assert.Nil(t, a, "prey slot %d still referenced", i)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	c := newEmpty(t)

	_, err := c.CreateAgent(steering.RoleNone, vmath.Vec3{})
	assert.Equal(t, steering.ErrInvalidRole, errors.Cause(err))

	_, err = c.CreateAgent(steering.RolePrey, vmath.Vec3{math.NaN(), 0, 0})
	assert.Equal(t, ErrInvalidPosition, errors.Cause(err))

	_, err = c.CreateObstacle(vmath.Vec3{}, -2)
	assert.Equal(t, steering.ErrInvalidObstacle, errors.Cause(err))
	assert.Equal(t, 0, c.Obstacles().Len())

	id, err := c.CreateObstacle(vmath.Vec3{1, 0, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, steering.ObstacleID(1), id)
}

// TestConversionPreservesOrder verifies one marked prey becomes one hunter at its ground-corrected position
func TestConversionPreservesOrder(t *testing.T) {
	c := newEmpty(t)
	a := mustAgent(t, c, steering.RolePrey, vmath.Vec3{-20, 0, 0})
	b := mustAgent(t, c, steering.RolePrey, vmath.Vec3{0, 0, 0})
	d := mustAgent(t, c, steering.RolePrey, vmath.Vec3{20, 0, 0})
	e := mustAgent(t, c, steering.RolePrey, vmath.Vec3{0, 0, 20})
	mustAgent(t, c, steering.RoleHunter, vmath.Vec3{0.3, 0, 0})

	last := b.Position
	report := c.Step(testDT)

	require.Len(t, report.Conversions, 1)
	conv := report.Conversions[0]
	assert.Equal(t, b.ID, conv.Prey)
	assert.Equal(t, vmath.Vec3{last.X(), c.Config().Hunter.GroundHeight, last.Z()}, conv.Position)

	assert.Equal(t, []steering.AgentID{a.ID, d.ID, e.ID}, ids(c.Prey()))
	assert.Equal(t, 3, report.Prey)
	assert.Equal(t, 2, report.Hunters)
	assert.False(t, report.AllConverted)

	_, ok := c.Agent(b.ID)
	assert.False(t, ok)
	h, ok := c.Agent(conv.Hunter)
	require.True(t, ok)
	assert.Equal(t, steering.RoleHunter, h.Role)
}

// TestConversionMarksOnce verifies a prey touching several hunters converts exactly once
func TestConversionMarksOnce(t *testing.T) {
	c := newEmpty(t)
	p := mustAgent(t, c, steering.RolePrey, vmath.Vec3{})
	mustAgent(t, c, steering.RolePrey, vmath.Vec3{25, 0, 25})
	mustAgent(t, c, steering.RoleHunter, vmath.Vec3{0.3, 0, 0})
	mustAgent(t, c, steering.RoleHunter, vmath.Vec3{-0.3, 0, 0})

	report := c.Step(testDT)
	require.Len(t, report.Conversions, 1)
	assert.Equal(t, p.ID, report.Conversions[0].Prey)
	assert.Equal(t, 1, report.Prey)
	assert.Equal(t, 3, report.Hunters)
}

// TestLastConversionReleasesHunters verifies three hunters wander with no target in the tick the last prey converts
func TestLastConversionReleasesHunters(t *testing.T) {
	c := newEmpty(t)
	mustAgent(t, c, steering.RolePrey, vmath.Vec3{})
	mustAgent(t, c, steering.RoleHunter, vmath.Vec3{0.2, 0, 0})
	mustAgent(t, c, steering.RoleHunter, vmath.Vec3{15, 0, 15})

	report := c.Step(testDT)
	assert.True(t, report.AllConverted)
	assert.Equal(t, 0, report.Prey)

	hunters := c.Hunters()
	require.Len(t, hunters, 3)
	for _, h := range hunters {
		assert.True(t, h.Wandering, "hunter %d", h.ID)
		assert.Equal(t, steering.AgentID(0), h.Target, "hunter %d", h.ID)
	}

	report = c.Step(testDT)
	assert.False(t, report.AllConverted, "flag marks the transition tick only")
	for _, h := range c.Hunters() {
		assert.True(t, h.Wandering)
	}
}

func TestWanderingHuntersResume(t *testing.T) {
	c := newEmpty(t)
	mustAgent(t, c, steering.RoleHunter, vmath.Vec3{})
	mustAgent(t, c, steering.RoleHunter, vmath.Vec3{5, 0, 0})
	c.Step(testDT)
	for _, h := range c.Hunters() {
		require.True(t, h.Wandering)
	}

	p := mustAgent(t, c, steering.RolePrey, vmath.Vec3{30, 0, 30})
	c.Step(testDT)
	for _, h := range c.Hunters() {
		assert.False(t, h.Wandering)
		assert.Equal(t, p.ID, h.Target)
	}
}

// TestDanglingTargetReacquires verifies a hunter whose prey converted picks a live prey in the same tick
func TestDanglingTargetReacquires(t *testing.T) {
	c := newEmpty(t)
	doomed := mustAgent(t, c, steering.RolePrey, vmath.Vec3{})
	survivor := mustAgent(t, c, steering.RolePrey, vmath.Vec3{-15, 0, 15})
	mustAgent(t, c, steering.RoleHunter, vmath.Vec3{0.2, 0, 0})
	chaser := mustAgent(t, c, steering.RoleHunter, vmath.Vec3{15, 0, 0})
	chaser.Target = doomed.ID

	report := c.Step(testDT)
	require.Len(t, report.Conversions, 1)
	assert.Equal(t, survivor.ID, chaser.Target)

	for _, h := range c.Hunters() {
		assert.Equal(t, survivor.ID, h.Target)
	}
}

func TestTargetRoleChecked(t *testing.T) {
	c := newEmpty(t)
	p := mustAgent(t, c, steering.RolePrey, vmath.Vec3{})
	other := mustAgent(t, c, steering.RolePrey, vmath.Vec3{20, 0, 0})
	h := mustAgent(t, c, steering.RoleHunter, vmath.Vec3{-25, 0, 0})

	p.Target = other.ID
	h.Target = h.ID
	c.Step(testDT)

	assert.Equal(t, h.ID, p.Target)
	assert.Equal(t, p.ID, h.Target)
}

func TestPreyTargetingPolicy(t *testing.T) {
	setup := func(opts ...Option) (*steering.Agent, *steering.Agent, *steering.Agent) {
		c := newEmpty(t, opts...)
		p := mustAgent(t, c, steering.RolePrey, vmath.Vec3{})
		near := mustAgent(t, c, steering.RoleHunter, vmath.Vec3{8, 0, 0})
		far := mustAgent(t, c, steering.RoleHunter, vmath.Vec3{0, 0, 9})
		c.Step(testDT)
		return p, near, far
	}

	p, _, far := setup()
	assert.Equal(t, far.ID, p.Target, "sticky proximity lets the last hunter inside the threshold win")

	p, near, _ := setup(WithPreyTargeting(NearestThreat{}))
	assert.Equal(t, near.ID, p.Target)
}

func TestTargetPolicyPrefer(t *testing.T) {
	sticky := StickyProximity{Threshold: 10}
	assert.True(t, sticky.Prefer(50, 0, false))
	assert.True(t, sticky.Prefer(4, 5, true))
	assert.True(t, sticky.Prefer(9, 2, true))
	assert.False(t, sticky.Prefer(12, 11, true))

	var nearest NearestThreat
	assert.True(t, nearest.Prefer(50, 0, false))
	assert.False(t, nearest.Prefer(9, 2, true))
	assert.False(t, nearest.Prefer(5, 5, true))
}

// TestSeparationPushesApart verifies same-role neighbours repel and coincident pairs contribute nothing
func TestSeparationPushesApart(t *testing.T) {
	c := newEmpty(t)
	left := mustAgent(t, c, steering.RolePrey, vmath.Vec3{0, 0, 0})
	right := mustAgent(t, c, steering.RolePrey, vmath.Vec3{2, 0, 0})

	c.separate(c.prey)
	assert.Less(t, left.Acceleration.X(), 0.0)
	assert.Greater(t, right.Acceleration.X(), 0.0)

	c2 := newEmpty(t)
	x := mustAgent(t, c2, steering.RoleHunter, vmath.Vec3{5, 0, 5})
	y := mustAgent(t, c2, steering.RoleHunter, vmath.Vec3{5, 0, 5})
	c2.separate(c2.hunters)
	assert.Equal(t, vmath.Vec3{}, x.Acceleration)
	assert.Equal(t, vmath.Vec3{}, y.Acceleration)
}

func TestSpeedBoostToggle(t *testing.T) {
	c := newEmpty(t)
	assert.True(t, c.ToggleSpeedBoost(steering.RoleHunter))
	assert.True(t, c.SpeedBoost(steering.RoleHunter))
	assert.False(t, c.SpeedBoost(steering.RolePrey))

	c.SetSpeedBoost(steering.RoleHunter, true)
	assert.True(t, c.SpeedBoost(steering.RoleHunter), "set is idempotent")

	assert.False(t, c.ToggleSpeedBoost(steering.RoleHunter))
	assert.False(t, c.ToggleSpeedBoost(steering.RoleNone))
}

// TestSpeedBoostRaisesTopSpeed verifies a boosted hunter exceeds its base cap and falls back when unboosted
func TestSpeedBoostRaisesTopSpeed(t *testing.T) {
	c := newEmpty(t)
	h := mustAgent(t, c, steering.RoleHunter, vmath.Vec3{-30, 0, 0})
	mustAgent(t, c, steering.RolePrey, vmath.Vec3{30, 0, 0})
	c.SetSpeedBoost(steering.RoleHunter, true)

	for i := 0; i < 40; i++ {
		c.Step(0.05)
		require.LessOrEqual(t, h.Speed(), h.MaxSpeed*c.Config().BoostFactor+1e-9)
	}
	assert.Greater(t, h.Speed(), h.MaxSpeed*1.5)

	c.SetSpeedBoost(steering.RoleHunter, false)
	c.Step(0.05)
	assert.LessOrEqual(t, h.Speed(), h.MaxSpeed+1e-9)
}

// TestStepKeepsInvariants verifies speed caps, ground pinning and finite state over a full run
func TestStepKeepsInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	c, err := New(cfg)
	require.NoError(t, err)

	converted := 0
	for i := 0; i < 600; i++ {
		report := c.Step(testDT)
		converted += len(report.Conversions)
		require.Equal(t, cfg.Prey.Count+cfg.Hunter.Count, report.Prey+report.Hunters)

		for _, a := range append(c.Prey(), c.Hunters()...) {
			require.True(t, vmath.V3Finite(a.Position), "agent %d", a.ID)
			require.LessOrEqual(t, a.Speed(), a.MaxSpeed+1e-9)
			require.Equal(t, a.GroundHeight, a.Position.Y())
		}
	}
	assert.Equal(t, uint64(600), c.Tick())
	assert.InDelta(t, 10.0, c.Elapsed(), 1e-9)
	assert.Equal(t, converted, len(c.Hunters())-cfg.Hunter.Count)
}

func TestStepIgnoresInvalidDelta(t *testing.T) {
	c := newEmpty(t)
	p := mustAgent(t, c, steering.RolePrey, vmath.Vec3{1, 0, 1})
	before := p.Position

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		report := c.Step(dt)
		assert.Equal(t, uint64(0), report.Tick)
	}
	assert.Equal(t, before, p.Position)
}

func TestStatusPublished(t *testing.T) {
	reg := status.NewRegistry()
	c := newEmpty(t, WithStatus(reg))
	mustAgent(t, c, steering.RolePrey, vmath.Vec3{})
	mustAgent(t, c, steering.RoleHunter, vmath.Vec3{0.2, 0, 0})
	c.SetSpeedBoost(steering.RolePrey, true)

	c.Step(testDT)

	assert.Equal(t, int64(0), reg.Ints.Get(status.KeyPreyCount).Load())
	assert.Equal(t, int64(2), reg.Ints.Get(status.KeyHunterCount).Load())
	assert.Equal(t, int64(1), reg.Ints.Get(status.KeyConversionTotal).Load())
	assert.Equal(t, int64(1), reg.Ints.Get(status.KeyTick).Load())
	assert.Positive(t, reg.Ints.Get(status.KeyStepMicros).Load())
	assert.True(t, reg.Bools.Get(status.KeyBoostPrey).Load())
}

func TestSnapshot(t *testing.T) {
	c := newEmpty(t)
	p := mustAgent(t, c, steering.RolePrey, vmath.Vec3{10, 0, 0})
	h := mustAgent(t, c, steering.RoleHunter, vmath.Vec3{-10, 0, 0})
	_, err := c.CreateObstacle(vmath.Vec3{0, 0, 10}, 2)
	require.NoError(t, err)

	c.Step(testDT)
	s := c.Snapshot()

	require.Len(t, s.Prey, 1)
	require.Len(t, s.Hunters, 1)
	require.Len(t, s.Obstacles, 1)
	assert.Equal(t, uint64(1), s.Tick)

	hs, ok := s.Find(h.ID)
	require.True(t, ok)
	assert.Equal(t, "hunter", hs.Role)
	assert.Equal(t, p.ID, hs.Target)
	assert.True(t, hs.HasPrediction)
	assert.Equal(t, h.Predict(p), hs.Predicted)

	ps, ok := s.Find(p.ID)
	require.True(t, ok)
	assert.Equal(t, h.ID, ps.Target)
	assert.False(t, ps.HasPrediction)

	p.Position = vmath.Vec3{99, 0, 99}
	assert.NotEqual(t, p.Position, s.Prey[0].Position, "snapshot is a copy")

	_, ok = s.Find(12345)
	assert.False(t, ok)
}
