package engine

import (
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/parameter"
	"github.com/lixenwraith/hvz/physics"
	"github.com/lixenwraith/hvz/status"
	"github.com/lixenwraith/hvz/steering"
	"github.com/lixenwraith/hvz/vmath"
)

// ErrInvalidPosition is returned when a spawn position is not finite
var ErrInvalidPosition = errors.New("invalid position")

// Coordinator owns the prey, hunter and obstacle sets and runs the per-tick pipeline
// Not safe for concurrent use; hosts read Snapshot after Step returns
type Coordinator struct {
	cfg Config

	// Agents point into these; copies of cfg profiles so callers cannot mutate them mid-run
	preyProfile   steering.Profile
	hunterProfile steering.Profile

	prey      []*steering.Agent
	hunters   []*steering.Agent
	byID      map[steering.AgentID]*steering.Agent
	obstacles *steering.ObstacleField

	nextAgentID    steering.AgentID
	nextObstacleID steering.ObstacleID

	tick    uint64
	elapsed float64

	boostPrey    bool
	boostHunters bool

	targeting TargetPolicy
	rng       *vmath.FastRand
	logger    *log.Logger
	metrics   *coordinatorMetrics

	conversionTotal uint64
	allConverted    bool

	// Per-tick scratch
	pending     []int
	conversions []Conversion
}

// Option configures a Coordinator at construction
type Option func(*Coordinator)

// WithLogger routes coordinator logs to l
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStatus publishes population and timing metrics into r
func WithStatus(r *status.Registry) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.metrics = newCoordinatorMetrics(r)
		}
	}
}

// WithPreyTargeting replaces the default sticky proximity policy
func WithPreyTargeting(p TargetPolicy) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.targeting = p
		}
	}
}

// coordinatorMetrics caches registry pointers so Step never takes the map lock
type coordinatorMetrics struct {
	prey        *atomic.Int64
	hunters     *atomic.Int64
	conversions *atomic.Int64
	tick        *atomic.Int64
	stepMicros  *atomic.Int64
	elapsed     *status.AtomicFloat
	boostPrey   *atomic.Bool
	boostHunter *atomic.Bool
}

func newCoordinatorMetrics(r *status.Registry) *coordinatorMetrics {
	return &coordinatorMetrics{
		prey:        r.Ints.Get(status.KeyPreyCount),
		hunters:     r.Ints.Get(status.KeyHunterCount),
		conversions: r.Ints.Get(status.KeyConversionTotal),
		tick:        r.Ints.Get(status.KeyTick),
		stepMicros:  r.Ints.Get(status.KeyStepMicros),
		elapsed:     r.Floats.Get(status.KeyElapsed),
		boostPrey:   r.Bools.Get(status.KeyBoostPrey),
		boostHunter: r.Bools.Get(status.KeyBoostHunters),
	}
}

// New validates cfg and populates the arena with the configured starting sets
func New(cfg Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:           cfg,
		preyProfile:   cfg.Prey.Profile,
		hunterProfile: cfg.Hunter.Profile,
		targeting:     StickyProximity{Threshold: parameter.PreyRetargetProximity},
		rng:           vmath.NewFastRand(cfg.Seed),
		logger:        log.New(io.Discard),
	}
	if cfg.Prey.Profile.Sanctuary != nil {
		home := *cfg.Prey.Profile.Sanctuary
		c.preyProfile.Sanctuary = &home
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Reset()
	return c, nil
}

// Reset discards every agent and obstacle and respawns the starting counts
// Agent and obstacle IDs keep increasing so stale handles never alias new entities
func (c *Coordinator) Reset() {
	clear(c.prey)
	clear(c.hunters)
	c.prey = c.prey[:0]
	c.hunters = c.hunters[:0]
	c.byID = make(map[steering.AgentID]*steering.Agent, c.cfg.Prey.Count+c.cfg.Hunter.Count)
	c.obstacles = steering.NewObstacleField()
	c.tick = 0
	c.elapsed = 0
	c.conversionTotal = 0
	c.allConverted = false

	for i := 0; i < c.cfg.Hunter.Count; i++ {
		c.spawn(steering.RoleHunter, c.randomGroundPoint())
	}
	for i := 0; i < c.cfg.Prey.Count; i++ {
		p := c.spawn(steering.RolePrey, c.randomGroundPoint())
		if len(c.hunters) > 0 {
			p.Target = c.hunters[0].ID
		}
	}
	if len(c.prey) > 0 {
		for _, h := range c.hunters {
			h.Target = c.prey[0].ID
		}
	}
	for i := 0; i < c.cfg.Obstacles; i++ {
		r := c.rng.Range(c.cfg.ObstacleRadiusMin, c.cfg.ObstacleRadiusMax)
		c.addObstacle(c.randomGroundPoint(), r)
	}

	c.publish(0)
	c.logger.Info("arena reset",
		"prey", len(c.prey),
		"hunters", len(c.hunters),
		"obstacles", c.obstacles.Len(),
	)
}

func (c *Coordinator) randomGroundPoint() vmath.Vec3 {
	e := c.cfg.SpawnExtent
	return vmath.Vec3{c.rng.Range(-e, e), 0, c.rng.Range(-e, e)}
}

// CreateAgent adds an agent of role at position, Y is replaced by the role ground height
func (c *Coordinator) CreateAgent(role steering.Role, position vmath.Vec3) (steering.AgentID, error) {
	if !role.Valid() {
		return 0, errors.Wrapf(steering.ErrInvalidRole, "role %d", role)
	}
	if !vmath.V3Finite(position) {
		return 0, errors.Wrapf(ErrInvalidPosition, "%v", position)
	}
	a := c.spawn(role, position)
	if role == steering.RolePrey {
		c.allConverted = false
	}
	c.publish(0)
	return a.ID, nil
}

// CreateObstacle adds a static obstacle; obstacles are never removed before Reset
func (c *Coordinator) CreateObstacle(position vmath.Vec3, radius float64) (steering.ObstacleID, error) {
	o, err := steering.NewObstacle(c.nextObstacleID+1, position, radius)
	if err != nil {
		return 0, err
	}
	c.nextObstacleID++
	c.obstacles.Insert(o)
	return o.ID(), nil
}

func (c *Coordinator) addObstacle(position vmath.Vec3, radius float64) {
	if _, err := c.CreateObstacle(position, radius); err != nil {
		c.logger.Warn("obstacle rejected", "position", position, "radius", radius, "err", err)
	}
}

// spawn builds an agent from validated role config; construction cannot fail here
func (c *Coordinator) spawn(role steering.Role, position vmath.Vec3) *steering.Agent {
	rc, profile := &c.cfg.Prey, &c.preyProfile
	if role == steering.RoleHunter {
		rc, profile = &c.cfg.Hunter, &c.hunterProfile
	}

	body, err := physics.NewKinetic(position, rc.Mass, rc.MaxSpeed, rc.Radius, rc.GroundHeight)
	if err != nil {
		panic(errors.Wrap(err, "validated role config rejected"))
	}
	c.nextAgentID++
	a, err := steering.NewAgent(c.nextAgentID, role, body, profile)
	if err != nil {
		panic(errors.Wrap(err, "validated role config rejected"))
	}

	c.byID[a.ID] = a
	if role == steering.RolePrey {
		c.prey = append(c.prey, a)
	} else {
		c.hunters = append(c.hunters, a)
	}
	return a
}

// resolve turns a weak target handle into a live agent of the expected role, nil when gone
func (c *Coordinator) resolve(id steering.AgentID, role steering.Role) *steering.Agent {
	if id == 0 {
		return nil
	}
	a, ok := c.byID[id]
	if !ok || a.Role != role {
		return nil
	}
	return a
}

// SetSpeedBoost turns the boost multiplier for a role on or off
func (c *Coordinator) SetSpeedBoost(role steering.Role, on bool) {
	switch role {
	case steering.RolePrey:
		c.boostPrey = on
	case steering.RoleHunter:
		c.boostHunters = on
	default:
		return
	}
	c.logger.Debug("speed boost", "role", role, "on", on)
	c.publish(0)
}

// ToggleSpeedBoost flips a role's boost and returns the new state
func (c *Coordinator) ToggleSpeedBoost(role steering.Role) bool {
	on := !c.SpeedBoost(role)
	c.SetSpeedBoost(role, on)
	return c.SpeedBoost(role)
}

func (c *Coordinator) SpeedBoost(role steering.Role) bool {
	switch role {
	case steering.RolePrey:
		return c.boostPrey
	case steering.RoleHunter:
		return c.boostHunters
	}
	return false
}

func (c *Coordinator) boost(role steering.Role) float64 {
	if c.SpeedBoost(role) {
		return c.cfg.BoostFactor
	}
	return 1
}

// Agent looks up a live agent by ID
func (c *Coordinator) Agent(id steering.AgentID) (*steering.Agent, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Prey returns a copy of the prey set in scan order
func (c *Coordinator) Prey() []*steering.Agent {
	out := make([]*steering.Agent, len(c.prey))
	copy(out, c.prey)
	return out
}

// Hunters returns a copy of the hunter set in scan order
func (c *Coordinator) Hunters() []*steering.Agent {
	out := make([]*steering.Agent, len(c.hunters))
	copy(out, c.hunters)
	return out
}

// Obstacles returns the read-only obstacle field
func (c *Coordinator) Obstacles() *steering.ObstacleField { return c.obstacles }

func (c *Coordinator) Tick() uint64     { return c.tick }
func (c *Coordinator) Elapsed() float64 { return c.elapsed }
func (c *Coordinator) Config() Config   { return c.cfg }

// publish mirrors coordinator state into the status registry when one is attached
func (c *Coordinator) publish(stepMicros int64) {
	m := c.metrics
	if m == nil {
		return
	}
	m.prey.Store(int64(len(c.prey)))
	m.hunters.Store(int64(len(c.hunters)))
	m.conversions.Store(int64(c.conversionTotal))
	m.tick.Store(int64(c.tick))
	m.elapsed.Store(c.elapsed)
	m.boostPrey.Store(c.boostPrey)
	m.boostHunter.Store(c.boostHunters)
	if stepMicros > 0 {
		m.stepMicros.Store(stepMicros)
	}
}
