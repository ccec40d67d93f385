package engine

import (
	"github.com/lixenwraith/hvz/steering"
	"github.com/lixenwraith/hvz/vmath"
)

// AgentState is the read model of one agent
type AgentState struct {
	ID        steering.AgentID `json:"id"`
	Role      string           `json:"role"`
	Position  vmath.Vec3       `json:"position"`
	Velocity  vmath.Vec3       `json:"velocity"`
	Direction vmath.Vec3       `json:"direction"`
	Right     vmath.Vec3       `json:"right"`
	Radius    float64          `json:"radius"`

	// Target is zero when unset or no longer live
	Target steering.AgentID `json:"target,omitempty"`
	// Predicted is the look-ahead point a hunter pursues, valid when HasPrediction
	Predicted     vmath.Vec3 `json:"predicted"`
	HasPrediction bool       `json:"has_prediction,omitempty"`

	Avoiding  bool `json:"avoiding,omitempty"`
	Wandering bool `json:"wandering,omitempty"`
}

// ObstacleState is the read model of one obstacle
type ObstacleState struct {
	ID       steering.ObstacleID `json:"id"`
	Position vmath.Vec3          `json:"position"`
	Radius   float64             `json:"radius"`
}

// Snapshot is an immutable copy of the arena, safe to hand to other goroutines
type Snapshot struct {
	Tick      uint64          `json:"tick"`
	Elapsed   float64         `json:"elapsed"`
	ArenaSize float64         `json:"arena_size"`
	Prey      []AgentState    `json:"prey"`
	Hunters   []AgentState    `json:"hunters"`
	Obstacles []ObstacleState `json:"obstacles"`

	BoostPrey    bool `json:"boost_prey"`
	BoostHunters bool `json:"boost_hunters"`
}

// Snapshot copies the current state for renderers and observers
func (c *Coordinator) Snapshot() Snapshot {
	s := Snapshot{
		Tick:         c.tick,
		Elapsed:      c.elapsed,
		ArenaSize:    c.preyProfile.ArenaSize,
		Prey:         make([]AgentState, 0, len(c.prey)),
		Hunters:      make([]AgentState, 0, len(c.hunters)),
		Obstacles:    make([]ObstacleState, 0, c.obstacles.Len()),
		BoostPrey:    c.boostPrey,
		BoostHunters: c.boostHunters,
	}
	for _, p := range c.prey {
		s.Prey = append(s.Prey, c.agentState(p, steering.RoleHunter))
	}
	for _, h := range c.hunters {
		s.Hunters = append(s.Hunters, c.agentState(h, steering.RolePrey))
	}
	for _, o := range c.obstacles.All() {
		s.Obstacles = append(s.Obstacles, ObstacleState{ID: o.ID(), Position: o.Position(), Radius: o.Radius()})
	}
	return s
}

func (c *Coordinator) agentState(a *steering.Agent, targetRole steering.Role) AgentState {
	st := AgentState{
		ID:        a.ID,
		Role:      a.Role.String(),
		Position:  a.Position,
		Velocity:  a.Velocity,
		Direction: a.Direction,
		Right:     vmath.V3Right(a.Direction),
		Radius:    a.Radius,
		Avoiding:  a.Avoiding,
		Wandering: a.Wandering,
	}
	if t := c.resolve(a.Target, targetRole); t != nil {
		st.Target = t.ID
		if a.Role == steering.RoleHunter && !a.Wandering {
			st.Predicted = a.Predict(t)
			st.HasPrediction = true
		}
	}
	return st
}

// Find returns the state of id in either population
func (s *Snapshot) Find(id steering.AgentID) (AgentState, bool) {
	for _, group := range [][]AgentState{s.Prey, s.Hunters} {
		for _, a := range group {
			if a.ID == id {
				return a, true
			}
		}
	}
	return AgentState{}, false
}
