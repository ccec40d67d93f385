package steering

import (
	"math"

	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/physics"
	"github.com/lixenwraith/hvz/vmath"
)

// ErrInvalidRole is returned when an agent is created without a steerable role
var ErrInvalidRole = errors.New("invalid role")

// Agent is a steered entity: kinetic state plus role-specific targeting
type Agent struct {
	physics.Kinetic

	ID   AgentID
	Role Role

	// Target is the fled hunter for prey and the pursued prey for hunters
	// It is a weak handle resolved by the coordinator; a removed agent reads as unset
	Target AgentID

	// Wandering is set on hunters once no prey remain
	Wandering bool

	// Avoiding is true when obstacle avoidance produced a force this frame
	Avoiding bool

	Profile *Profile

	// boost scales the desired speed; set from the role toggle each frame
	boost float64

	wanderAngle      float64
	wanderLastChange float64
}

// NewAgent builds an agent from a validated body and a shared role profile
func NewAgent(id AgentID, role Role, body physics.Kinetic, profile *Profile) (*Agent, error) {
	if !role.Valid() {
		return nil, errors.Wrapf(ErrInvalidRole, "role %d", role)
	}
	if err := physics.ValidateBody(body.Mass, body.MaxSpeed, body.Radius); err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errors.Wrap(ErrInvalidProfile, "nil profile")
	}
	return &Agent{
		Kinetic:          body,
		ID:               id,
		Role:             role,
		Profile:          profile,
		boost:            1,
		wanderLastChange: math.Inf(-1),
	}, nil
}

// DistanceTo returns the distance between agent centres
func (a *Agent) DistanceTo(other *Agent) float64 {
	return vmath.V3Distance(a.Position, other.Position)
}

// Overlaps reports radius overlap with another agent
func (a *Agent) Overlaps(other *Agent) bool {
	return a.DistanceTo(other) < a.Radius+other.Radius
}

// Predict returns where target will be after the profile look-ahead at its current velocity
func (a *Agent) Predict(target *Agent) vmath.Vec3 {
	return target.Position.Add(target.Velocity.Mul(a.Profile.LookAhead))
}

// WanderAngle returns the current wander heading in radians
func (a *Agent) WanderAngle() float64 {
	return a.wanderAngle
}

// Right returns the ground-plane right vector of the current heading
func (a *Agent) Right() vmath.Vec3 {
	return vmath.V3Right(a.Direction)
}

// SetBoost sets the speed multiplier, values <= 0 reset it to 1
func (a *Agent) SetBoost(f float64) {
	if !(f > 0) {
		f = 1
	}
	a.boost = f
}

// Boost returns the current speed multiplier
func (a *Agent) Boost() float64 {
	if a.boost <= 0 {
		return 1
	}
	return a.boost
}

// TopSpeed is the desired-velocity magnitude every steering primitive aims for
func (a *Agent) TopSpeed() float64 {
	return a.MaxSpeed * a.Boost()
}
