package steering

import (
	"math"

	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/parameter"
	"github.com/lixenwraith/hvz/vmath"
)

// ErrInvalidProfile is returned for negative or inconsistent tunables
var ErrInvalidProfile = errors.New("invalid steering profile")

// Profile holds the per-role steering tunables
// Agents share a pointer to their role profile; it is read-only while stepping
type Profile struct {
	// LookAhead is the pursue/evade prediction horizon in seconds
	LookAhead float64

	WanderRadius   float64
	WanderDistance float64
	// WanderInterval is the minimum simulated time between heading re-rolls
	WanderInterval float64
	WanderWeight   float64

	DetectionRadius float64
	AvoidWeight     float64

	// ArenaSize is the half-width of the square arena centred on ArenaCenter
	ArenaSize   float64
	ArenaCenter vmath.Vec3
	EdgeWeight  float64

	// Prey thresholds, FleeRadius < EvadeRadius
	FleeRadius  float64
	EvadeRadius float64
	EnemyWeight float64

	FrictionCoefficient float64

	PursueWeight float64

	// Sanctuary is an optional point prey drift toward while calm
	Sanctuary       *vmath.Vec3
	SanctuaryWeight float64
}

// DefaultPreyProfile returns the prey tunables from parameter
func DefaultPreyProfile() Profile {
	return Profile{
		LookAhead:           parameter.LookAheadSeconds,
		WanderRadius:        parameter.WanderRadius,
		WanderDistance:      parameter.WanderDistance,
		WanderInterval:      parameter.WanderInterval,
		WanderWeight:        parameter.WanderWeight,
		DetectionRadius:     parameter.DetectionRadius,
		AvoidWeight:         parameter.AvoidWeight,
		ArenaSize:           parameter.ArenaSize,
		EdgeWeight:          parameter.EdgeWeight,
		FleeRadius:          parameter.FleeRadius,
		EvadeRadius:         parameter.EvadeRadius,
		EnemyWeight:         parameter.EnemyWeight,
		FrictionCoefficient: parameter.FrictionCoefficient,
		SanctuaryWeight:     parameter.SanctuaryWeight,
	}
}

// DefaultHunterProfile returns the hunter tunables from parameter
func DefaultHunterProfile() Profile {
	return Profile{
		LookAhead:           parameter.LookAheadSeconds,
		WanderRadius:        parameter.WanderRadius,
		WanderDistance:      parameter.WanderDistance,
		WanderInterval:      parameter.WanderInterval,
		WanderWeight:        parameter.WanderWeight,
		DetectionRadius:     parameter.DetectionRadius,
		AvoidWeight:         parameter.AvoidWeight,
		ArenaSize:           parameter.ArenaSize,
		EdgeWeight:          parameter.EdgeWeight,
		FrictionCoefficient: parameter.FrictionCoefficient,
		PursueWeight:        parameter.PursueWeight,
	}
}

// Validate rejects negative, non-finite or inverted tunables
func (p *Profile) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"look_ahead", p.LookAhead},
		{"wander_radius", p.WanderRadius},
		{"wander_distance", p.WanderDistance},
		{"wander_interval", p.WanderInterval},
		{"wander_weight", p.WanderWeight},
		{"detection_radius", p.DetectionRadius},
		{"avoid_weight", p.AvoidWeight},
		{"arena_size", p.ArenaSize},
		{"edge_weight", p.EdgeWeight},
		{"flee_radius", p.FleeRadius},
		{"evade_radius", p.EvadeRadius},
		{"enemy_weight", p.EnemyWeight},
		{"friction", p.FrictionCoefficient},
		{"pursue_weight", p.PursueWeight},
		{"sanctuary_weight", p.SanctuaryWeight},
	}
	for _, f := range fields {
		if !(f.v >= 0) || math.IsInf(f.v, 0) {
			return errors.Wrapf(ErrInvalidProfile, "%s = %v", f.name, f.v)
		}
	}
	if (p.FleeRadius > 0 || p.EvadeRadius > 0) && p.FleeRadius >= p.EvadeRadius {
		return errors.Wrapf(ErrInvalidProfile, "flee_radius %v must be below evade_radius %v", p.FleeRadius, p.EvadeRadius)
	}
	if p.Sanctuary != nil && !vmath.V3Finite(*p.Sanctuary) {
		return errors.Wrap(ErrInvalidProfile, "sanctuary is not finite")
	}
	return nil
}
