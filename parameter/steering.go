package parameter

// Shared steering
const (
	// LookAheadSeconds is the pursue/evade prediction horizon
	LookAheadSeconds = 1.0

	// DetectionRadius bounds obstacle avoidance range
	DetectionRadius = 8.0

	AvoidWeight = 3.0
	EdgeWeight  = 2.0
)

// Wander
const (
	WanderRadius   = 2.0
	WanderDistance = 4.0

	// WanderInterval is the minimum time between heading re-rolls (seconds)
	WanderInterval = 1.0

	WanderWeight = 1.0
)

// Prey
const (
	// FleeRadius triggers direction-only flee, EvadeRadius predictive evade
	FleeRadius  = 5.0
	EvadeRadius = 12.0

	EnemyWeight = 2.0

	// FrictionCoefficient decays velocity while calm
	FrictionCoefficient = 2.0

	SanctuaryWeight = 0.5
)

// Hunter
const (
	PursueWeight = 1.0
)
