package parameter

// Arena
const (
	// ArenaSize is the half-width of the square arena on X and Z
	ArenaSize = 40.0

	// SpawnExtent is the half-width of the random spawn square
	SpawnExtent = 30.0

	// PreyGroundHeight and HunterGroundHeight pin agents vertically after integration
	PreyGroundHeight   = 0.5
	HunterGroundHeight = 1.0
)

// Starting population
const (
	StartingPrey      = 20
	StartingHunters   = 3
	StartingObstacles = 8

	ObstacleRadiusMin = 1.0
	ObstacleRadiusMax = 3.0
)

// Bodies
const (
	PreyMass     = 1.0
	PreyMaxSpeed = 5.0
	PreyRadius   = 0.5

	HunterMass     = 1.0
	HunterMaxSpeed = 4.0
	HunterRadius   = 0.5
)

// Coordinator
const (
	// SafeSpaceRadius is the same-role separation distance
	SafeSpaceRadius = 10.0

	// SeparationWeight scales the summed separation force
	SeparationWeight = 1.0

	// PreyRetargetProximity is the absolute distance under which a prey switches to a scanned hunter
	PreyRetargetProximity = 10.0

	// BoostFactor multiplies acceleration and speed cap of a boosted role
	BoostFactor = 2.0
)
