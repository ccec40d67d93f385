package engine

import (
	"math"

	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/parameter"
	"github.com/lixenwraith/hvz/physics"
	"github.com/lixenwraith/hvz/steering"
)

// ErrInvalidConfig is returned when a coordinator configuration cannot be simulated
var ErrInvalidConfig = errors.New("invalid coordinator config")

// RoleConfig is the body and steering setup shared by every agent of one role
type RoleConfig struct {
	// Count is the population created by Reset
	Count int

	Mass         float64
	MaxSpeed     float64
	Radius       float64
	GroundHeight float64

	Profile steering.Profile
}

// Config is fixed at construction; only the speed boosts change at runtime
type Config struct {
	// Seed drives spawn placement and wander re-rolls
	Seed uint64

	Prey   RoleConfig
	Hunter RoleConfig

	Obstacles         int
	ObstacleRadiusMin float64
	ObstacleRadiusMax float64

	// SpawnExtent is the half-width of the square Reset spawns into
	SpawnExtent float64

	SafeSpaceRadius  float64
	SeparationWeight float64

	// BoostFactor multiplies acceleration and speed cap of a boosted role
	BoostFactor float64
}

// DefaultConfig returns the tunables in parameter
func DefaultConfig() Config {
	return Config{
		Seed: 1,
		Prey: RoleConfig{
			Count:        parameter.StartingPrey,
			Mass:         parameter.PreyMass,
			MaxSpeed:     parameter.PreyMaxSpeed,
			Radius:       parameter.PreyRadius,
			GroundHeight: parameter.PreyGroundHeight,
			Profile:      steering.DefaultPreyProfile(),
		},
		Hunter: RoleConfig{
			Count:        parameter.StartingHunters,
			Mass:         parameter.HunterMass,
			MaxSpeed:     parameter.HunterMaxSpeed,
			Radius:       parameter.HunterRadius,
			GroundHeight: parameter.HunterGroundHeight,
			Profile:      steering.DefaultHunterProfile(),
		},
		Obstacles:         parameter.StartingObstacles,
		ObstacleRadiusMin: parameter.ObstacleRadiusMin,
		ObstacleRadiusMax: parameter.ObstacleRadiusMax,
		SpawnExtent:       parameter.SpawnExtent,
		SafeSpaceRadius:   parameter.SafeSpaceRadius,
		SeparationWeight:  parameter.SeparationWeight,
		BoostFactor:       parameter.BoostFactor,
	}
}

// Validate fails fast on anything that would make integration undefined
func (c *Config) Validate() error {
	if err := c.Prey.validate("prey"); err != nil {
		return err
	}
	if err := c.Hunter.validate("hunter"); err != nil {
		return err
	}

	if c.Obstacles < 0 {
		return errors.Wrapf(ErrInvalidConfig, "obstacles = %d", c.Obstacles)
	}
	if !nonNegative(c.ObstacleRadiusMin) || !nonNegative(c.ObstacleRadiusMax) || c.ObstacleRadiusMin > c.ObstacleRadiusMax {
		return errors.Wrapf(ErrInvalidConfig, "obstacle radius range [%v, %v]", c.ObstacleRadiusMin, c.ObstacleRadiusMax)
	}
	if !nonNegative(c.SpawnExtent) {
		return errors.Wrapf(ErrInvalidConfig, "spawn_extent = %v", c.SpawnExtent)
	}
	if !nonNegative(c.SafeSpaceRadius) || !nonNegative(c.SeparationWeight) {
		return errors.Wrapf(ErrInvalidConfig, "separation radius %v weight %v", c.SafeSpaceRadius, c.SeparationWeight)
	}
	if !(c.BoostFactor >= 1) || math.IsInf(c.BoostFactor, 0) {
		return errors.Wrapf(ErrInvalidConfig, "boost_factor = %v", c.BoostFactor)
	}
	return nil
}

func (rc *RoleConfig) validate(role string) error {
	if rc.Count < 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s count = %d", role, rc.Count)
	}
	if err := physics.ValidateBody(rc.Mass, rc.MaxSpeed, rc.Radius); err != nil {
		return errors.Wrap(err, role)
	}
	if math.IsNaN(rc.GroundHeight) || math.IsInf(rc.GroundHeight, 0) {
		return errors.Wrapf(ErrInvalidConfig, "%s ground height = %v", role, rc.GroundHeight)
	}
	if err := rc.Profile.Validate(); err != nil {
		return errors.Wrap(err, role)
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
