package physics

import (
	"math"

	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/vmath"
)

// Construction errors, wrapped with the offending value
var (
	ErrInvalidMass     = errors.New("mass must be positive")
	ErrInvalidMaxSpeed = errors.New("max speed must be positive")
	ErrInvalidRadius   = errors.New("radius must not be negative")
)

// Kinetic is the point-mass state of a steered entity
// Acceleration only accumulates between ApplyForce and Integrate, it never survives a frame
type Kinetic struct {
	Position     vmath.Vec3
	Velocity     vmath.Vec3
	Acceleration vmath.Vec3
	// Direction is the last non-zero normalized velocity
	Direction vmath.Vec3

	Mass     float64
	MaxSpeed float64
	Radius   float64

	// GroundHeight pins Position.Y after every integration step
	GroundHeight float64
}

// NewKinetic validates parameters and returns a resting kinetic placed on its ground height
func NewKinetic(position vmath.Vec3, mass, maxSpeed, radius, groundHeight float64) (Kinetic, error) {
	if err := ValidateBody(mass, maxSpeed, radius); err != nil {
		return Kinetic{}, err
	}
	return Kinetic{
		Position:     vmath.V3WithY(position, groundHeight),
		Mass:         mass,
		MaxSpeed:     maxSpeed,
		Radius:       radius,
		GroundHeight: groundHeight,
	}, nil
}

// ValidateBody checks the invariants force integration depends on
func ValidateBody(mass, maxSpeed, radius float64) error {
	if !(mass > 0) || math.IsInf(mass, 0) {
		return errors.Wrapf(ErrInvalidMass, "mass %v", mass)
	}
	if !(maxSpeed > 0) || math.IsInf(maxSpeed, 0) {
		return errors.Wrapf(ErrInvalidMaxSpeed, "max speed %v", maxSpeed)
	}
	if !(radius >= 0) || math.IsInf(radius, 0) {
		return errors.Wrapf(ErrInvalidRadius, "radius %v", radius)
	}
	return nil
}

// ApplyForce accumulates force/mass into acceleration, vertical component discarded
func (k *Kinetic) ApplyForce(force vmath.Vec3) {
	if !vmath.V3Finite(force) {
		return
	}
	k.Acceleration = k.Acceleration.Add(vmath.V3Planar(force).Mul(1 / k.Mass))
}

// Integrate performs v = clamp(v + a*dt), p = p + v*dt and resets acceleration
// boost scales both acceleration and the speed cap; 1 is neutral
// A non-positive or non-finite dt leaves the body untouched
func (k *Kinetic) Integrate(dt, boost float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}
	if !(boost > 0) || math.IsInf(boost, 0) {
		boost = 1
	}

	k.Velocity = k.Velocity.Add(k.Acceleration.Mul(boost * dt))
	k.Velocity = vmath.V3ClampMagnitude(k.Velocity, k.MaxSpeed*boost)
	k.Position = k.Position.Add(k.Velocity.Mul(dt))

	if !vmath.V3IsZero(k.Velocity) {
		k.Direction = vmath.V3Normalize(k.Velocity)
	}

	k.Position[1] = k.GroundHeight
	k.Acceleration = vmath.Vec3{}
}

// Speed returns current velocity magnitude
func (k *Kinetic) Speed() float64 {
	return k.Velocity.Len()
}
