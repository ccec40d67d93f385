package physics

import (
	"github.com/lixenwraith/hvz/vmath"
)

// ApplyFriction pushes against the current velocity with fixed magnitude coeff
// No-op at rest so a stopped entity never picks up a NaN heading
func (k *Kinetic) ApplyFriction(coeff float64) {
	if vmath.V3IsZero(k.Velocity) {
		return
	}
	k.ApplyForce(vmath.V3Normalize(k.Velocity.Mul(-1)).Mul(coeff))
}

// CapSpeed limits the velocity magnitude to maxSpeed
// Returns true if velocity was clamped
func CapSpeed(vel *vmath.Vec3, maxSpeed float64) bool {
	clamped := vmath.V3ClampMagnitude(*vel, maxSpeed)
	if clamped == *vel {
		return false
	}
	*vel = clamped
	return true
}

// StoppingTravel returns the distance covered in one step at full speed
func StoppingTravel(maxSpeed, dt, boost float64) float64 {
	if boost <= 0 {
		boost = 1
	}
	return maxSpeed * boost * dt
}
