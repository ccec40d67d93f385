package steering

import (
	"math"

	"github.com/lixenwraith/hvz/vmath"
)

// Steering primitives
// Every primitive is a pure function of agent state except Wander, which advances
// its own re-roll gate; none touch position or velocity

// Seek returns the force turning current velocity into full-speed travel toward target
func (a *Agent) Seek(target vmath.Vec3) vmath.Vec3 {
	top := a.TopSpeed()
	desired := vmath.V3ClampMagnitude(target.Sub(a.Position), top)
	desired = vmath.V3Normalize(desired).Mul(top)
	return desired.Sub(a.Velocity)
}

// Flee returns the negated seek force toward target using the direction-only desired velocity
func (a *Agent) Flee(target vmath.Vec3) vmath.Vec3 {
	desired := vmath.V3Normalize(target.Sub(a.Position)).Mul(a.TopSpeed())
	return desired.Sub(a.Velocity).Mul(-1)
}

// Pursue seeks the target's predicted position
func (a *Agent) Pursue(target *Agent) vmath.Vec3 {
	return a.Seek(a.Predict(target))
}

// Evade flees the target's predicted position
func (a *Agent) Evade(target *Agent) vmath.Vec3 {
	return a.Flee(a.Predict(target))
}

// Wander seeks a point on a circle projected ahead of the agent
// The heading on the circle is re-rolled at most once per WanderInterval of simulated time
func (a *Agent) Wander(now float64, rng *vmath.FastRand) vmath.Vec3 {
	if now-a.wanderLastChange >= a.Profile.WanderInterval {
		a.wanderAngle = rng.Angle()
		a.wanderLastChange = now
	}

	center := a.Position.Add(a.Direction.Mul(a.Profile.WanderDistance))
	point := center.Add(vmath.V3OnCircle(a.wanderAngle, a.Profile.WanderRadius))
	return a.Seek(point)
}

// ObstacleAvoidance returns a lateral force away from an obstacle on the agent's path
// Zero when the obstacle is behind, out of detection range, or clear of the path
func (a *Agent) ObstacleAvoidance(o *Obstacle) vmath.Vec3 {
	forward := a.Direction
	if vmath.V3IsZero(forward) {
		return vmath.Vec3{}
	}

	toObstacle := vmath.V3Planar(o.Position().Sub(a.Position))
	if toObstacle.Dot(forward) < 0 {
		return vmath.Vec3{}
	}
	if toObstacle.Len() > a.Profile.DetectionRadius {
		return vmath.Vec3{}
	}

	right := vmath.V3Right(forward)
	lateral := toObstacle.Dot(right)
	if math.Abs(lateral) > (o.Radius()+a.Radius)/2 {
		return vmath.Vec3{}
	}

	var desired vmath.Vec3
	if lateral < 0 {
		desired = right.Mul(a.TopSpeed())
	} else {
		desired = right.Mul(-a.TopSpeed())
	}
	return desired.Sub(a.Velocity).Mul(a.Profile.AvoidWeight)
}

// AvoidObstacles sums avoidance over every obstacle in detection range and records Avoiding
func (a *Agent) AvoidObstacles(field *ObstacleField) vmath.Vec3 {
	var total vmath.Vec3
	a.Avoiding = false
	for _, o := range field.Near(a.Position, a.Profile.DetectionRadius) {
		f := a.ObstacleAvoidance(o)
		if vmath.V3IsZero(f) {
			continue
		}
		total = total.Add(f)
		a.Avoiding = true
	}
	return total
}

// OutsideArena reports whether the agent left the square arena on X or Z
func (a *Agent) OutsideArena() bool {
	p := a.Profile
	dx := a.Position.X() - p.ArenaCenter.X()
	dz := a.Position.Z() - p.ArenaCenter.Z()
	return math.Abs(dx) > p.ArenaSize || math.Abs(dz) > p.ArenaSize
}

// AvoidEdge returns a weighted seek back to the arena centre when outside the arena
func (a *Agent) AvoidEdge() vmath.Vec3 {
	if !a.OutsideArena() {
		return vmath.Vec3{}
	}
	return a.Seek(a.Profile.ArenaCenter).Mul(a.Profile.EdgeWeight)
}
