package steering

import (
	"github.com/lixenwraith/hvz/vmath"
)

// Env is the per-frame context a behaviour reads
type Env struct {
	// Now is elapsed simulated time in seconds
	Now float64
	Rng *vmath.FastRand

	// Target is the agent's resolved target, nil when unset or removed
	Target *Agent

	Obstacles *ObstacleField
}

// Behavior composes steering primitives into one force per frame
// Implementations may call ApplyFriction directly; everything else is returned
type Behavior interface {
	Steer(a *Agent, env *Env) vmath.Vec3
}

// BehaviorFor returns the policy for a role
func BehaviorFor(r Role) Behavior {
	switch r {
	case RolePrey:
		return PreyBehavior{}
	case RoleHunter:
		return HunterBehavior{}
	default:
		return nil
	}
}

// PreyBehavior flees close threats, evades medium-range threats and otherwise wanders
type PreyBehavior struct{}

func (PreyBehavior) Steer(a *Agent, env *Env) vmath.Vec3 {
	p := a.Profile

	if threat := env.Target; threat != nil {
		dist := a.DistanceTo(threat)
		switch {
		case dist < p.FleeRadius:
			return a.Flee(threat.Position).Mul(p.EnemyWeight)
		case dist < p.EvadeRadius:
			return a.Evade(threat).Mul(p.EnemyWeight)
		}
	}

	if a.Avoiding {
		return vmath.Vec3{}
	}

	a.ApplyFriction(p.FrictionCoefficient)
	force := a.Wander(env.Now, env.Rng).Mul(p.WanderWeight)
	if p.Sanctuary != nil && p.SanctuaryWeight > 0 {
		force = force.Add(a.Seek(*p.Sanctuary).Mul(p.SanctuaryWeight))
	}
	return force
}

// HunterBehavior pursues its target, wanders once prey are gone, and coasts down otherwise
type HunterBehavior struct{}

func (HunterBehavior) Steer(a *Agent, env *Env) vmath.Vec3 {
	p := a.Profile

	if a.Wandering {
		return a.Wander(env.Now, env.Rng).Mul(p.WanderWeight)
	}
	if env.Target != nil {
		return a.Pursue(env.Target).Mul(p.PursueWeight)
	}

	a.ApplyFriction(p.FrictionCoefficient)
	return vmath.Vec3{}
}

// Accumulate runs obstacle avoidance, the role behaviour and edge avoidance, then applies the sum
// Returns the force passed to ApplyForce; friction applied by the behaviour is not included
func (a *Agent) Accumulate(b Behavior, env *Env) vmath.Vec3 {
	force := a.AvoidObstacles(env.Obstacles)
	force = force.Add(b.Steer(a, env))
	force = force.Add(a.AvoidEdge())
	a.ApplyForce(force)
	return force
}
