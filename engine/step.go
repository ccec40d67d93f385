package engine

import (
	"math"
	"time"

	"github.com/lixenwraith/hvz/steering"
	"github.com/lixenwraith/hvz/vmath"
)

// Conversion records one prey replaced by a hunter
type Conversion struct {
	Prey     steering.AgentID `json:"prey"`
	Hunter   steering.AgentID `json:"hunter"`
	Position vmath.Vec3       `json:"position"`
}

// StepReport summarises one tick for the host
type StepReport struct {
	Tick        uint64       `json:"tick"`
	Elapsed     float64      `json:"elapsed"`
	Conversions []Conversion `json:"conversions,omitempty"`
	Prey        int          `json:"prey"`
	Hunters     int          `json:"hunters"`
	// AllConverted is set only on the tick that converted the last prey
	AllConverted bool `json:"all_converted,omitempty"`
}

// Step advances the simulation by dt seconds
// Passes run in a fixed order: prey targeting and collision marking, conversion commit,
// hunter targeting, same-role separation, then steering and integration
// A non-positive or non-finite dt leaves state untouched
func (c *Coordinator) Step(dt float64) StepReport {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return c.report(false)
	}
	start := time.Now()

	c.tick++
	c.elapsed += dt
	c.conversions = c.conversions[:0]

	lastConverted := false
	if len(c.prey) > 0 {
		c.assignPreyTargets()
		c.commitConversions()
		if len(c.prey) == 0 {
			c.releaseHunters()
			c.allConverted = true
			lastConverted = true
			c.logger.Debug("all prey converted", "tick", c.tick, "hunters", len(c.hunters))
		}
	}

	c.assignHunterTargets()
	c.applyBoost(c.prey)
	c.applyBoost(c.hunters)

	c.separate(c.prey)
	c.separate(c.hunters)

	env := steering.Env{Now: c.elapsed, Rng: c.rng, Obstacles: c.obstacles}
	c.accumulate(c.prey, steering.RoleHunter, &env)
	c.accumulate(c.hunters, steering.RolePrey, &env)

	c.integrate(c.prey, dt)
	c.integrate(c.hunters, dt)

	c.publish(max(time.Since(start).Microseconds(), 1))
	return c.report(lastConverted)
}

func (c *Coordinator) report(lastConverted bool) StepReport {
	r := StepReport{
		Tick:         c.tick,
		Elapsed:      c.elapsed,
		Prey:         len(c.prey),
		Hunters:      len(c.hunters),
		AllConverted: lastConverted,
	}
	if len(c.conversions) > 0 {
		r.Conversions = append([]Conversion(nil), c.conversions...)
	}
	return r
}

// assignPreyTargets picks each prey's fled hunter and marks prey touching any hunter
// Each prey index is queued at most once, in ascending order
func (c *Coordinator) assignPreyTargets() {
	c.pending = c.pending[:0]

	for i, p := range c.prey {
		held := c.resolve(p.Target, steering.RoleHunter)
		var heldDist float64
		if held != nil {
			heldDist = p.DistanceTo(held)
		}

		marked := false
		for _, h := range c.hunters {
			d := p.DistanceTo(h)
			if c.targeting.Prefer(d, heldDist, held != nil) {
				held, heldDist = h, d
			}
			if !marked && d < p.Radius+h.Radius {
				marked = true
				c.pending = append(c.pending, i)
			}
		}

		p.Target = 0
		if held != nil {
			p.Target = held.ID
		}
	}
}

// commitConversions spawns a hunter per queued prey, then compacts the prey set in order
func (c *Coordinator) commitConversions() {
	if len(c.pending) == 0 {
		return
	}

	for _, i := range c.pending {
		p := c.prey[i]
		at := vmath.V3WithY(p.Position, c.cfg.Hunter.GroundHeight)
		h := c.spawn(steering.RoleHunter, at)
		delete(c.byID, p.ID)

		c.conversions = append(c.conversions, Conversion{Prey: p.ID, Hunter: h.ID, Position: at})
		c.logger.Debug("prey converted", "tick", c.tick, "prey", p.ID, "hunter", h.ID)
	}

	kept := c.prey[:0]
	next := 0
	for i, p := range c.prey {
		if next < len(c.pending) && c.pending[next] == i {
			next++
			continue
		}
		kept = append(kept, p)
	}
	clear(c.prey[len(kept):])
	c.prey = kept

	c.conversionTotal += uint64(len(c.pending))
	c.pending = c.pending[:0]
}

func (c *Coordinator) releaseHunters() {
	for _, h := range c.hunters {
		h.Target = 0
		h.Wandering = true
	}
}

// assignHunterTargets keeps live targets and gives every other hunter its nearest prey
func (c *Coordinator) assignHunterTargets() {
	if len(c.prey) == 0 {
		c.releaseHunters()
		return
	}

	for _, h := range c.hunters {
		h.Wandering = false
		if c.resolve(h.Target, steering.RolePrey) != nil {
			continue
		}

		nearest := c.prey[0]
		best := h.DistanceTo(nearest)
		for _, p := range c.prey[1:] {
			if d := h.DistanceTo(p); d < best {
				nearest, best = p, d
			}
		}
		h.Target = nearest.ID
	}
}

// separate pushes each agent away from same-group neighbours inside SafeSpaceRadius
// Closer neighbours push harder; coincident neighbours have no direction and are skipped
func (c *Coordinator) separate(group []*steering.Agent) {
	radius := c.cfg.SafeSpaceRadius
	if radius <= 0 || c.cfg.SeparationWeight == 0 {
		return
	}

	for _, a := range group {
		var force vmath.Vec3
		for _, n := range group {
			if n == a {
				continue
			}
			d := a.DistanceTo(n)
			if d >= radius || d == 0 {
				continue
			}
			force = force.Add(a.Flee(n.Position).Mul(1 / d))
		}
		if !vmath.V3IsZero(force) {
			a.ApplyForce(force.Mul(c.cfg.SeparationWeight))
		}
	}
}

// accumulate applies each agent's behaviour, obstacle and edge forces
// All forces are gathered before any agent moves, so scan order does not leak into steering
func (c *Coordinator) accumulate(group []*steering.Agent, targetRole steering.Role, env *steering.Env) {
	for _, a := range group {
		env.Target = c.resolve(a.Target, targetRole)
		a.Accumulate(steering.BehaviorFor(a.Role), env)
	}
	env.Target = nil
}

// applyBoost sets each agent's multiplier from its role toggle, repeated calls are harmless
func (c *Coordinator) applyBoost(group []*steering.Agent) {
	for _, a := range group {
		a.SetBoost(c.boost(a.Role))
	}
}

func (c *Coordinator) integrate(group []*steering.Agent, dt float64) {
	for _, a := range group {
		a.Integrate(dt, a.Boost())
	}
}
