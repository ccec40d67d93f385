// Package config loads scenario files into a validated coordinator configuration
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/hvz/engine"
	"github.com/lixenwraith/hvz/parameter"
	"github.com/lixenwraith/hvz/steering"
	"github.com/lixenwraith/hvz/vmath"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "https://hvz.local/schemas/scenario.schema.json"

// ErrSchema is returned when a scenario file does not match the embedded schema
var ErrSchema = errors.New("scenario does not match schema")

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return schema, schemaErr
}

// Targeting policy names accepted in scenario files
const (
	PolicySticky  = "sticky"
	PolicyNearest = "nearest"
)

type File struct {
	Seed        uint64     `yaml:"seed"`
	Arena       Arena      `yaml:"arena"`
	Obstacles   Obstacles  `yaml:"obstacles"`
	Separation  Separation `yaml:"separation"`
	Targeting   Targeting  `yaml:"targeting"`
	BoostFactor float64    `yaml:"boost_factor"`
	Prey        Role       `yaml:"prey"`
	Hunter      Role       `yaml:"hunter"`

	// Keys overrides key bindings, key name to action name
	Keys map[string]string `yaml:"keys,omitempty"`
}

type Arena struct {
	Size        float64 `yaml:"size"`
	SpawnExtent float64 `yaml:"spawn_extent"`
}

type Obstacles struct {
	Count     int     `yaml:"count"`
	RadiusMin float64 `yaml:"radius_min"`
	RadiusMax float64 `yaml:"radius_max"`
}

type Separation struct {
	Radius float64 `yaml:"radius"`
	Weight float64 `yaml:"weight"`
}

type Targeting struct {
	Policy    string  `yaml:"policy"`
	Proximity float64 `yaml:"proximity"`
}

type Role struct {
	Count        int      `yaml:"count"`
	Mass         float64  `yaml:"mass"`
	MaxSpeed     float64  `yaml:"max_speed"`
	Radius       float64  `yaml:"radius"`
	GroundHeight float64  `yaml:"ground_height"`
	Steering     Steering `yaml:"steering"`
}

type Steering struct {
	LookAhead       float64 `yaml:"look_ahead"`
	WanderRadius    float64 `yaml:"wander_radius"`
	WanderDistance  float64 `yaml:"wander_distance"`
	WanderInterval  float64 `yaml:"wander_interval"`
	WanderWeight    float64 `yaml:"wander_weight"`
	DetectionRadius float64 `yaml:"detection_radius"`
	AvoidWeight     float64 `yaml:"avoid_weight"`
	EdgeWeight      float64 `yaml:"edge_weight"`
	FleeRadius      float64 `yaml:"flee_radius"`
	EvadeRadius     float64 `yaml:"evade_radius"`
	EnemyWeight     float64 `yaml:"enemy_weight"`
	Friction        float64 `yaml:"friction"`
	PursueWeight    float64 `yaml:"pursue_weight"`
	// Sanctuary is an optional [x, z] goal for calm prey
	Sanctuary       []float64 `yaml:"sanctuary,omitempty"`
	SanctuaryWeight float64   `yaml:"sanctuary_weight"`
}

// Default mirrors the tunables in parameter
func Default() File {
	return File{
		Seed: 1,
		Arena: Arena{
			Size:        parameter.ArenaSize,
			SpawnExtent: parameter.SpawnExtent,
		},
		Obstacles: Obstacles{
			Count:     parameter.StartingObstacles,
			RadiusMin: parameter.ObstacleRadiusMin,
			RadiusMax: parameter.ObstacleRadiusMax,
		},
		Separation: Separation{
			Radius: parameter.SafeSpaceRadius,
			Weight: parameter.SeparationWeight,
		},
		Targeting: Targeting{
			Policy:    PolicySticky,
			Proximity: parameter.PreyRetargetProximity,
		},
		BoostFactor: parameter.BoostFactor,
		Prey: Role{
			Count:        parameter.StartingPrey,
			Mass:         parameter.PreyMass,
			MaxSpeed:     parameter.PreyMaxSpeed,
			Radius:       parameter.PreyRadius,
			GroundHeight: parameter.PreyGroundHeight,
			Steering:     steeringFromProfile(steering.DefaultPreyProfile()),
		},
		Hunter: Role{
			Count:        parameter.StartingHunters,
			Mass:         parameter.HunterMass,
			MaxSpeed:     parameter.HunterMaxSpeed,
			Radius:       parameter.HunterRadius,
			GroundHeight: parameter.HunterGroundHeight,
			Steering:     steeringFromProfile(steering.DefaultHunterProfile()),
		},
	}
}

// Load reads and parses a scenario file
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrap(err, "read scenario")
	}
	f, err := Parse(raw)
	if err != nil {
		return File{}, errors.Wrap(err, path)
	}
	return f, nil
}

// Parse validates raw YAML against the schema and decodes it over Default
// Keys absent from the document keep their default values
func Parse(raw []byte) (File, error) {
	if err := validate(raw); err != nil {
		return File{}, err
	}

	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, errors.Wrap(err, "decode scenario")
	}
	return f, nil
}

// validate round-trips YAML through JSON so the schema sees JSON value types
func validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return errors.Wrap(err, "parse scenario")
	}
	if doc == nil {
		doc = map[string]any{}
	}

	js, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "scenario keys must be strings")
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return errors.Wrap(err, "re-read scenario")
	}

	s, err := compiledSchema()
	if err != nil {
		return errors.Wrap(err, "compile embedded schema")
	}
	if err := s.Validate(v); err != nil {
		return errors.Wrap(ErrSchema, err.Error())
	}
	return nil
}

// EngineConfig converts the file into a validated coordinator configuration
func (f File) EngineConfig() (engine.Config, error) {
	prey, err := f.Prey.Steering.profile(f.Arena.Size)
	if err != nil {
		return engine.Config{}, errors.Wrap(err, "prey")
	}
	hunter, err := f.Hunter.Steering.profile(f.Arena.Size)
	if err != nil {
		return engine.Config{}, errors.Wrap(err, "hunter")
	}

	cfg := engine.Config{
		Seed:              f.Seed,
		Prey:              f.Prey.roleConfig(prey),
		Hunter:            f.Hunter.roleConfig(hunter),
		Obstacles:         f.Obstacles.Count,
		ObstacleRadiusMin: f.Obstacles.RadiusMin,
		ObstacleRadiusMax: f.Obstacles.RadiusMax,
		SpawnExtent:       f.Arena.SpawnExtent,
		SafeSpaceRadius:   f.Separation.Radius,
		SeparationWeight:  f.Separation.Weight,
		BoostFactor:       f.BoostFactor,
	}
	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

// TargetPolicy returns the prey retargeting strategy named in the file
func (f File) TargetPolicy() engine.TargetPolicy {
	if f.Targeting.Policy == PolicyNearest {
		return engine.NearestThreat{}
	}
	return engine.StickyProximity{Threshold: f.Targeting.Proximity}
}

func (r Role) roleConfig(p steering.Profile) engine.RoleConfig {
	return engine.RoleConfig{
		Count:        r.Count,
		Mass:         r.Mass,
		MaxSpeed:     r.MaxSpeed,
		Radius:       r.Radius,
		GroundHeight: r.GroundHeight,
		Profile:      p,
	}
}

func (s Steering) profile(arenaSize float64) (steering.Profile, error) {
	p := steering.Profile{
		LookAhead:           s.LookAhead,
		WanderRadius:        s.WanderRadius,
		WanderDistance:      s.WanderDistance,
		WanderInterval:      s.WanderInterval,
		WanderWeight:        s.WanderWeight,
		DetectionRadius:     s.DetectionRadius,
		AvoidWeight:         s.AvoidWeight,
		ArenaSize:           arenaSize,
		EdgeWeight:          s.EdgeWeight,
		FleeRadius:          s.FleeRadius,
		EvadeRadius:         s.EvadeRadius,
		EnemyWeight:         s.EnemyWeight,
		FrictionCoefficient: s.Friction,
		PursueWeight:        s.PursueWeight,
		SanctuaryWeight:     s.SanctuaryWeight,
	}
	switch len(s.Sanctuary) {
	case 0:
	case 2:
		home := vmath.Vec3{s.Sanctuary[0], 0, s.Sanctuary[1]}
		p.Sanctuary = &home
	default:
		return p, errors.Wrapf(steering.ErrInvalidProfile, "sanctuary needs [x, z], got %d values", len(s.Sanctuary))
	}
	return p, p.Validate()
}

func steeringFromProfile(p steering.Profile) Steering {
	return Steering{
		LookAhead:       p.LookAhead,
		WanderRadius:    p.WanderRadius,
		WanderDistance:  p.WanderDistance,
		WanderInterval:  p.WanderInterval,
		WanderWeight:    p.WanderWeight,
		DetectionRadius: p.DetectionRadius,
		AvoidWeight:     p.AvoidWeight,
		EdgeWeight:      p.EdgeWeight,
		FleeRadius:      p.FleeRadius,
		EvadeRadius:     p.EvadeRadius,
		EnemyWeight:     p.EnemyWeight,
		Friction:        p.FrictionCoefficient,
		PursueWeight:    p.PursueWeight,
		SanctuaryWeight: p.SanctuaryWeight,
	}
}
