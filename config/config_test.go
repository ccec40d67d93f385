package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/hvz/engine"
	"github.com/lixenwraith/hvz/physics"
	"github.com/lixenwraith/hvz/steering"
	"github.com/lixenwraith/hvz/vmath"
)

// TestDefaultMatchesEngine verifies the file defaults convert to the engine defaults
func TestDefaultMatchesEngine(t *testing.T) {
	cfg, err := Default().EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), cfg)
	assert.Equal(t, engine.StickyProximity{Threshold: 10}, Default().TargetPolicy())
}

func TestLoadOverridesDefaults(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "chase.yaml"))
	require.NoError(t, err)

	assert.Equal(t, uint64(42), f.Seed)
	assert.Equal(t, 12, f.Prey.Count)
	assert.Equal(t, 6.0, f.Prey.MaxSpeed)
	assert.Equal(t, Default().Prey.Mass, f.Prey.Mass, "absent keys keep defaults")
	assert.Equal(t, Default().Hunter.Steering.WanderRadius, f.Hunter.Steering.WanderRadius)
	assert.Equal(t, engine.NearestThreat{}, f.TargetPolicy())
	assert.Equal(t, map[string]string{"b": "boost_hunters", "z": "none"}, f.Keys)

	cfg, err := f.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 25.0, cfg.Prey.Profile.ArenaSize)
	assert.Equal(t, 25.0, cfg.Hunter.Profile.ArenaSize)
	assert.Equal(t, 1.5, cfg.Hunter.Profile.PursueWeight)
	assert.Equal(t, 3.0, cfg.BoostFactor)
	require.NotNil(t, cfg.Prey.Profile.Sanctuary)
	assert.Equal(t, vmath.Vec3{5, 0, -5}, *cfg.Prey.Profile.Sanctuary)

	c, err := engine.New(cfg, engine.WithPreyTargeting(f.TargetPolicy()))
	require.NoError(t, err)
	assert.Len(t, c.Prey(), 12)
	assert.Equal(t, 4, c.Obstacles().Len())
}

func TestParseEmptyDocument(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

// TestParseRejectsSchemaViolations verifies malformed scenarios fail before decoding
func TestParseRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "gravity: 9.8\n"},
		{"zero mass", "prey:\n  mass: 0\n"},
		{"negative count", "hunter:\n  count: -2\n"},
		{"bad policy", "targeting:\n  policy: random\n"},
		{"short sanctuary", "prey:\n  steering:\n    sanctuary: [1]\n"},
		{"boost below one", "boost_factor: 0.5\n"},
		{"wrong type", "arena:\n  size: wide\n"},
		{"unknown action", "keys:\n  x: explode\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Equal(t, ErrSchema, errors.Cause(err))
		})
	}
}

func TestEngineConfigSemanticErrors(t *testing.T) {
	f := Default()
	f.Prey.Steering.FleeRadius = 20
	_, err := f.EngineConfig()
	assert.Equal(t, steering.ErrInvalidProfile, errors.Cause(err))

	f = Default()
	f.Hunter.MaxSpeed = 0
	_, err = f.EngineConfig()
	assert.Equal(t, physics.ErrInvalidMaxSpeed, errors.Cause(err))

	f = Default()
	f.Obstacles.RadiusMin = 5
	_, err = f.EngineConfig()
	assert.Equal(t, engine.ErrInvalidConfig, errors.Cause(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}
