package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestEmptyConfigServesDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	assert.Equal(t, 1.0, cfg.GetFilterMinCutoff())
	assert.Equal(t, 0.007, cfg.GetFilterBeta())
	assert.Equal(t, 1.0, cfg.GetFilterDCutoff())
	assert.Equal(t, 0.5, cfg.GetConfidenceGate())
	assert.Equal(t, 30, cfg.GetChunkFrames())
	assert.Equal(t, 100.0, cfg.GetWorldScale())
	assert.Equal(t, 30.0, cfg.GetFallbackFPS())
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
		"filter_min_cutoff": 2.5,
		"filter_beta": 0.02,
		"confidence_gate": 0.7,
		"chunk_frames": 60
	}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.GetFilterMinCutoff())
	assert.Equal(t, 0.02, cfg.GetFilterBeta())
	assert.Equal(t, 0.7, cfg.GetConfidenceGate())
	assert.Equal(t, 60, cfg.GetChunkFrames())

	// Omitted fields keep their defaults.
	assert.Equal(t, 1.0, cfg.GetFilterDCutoff())
	assert.Equal(t, 100.0, cfg.GetWorldScale())
}

func TestLoadTuningConfigErrors(t *testing.T) {
	t.Run("wrong extension", func(t *testing.T) {
		path := writeConfig(t, "tuning.yaml", `{}`)
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, ".json")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeConfig(t, "bad.json", `{"filter_beta": `)
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, "failed to parse config JSON")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, "invalid.json", `{"chunk_frames": 0}`)
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, "chunk_frames")
	})
}

func TestValidate(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name    string
		cfg     TuningConfig
		wantErr string
	}{
		{"empty is valid", TuningConfig{}, ""},
		{"zero beta is valid", TuningConfig{FilterBeta: ptr(0)}, ""},
		{"gate bounds inclusive", TuningConfig{ConfidenceGate: ptr(1)}, ""},
		{"zero min cutoff", TuningConfig{FilterMinCutoff: ptr(0)}, "filter_min_cutoff"},
		{"negative beta", TuningConfig{FilterBeta: ptr(-0.1)}, "filter_beta"},
		{"zero d cutoff", TuningConfig{FilterDCutoff: ptr(0)}, "filter_d_cutoff"},
		{"gate above one", TuningConfig{ConfidenceGate: ptr(1.5)}, "confidence_gate"},
		{"negative chunk frames", TuningConfig{ChunkFrames: intPtr(-1)}, "chunk_frames"},
		{"zero world scale", TuningConfig{WorldScale: ptr(0)}, "world_scale"},
		{"zero fallback fps", TuningConfig{FallbackFPS: ptr(0)}, "fallback_fps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
