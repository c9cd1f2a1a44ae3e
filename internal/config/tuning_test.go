package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, 80.0, cfg.GetIntensitySpanDB())
	assert.Equal(t, 255, cfg.GetByteCeiling())
	assert.Equal(t, 0.35, cfg.GetBlankingDistance())
	assert.Equal(t, 1.5, cfg.GetReflectionFactor())
	assert.Equal(t, 2.0, cfg.GetStepCorrection())
	assert.Equal(t, 5, cfg.GetMedianWindow())
	assert.Equal(t, 30*time.Second, cfg.GetSwathMaxGap())
	assert.Equal(t, 500, cfg.GetExportWidth())
}

func TestLoadTuningConfig_Partial(t *testing.T) {
	path := writeConfig(t, `{"blanking_distance": 0.5, "swath_max_gap": "45s"}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.GetBlankingDistance())
	assert.Equal(t, 45*time.Second, cfg.GetSwathMaxGap())
	// Unset fields keep defaults.
	assert.Equal(t, 1.5, cfg.GetReflectionFactor())
	assert.Equal(t, 500, cfg.GetExportWidth())
}

func TestLoadTuningConfig_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative blanking", `{"blanking_distance": -1}`},
		{"zero step correction", `{"step_correction": 0}`},
		{"reflection below one", `{"reflection_factor": 0.5}`},
		{"bad gap duration", `{"swath_max_gap": "soon"}`},
		{"zero export width", `{"export_width": 0}`},
		{"byte ceiling too large", `{"byte_ceiling": 300}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadTuningConfig_RequiresJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err := LoadTuningConfig(path)
	assert.Error(t, err)
}

func TestPipelineConfig(t *testing.T) {
	blank := 0.7
	window := 3
	cfg := &TuningConfig{BlankingDistance: &blank, MedianWindow: &window}

	pc := cfg.PipelineConfig()
	assert.Equal(t, 0.7, pc.BlankingDistance)
	assert.Equal(t, 3, pc.MedianWindow)
	assert.Equal(t, 1.5, pc.ReflectionFactor)
	assert.Equal(t, 2.0, pc.StepCorrection)
}
