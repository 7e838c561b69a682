package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/slidecap/internal/detector"
)

func defaults() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(defaults())
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Display)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, detector.ModeText, cfg.Mode)
	assert.Equal(t, 0.95, cfg.SSIMThreshold)
	assert.Equal(t, 0.8, cfg.TextThreshold)
	assert.Equal(t, 0.25, cfg.FaceThreshold)
	assert.Equal(t, "captured_slides", cfg.OutputDir)
	assert.Equal(t, 50, cfg.MaxTitleLength)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.False(t, cfg.Debug)
	assert.Equal(t, ProviderDeepSeek, cfg.Title.Provider)
	assert.Equal(t, 10*time.Second, cfg.Title.Timeout)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("SLIDECAP_INTERVAL", "5s")
	t.Setenv("SLIDECAP_MODE", "visual")
	t.Setenv("SLIDECAP_TITLE_PROVIDER", "none")
	t.Setenv(APIKeyEnv, "secret")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, detector.ModeVisual, cfg.Mode)
	assert.Equal(t, ProviderNone, cfg.Title.Provider)
	assert.Equal(t, "secret", cfg.Title.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slidecap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("display: 2\nface_threshold: 0.4\ntitle:\n  provider: ollama\n"), 0644))

	v := defaults()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Display)
	assert.Equal(t, 0.4, cfg.FaceThreshold)
	assert.Equal(t, ProviderOllama, cfg.Title.Provider)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"negative display", "display", -1},
		{"zero interval", "interval", 0},
		{"threshold above one", "ssim_threshold", 1.5},
		{"unknown mode", "mode", "audio"},
		{"unknown provider", "title.provider", "openai"},
		{"zero queue", "queue_size", 0},
		{"empty output", "output_dir", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := defaults()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestInitializeCreatesDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "slides")
	cfg := Config{OutputDir: root, Debug: true}

	require.NoError(t, cfg.Initialize())

	assert.DirExists(t, root)
	assert.DirExists(t, filepath.Join(root, "debug"))
}

func TestDebugDirDisabled(t *testing.T) {
	assert.Empty(t, Config{OutputDir: "out"}.DebugDir())
}
