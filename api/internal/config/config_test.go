package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stress-curve/api/internal/curve"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "scaled", cfg.CurveMode)
	assert.Equal(t, curve.DefaultPoints, cfg.CurvePoints)
	assert.Equal(t, 10000, cfg.CurveMaxPoints)
	assert.Equal(t, 24*time.Hour, cfg.CacheMaxAge)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Error(t, cfg.RequireTelegram())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CURVE_MODE", "bilinear")
	t.Setenv("CURVE_POINTS", "250")
	t.Setenv("CURVE_CACHE_MAX_AGE", "90m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "bilinear", cfg.CurveMode)
	assert.Equal(t, 250, cfg.CurvePoints)
	assert.Equal(t, 90*time.Minute, cfg.CacheMaxAge)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.NoError(t, cfg.RequireTelegram())
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CURVE_MODE", "bilinear")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "7000", "--points", "40"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, 40, cfg.CurvePoints)
	// unset flags leave env values alone
	assert.Equal(t, "bilinear", cfg.CurveMode)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("curve:\n  mode: bilinear\n  points: 50\nlog:\n  level: debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "bilinear", cfg.CurveMode)
	assert.Equal(t, 50, cfg.CurvePoints)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"CURVE_MODE":          "plastic",
		"CURVE_POINTS":        "1",
		"CURVE_MAX_POINTS":    "-1",
		"CURVE_CACHE_MAX_AGE": "-5m",
	}
	for env, val := range tests {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, val)
			_, err := Load(nil)
			assert.Error(t, err)
		})
	}

	t.Run("missing config file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load(nil)
		assert.Error(t, err)
	})
}

func TestCalculatorOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  considere: [\"Soft\"]\n"), 0o600))

	cfg := &Config{CurveMode: "bilinear", CurvePoints: 30, CurveMaxPoints: 500, ModelsFile: path}
	opts, err := cfg.CalculatorOptions()
	require.NoError(t, err)
	assert.Equal(t, curve.ModeBilinear, opts.Mode)
	assert.Equal(t, 30, opts.Points)
	assert.Equal(t, 500, opts.MaxPoints)
	assert.Equal(t, curve.Catalogue{"Soft": curve.Considere}, opts.Catalogue)

	cfg.ModelsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.CalculatorOptions()
	assert.Error(t, err)
}
