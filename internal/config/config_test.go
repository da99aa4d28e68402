package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Engine.EmBase)
	assert.Equal(t, 96, cfg.Engine.PpiBase)
	assert.Equal(t, 2, cfg.Engine.DecimalPlaces)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  em_base: 20
  ppi_base: 144
  decimal_places: 4
ai:
  model: gemini-2.5-pro
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Engine.EmBase)
	assert.Equal(t, 144, cfg.Engine.PpiBase)
	assert.Equal(t, 4, cfg.Engine.DecimalPlaces)
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai:\n  model: from-yaml\n"), 0644))

	t.Setenv("TALLY_API_KEY", "secret-key")
	t.Setenv("TALLY_AI_MODEL", "from-env")
	t.Setenv("TALLY_DECIMAL_PLACES", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.AI.APIKey)
	assert.Equal(t, "from-env", cfg.AI.Model)
	assert.Equal(t, 5, cfg.Engine.DecimalPlaces)
}

func TestLoad_BadDecimalPlacesEnv(t *testing.T) {
	t.Setenv("TALLY_DECIMAL_PLACES", "many")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Ranges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"em_base too small", func(c *Config) { c.Engine.EmBase = 0 }},
		{"em_base too large", func(c *Config) { c.Engine.EmBase = 101 }},
		{"ppi_base too small", func(c *Config) { c.Engine.PpiBase = 0 }},
		{"ppi_base too large", func(c *Config) { c.Engine.PpiBase = 601 }},
		{"decimal_places negative", func(c *Config) { c.Engine.DecimalPlaces = -1 }},
		{"decimal_places too large", func(c *Config) { c.Engine.DecimalPlaces = 11 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
