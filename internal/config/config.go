package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine struct {
		EmBase        int `yaml:"em_base"`        // px per em, 1-100
		PpiBase       int `yaml:"ppi_base"`       // px per inch, 1-600
		DecimalPlaces int `yaml:"decimal_places"` // output rounding, 0-10
	} `yaml:"engine"`
	AI struct {
		Model  string `yaml:"model"`
		APIKey string `yaml:"api_key"`
	} `yaml:"ai"`
}

// Default returns the documented defaults: 16px per em, 96ppi, 2 places.
func Default() *Config {
	cfg := &Config{}
	cfg.Engine.EmBase = 16
	cfg.Engine.PpiBase = 96
	cfg.Engine.DecimalPlaces = 2
	cfg.AI.Model = "gemini-2.0-flash"
	return cfg
}

// Load reads the YAML config at path (a missing file means defaults), loads
// .env if present, then applies TALLY_* environment overrides.
func Load(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with environment variables if present
	if apiKey := os.Getenv("TALLY_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if model := os.Getenv("TALLY_AI_MODEL"); model != "" {
		cfg.AI.Model = model
	}
	if places := os.Getenv("TALLY_DECIMAL_PLACES"); places != "" {
		n, err := strconv.Atoi(places)
		if err != nil {
			return nil, fmt.Errorf("invalid TALLY_DECIMAL_PLACES %q: %w", places, err)
		}
		cfg.Engine.DecimalPlaces = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the recognized option ranges.
func (c *Config) Validate() error {
	if c.Engine.EmBase < 1 || c.Engine.EmBase > 100 {
		return fmt.Errorf("em_base must be within [1,100], got %d", c.Engine.EmBase)
	}
	if c.Engine.PpiBase < 1 || c.Engine.PpiBase > 600 {
		return fmt.Errorf("ppi_base must be within [1,600], got %d", c.Engine.PpiBase)
	}
	if c.Engine.DecimalPlaces < 0 || c.Engine.DecimalPlaces > 10 {
		return fmt.Errorf("decimal_places must be within [0,10], got %d", c.Engine.DecimalPlaces)
	}
	return nil
}
