package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a named bundle of liquidity-provider behavior, shared
// read-only across all sessions.
type Profile struct {
	AvgLatencyMs    float64 `yaml:"avg_latency_ms"`
	LatencyJitterMs float64 `yaml:"latency_jitter_ms"`
	FillRate        float64 `yaml:"fill_rate"`
	PartialFillRate float64 `yaml:"partial_fill_rate"`
}

type Config struct {
	LPs map[string]Profile `yaml:"lps"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read persona config %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse persona config %s: %w", path, err)
	}
	return &config, nil
}

func (config *Config) Profile(name string) (Profile, error) {
	profile, ok := config.LPs[name]
	if !ok {
		return Profile{}, fmt.Errorf("persona %q not found in config", name)
	}
	return profile, nil
}
