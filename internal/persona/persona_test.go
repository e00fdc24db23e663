package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testConfig = `lps:
  Fast_ECN:
    avg_latency_ms: 5
    latency_jitter_ms: 3
    fill_rate: 0.98
    partial_fill_rate: 0.10
  Slow_Aggregator:
    avg_latency_ms: 250
    latency_jitter_ms: 100
    fill_rate: 0.85
    partial_fill_rate: 0.35
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeTestConfig(t))
	require.NoError(t, err)

	profile, err := config.Profile("Fast_ECN")
	require.NoError(t, err)
	require.Equal(t, 5.0, profile.AvgLatencyMs)
	require.Equal(t, 3.0, profile.LatencyJitterMs)
	require.Equal(t, 0.98, profile.FillRate)
	require.Equal(t, 0.10, profile.PartialFillRate)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lps: [not a map"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestProfile_UnknownPersona(t *testing.T) {
	config, err := LoadConfig(writeTestConfig(t))
	require.NoError(t, err)

	_, err = config.Profile("Mystery_LP")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Mystery_LP")
}
