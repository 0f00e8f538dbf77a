package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomalyhq/corpusd/internal/tools"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8090", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "none", cfg.Store.Vector.Provider)
	assert.Equal(t, 8, cfg.Reasoner.MaxToolCalls)
	assert.Equal(t, 10*time.Second, cfg.Reasoner.ToolTimeout.Duration())
	assert.Equal(t, tools.DefaultWeights(), cfg.Weights)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9000
logging:
  level: debug
  format: console
store:
  vector:
    provider: chromem
    chromem_path: /var/lib/corpusd/vectors
embeddings:
  base_url: http://localhost:11434/v1
reasoner:
  max_tool_calls: 4
  tool_timeout: 5s
weights:
  semantic: 0.5
  geographic: 0.2
  temporal: 0.2
  attribute: 0.1
  spike_stddev: 2.0
  hotspot_share: 0.3
  dominance_share: 0.5
  cooccurrence_floor: 4
`))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "chromem", cfg.Store.Vector.Provider)
	assert.Equal(t, "/var/lib/corpusd/vectors", cfg.Store.Vector.ChromemPath)
	assert.Equal(t, 4, cfg.Reasoner.MaxToolCalls)
	assert.Equal(t, 5*time.Second, cfg.Reasoner.ToolTimeout.Duration())
	assert.Equal(t, 0.5, cfg.Weights.Semantic)
	assert.Equal(t, 4, cfg.Weights.CooccurrenceFloor)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("LOGGING_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad level", "logging:\n  level: loud\n"},
		{"bad provider", "store:\n  vector:\n    provider: pinecone\n"},
		{"qdrant without host", "store:\n  vector:\n    provider: qdrant\nembeddings:\n  base_url: http://x\n"},
		{"vector provider without embeddings", "store:\n  vector:\n    provider: chromem\n"},
		{"zero budget", "reasoner:\n  max_tool_calls: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestEnvToKey(t *testing.T) {
	assert.Equal(t, "server.read_timeout", envToKey("SERVER_READ_TIMEOUT"))
	assert.Equal(t, "reasoner.max_tool_calls", envToKey("REASONER_MAX_TOOL_CALLS"))
	assert.Equal(t, "path", envToKey("PATH"))
}

func TestSecret_NeverLeaks(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestDuration_Parsing(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("soon")))

	text, err := Duration(2 * time.Minute).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2m0s", string(text))
}
