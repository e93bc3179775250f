package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/economy"
	"github.com/xraph/economy/internal/config"
)

const memoryConfig = `
[store]
driver = "memory"

[log]
level = "error"

[economy]
[economy.allocations]
grant = 1000
rewards = 1000
reserve = 1000
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "economy.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVerifyOnFreshStore(t *testing.T) {
	out, err := run(t, "verify", "--config", writeConfig(t, memoryConfig))
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)
}

func TestStatsPrintsJSON(t *testing.T) {
	out, err := run(t, "stats", "--config", writeConfig(t, memoryConfig), "--window", "month")
	require.NoError(t, err)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, "month", stats["window"])
	assert.Equal(t, float64(economy.DefaultAnnualAllocation), stats["total_allocated"])
}

func TestStatsRejectsUnknownWindow(t *testing.T) {
	_, err := run(t, "stats", "--config", writeConfig(t, memoryConfig), "--window", "fortnight")
	assert.Error(t, err)
}

func TestBonusWithoutAccountsIsNoOp(t *testing.T) {
	out, err := run(t, "bonus", "--config", writeConfig(t, memoryConfig), "--at", "2025-03-10T12:00:00Z")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "weekly-bonus", report["kind"])
	assert.Equal(t, "noop", report["outcome"])
}

func TestJobRejectsBadTime(t *testing.T) {
	_, err := run(t, "adjust", "--config", writeConfig(t, memoryConfig), "--at", "yesterday")
	assert.ErrorContains(t, err, "--at")
}

func TestMigrateMemoryStore(t *testing.T) {
	out, err := run(t, "migrate", "--config", writeConfig(t, memoryConfig))
	require.NoError(t, err)
	assert.Contains(t, out, "memory")
}

func TestMissingConfigFails(t *testing.T) {
	_, err := run(t, "verify", "--config", filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])

	_, err = newLogger(&buf, config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
