package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "economy.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.True(t, cfg.Economy.Schedule.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	path := writeFile(t, `
[server]
addr = ":9090"
request_timeout = "5s"

[store]
driver = "postgres"
dsn = "postgres://localhost/economy"

[economy]
monthly_tax_rate = "6.5"
weekly_bonus = 20

[economy.allocations]
grant = 100
rewards = 50

[economy.schedule]
enabled = false
weekly_bonus = "0 6 * * 1"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout, "unset keys keep defaults")
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "6.5", cfg.Economy.MonthlyTaxRate)
	assert.Equal(t, int64(20), cfg.Economy.WeeklyBonus)
	assert.Equal(t, int64(100), cfg.Economy.Allocations["grant"])
	assert.False(t, cfg.Economy.Schedule.Enabled)
	assert.Equal(t, "0 6 * * 1", cfg.Economy.Schedule.WeeklyBonus)
	assert.Equal(t, "15 0 * * *", cfg.Economy.Schedule.AnnualAdjustment)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeFile(t, "[log]\nformat = \"json\"\n")
	t.Setenv(EnvPath, path)

	assert.Equal(t, path, Path(""))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "[server]\nport = 8080\n"},
		{"bad driver", "[store]\ndriver = \"oracle\"\n"},
		{"missing dsn", "[store]\ndriver = \"mongo\"\ndsn = \"\"\n"},
		{"bad cron", "[economy.schedule]\nweekly_bonus = \"whenever\"\n"},
		{"bad rate", "[economy]\npurchase_tax_rate = \"two\"\n"},
		{"syntax", "[server\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
