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
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123:abc"
  debug: true
database:
  path: "`+filepath.Join(t.TempDir(), "data", "test.db")+`"
redis:
  address: "localhost:6379"
  db: 2
survey:
  sweep_interval_minutes: 5
  catch_up_delay_minutes: 2
  gate_retry_delay_minutes: 20
  session_ttl_minutes: 15
backup:
  enabled: true
  dir: "backups"
  interval_hours: 12
  retention_days: 7
monitoring:
  health_check_port: 8091
  prometheus_enabled: true
  prometheus_port: 9091
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.True(t, cfg.Telegram.Debug)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
	assert.Equal(t, 2*time.Minute, cfg.CatchUpDelay())
	assert.Equal(t, 20*time.Minute, cfg.GateRetryDelay())
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 12*time.Hour, cfg.BackupInterval())
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, 7, cfg.Backup.RetentionDays)
	assert.Equal(t, 8091, cfg.Monitoring.HealthCheckPort)

	// The database directory is created on load.
	_, err = os.Stat(filepath.Dir(cfg.Database.Path))
	assert.NoError(t, err)
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "999:secret")
	path := writeConfig(t, `
telegram:
  bot_token: "${TEST_BOT_TOKEN}"
database:
  path: "`+filepath.Join(t.TempDir(), "test.db")+`"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "999:secret", cfg.Telegram.BotToken)
}

func TestLoadDefaults(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	path := writeConfig(t, "database:\n  path: \""+dbPath+"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.SweepInterval())
	assert.Equal(t, time.Minute, cfg.CatchUpDelay())
	assert.Equal(t, 15*time.Minute, cfg.GateRetryDelay())
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
