package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ESCALATION_CAP_ACTION", "")
	t.Setenv("LOCK_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "@every 1m", cfg.SLA.MonitorSchedule)
	assert.Equal(t, 3, cfg.Escalation.MaxLevel)
	assert.Equal(t, "notify", cfg.Escalation.CapAction)
	assert.Equal(t, "local", cfg.Lock.Backend)
	assert.Equal(t, 72*time.Hour, cfg.Workflow.ReopenGrace())
	assert.Equal(t, "triage-queue", cfg.Assignment.DefaultAssignee)
}

func TestLoadRejectsUnknownCapAction(t *testing.T) {
	t.Setenv("ESCALATION_CAP_ACTION", "auto_close")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLA_MONITOR_WORKERS", "3")
	t.Setenv("ESCALATION_MAX_LEVEL", "0")
	t.Setenv("LOCK_BACKEND", "REDIS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.SLA.Workers)
	assert.Equal(t, 0, cfg.Escalation.MaxLevel)
	assert.Equal(t, "redis", cfg.Lock.Backend)
}

func TestDurationFallbacks(t *testing.T) {
	assert.Equal(t, 5*time.Second, SLAConfig{}.TicketTimeout())
	assert.Equal(t, time.Duration(0), AnalyticsConfig{}.CacheTTL())
	assert.Equal(t, 30*time.Second, LockConfig{}.TTL())
}
