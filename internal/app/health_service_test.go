package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorchat/internal/repository"
)

type proberFunc func(ctx context.Context) error

func (f proberFunc) Probe(ctx context.Context) error { return f(ctx) }

func newTestHealthService(p Prober) *HealthService {
	return NewHealthService(p, "test", "1.2.3", time.Now().Add(-90*time.Second), nil)
}

func TestHealthCheck_NotConfigured(t *testing.T) {
	snap := newTestHealthService(nil).Check(context.Background())

	assert.Equal(t, StatusHealthy, snap.Status)
	assert.Equal(t, DependencyNotConfigured, snap.Checks.Database)
	assert.True(t, snap.Healthy())
	assert.Equal(t, "test", snap.Environment)
	assert.Equal(t, "1.2.3", snap.Version)
	assert.GreaterOrEqual(t, snap.Uptime, 90.0)
}

func TestHealthCheck_Healthy(t *testing.T) {
	snap := newTestHealthService(proberFunc(func(context.Context) error { return nil })).Check(context.Background())

	assert.Equal(t, StatusHealthy, snap.Status)
	assert.Equal(t, DependencyHealthy, snap.Checks.Database)
	assert.Regexp(t, `^\d+ms$`, snap.ResponseTime)
}

func TestHealthCheck_ProbeErrorDegrades(t *testing.T) {
	snap := newTestHealthService(proberFunc(func(context.Context) error {
		return errors.New("relation does not exist")
	})).Check(context.Background())

	assert.Equal(t, StatusDegraded, snap.Status)
	assert.Equal(t, DependencyUnhealthy, snap.Checks.Database)
	assert.False(t, snap.Healthy())
}

func TestHealthCheck_ProbePanicDegrades(t *testing.T) {
	snap := newTestHealthService(proberFunc(func(context.Context) error {
		panic("driver exploded")
	})).Check(context.Background())

	assert.Equal(t, StatusDegraded, snap.Status)
	assert.Equal(t, DependencyUnhealthy, snap.Checks.Database)
}

func TestHealthCheck_ProbeTimeout(t *testing.T) {
	svc := newTestHealthService(proberFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	svc.probeTimeout = 20 * time.Millisecond

	snap := svc.Check(context.Background())
	assert.Equal(t, DependencyUnhealthy, snap.Checks.Database)
	assert.GreaterOrEqual(t, snap.ResponseTimeMs, int64(20))
}

func TestHealthCheck_ClosedStoreIsUnhealthy(t *testing.T) {
	db := openTestDB(t)
	svc := newTestHealthService(repository.NewTurnRepository(db))
	assert.Equal(t, DependencyHealthy, svc.Check(context.Background()).Checks.Database)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	snap := svc.Check(context.Background())
	assert.Equal(t, DependencyUnhealthy, snap.Checks.Database)
	assert.Equal(t, StatusDegraded, snap.Status)
}

func TestHealthSnapshot_JSONShape(t *testing.T) {
	snap := newTestHealthService(nil).Check(context.Background())
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	for _, key := range []string{"status", "timestamp", "uptime", "environment", "version", "checks", "responseTime"} {
		assert.Contains(t, body, key)
	}
	assert.NotContains(t, body, "ResponseTimeMs")
	assert.Equal(t, map[string]any{"database": "not_configured"}, body["checks"])
}
