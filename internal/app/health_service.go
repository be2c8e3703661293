package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mentorchat/internal/logging"
)

type DependencyStatus string

const (
	DependencyHealthy       DependencyStatus = "healthy"
	DependencyUnhealthy     DependencyStatus = "unhealthy"
	DependencyNotConfigured DependencyStatus = "not_configured"
	DependencyUnknown       DependencyStatus = "unknown"
)

type OverallStatus string

const (
	StatusHealthy  OverallStatus = "healthy"
	StatusDegraded OverallStatus = "degraded"
)

const defaultProbeTimeout = 2 * time.Second

// Prober issues a minimal read against a dependency.
type Prober interface {
	Probe(ctx context.Context) error
}

type HealthChecks struct {
	Database DependencyStatus `json:"database"`
}

type HealthSnapshot struct {
	Status         OverallStatus `json:"status"`
	Timestamp      time.Time     `json:"timestamp"`
	Uptime         float64       `json:"uptime"`
	Environment    string        `json:"environment"`
	Version        string        `json:"version"`
	Checks         HealthChecks  `json:"checks"`
	ResponseTime   string        `json:"responseTime"`
	ResponseTimeMs int64         `json:"-"`
}

func (s HealthSnapshot) Healthy() bool {
	return s.Status == StatusHealthy
}

type HealthService struct {
	database     Prober
	environment  string
	version      string
	startedAt    time.Time
	probeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewHealthService takes a nil database when the conversation store is not
// configured.
func NewHealthService(database Prober, environment, version string, startedAt time.Time, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &HealthService{
		database:     database,
		environment:  environment,
		version:      version,
		startedAt:    startedAt,
		probeTimeout: defaultProbeTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Check computes a fresh snapshot. Only an unhealthy database degrades the
// overall status; a store that is not configured does not.
func (s *HealthService) Check(ctx context.Context) HealthSnapshot {
	start := s.now()
	snapshot := HealthSnapshot{
		Status:      StatusHealthy,
		Timestamp:   start.UTC(),
		Uptime:      start.Sub(s.startedAt).Seconds(),
		Environment: s.environment,
		Version:     s.version,
		Checks:      HealthChecks{Database: DependencyUnknown},
	}

	snapshot.Checks.Database = s.checkDatabase(ctx)
	if snapshot.Checks.Database == DependencyUnhealthy {
		snapshot.Status = StatusDegraded
	}

	elapsed := s.now().Sub(start)
	snapshot.ResponseTimeMs = elapsed.Milliseconds()
	snapshot.ResponseTime = fmt.Sprintf("%dms", snapshot.ResponseTimeMs)
	return snapshot
}

func (s *HealthService) checkDatabase(ctx context.Context) (status DependencyStatus) {
	if s.database == nil {
		return DependencyNotConfigured
	}

	log := logging.FromContext(ctx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Error("database health check panicked", "panic", fmt.Sprint(r))
			status = DependencyUnhealthy
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	if err := s.database.Probe(probeCtx); err != nil {
		log.Error("database health check failed", "error", err)
		return DependencyUnhealthy
	}
	return DependencyHealthy
}
