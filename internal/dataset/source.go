package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/retailops/ims-analytics/internal/engine"
	"github.com/retailops/ims-analytics/internal/metrics"
	"github.com/retailops/ims-analytics/internal/models"
)

// Source supplies typed tabular snapshots to the engine. Implementations
// own schema normalization (date parsing, missing-column fallback) and the
// content/version key that tells the store when a snapshot is stale.
type Source interface {
	// Name identifies the source kind in logs and metrics.
	Name() string
	// Version returns the current content/version key of the underlying
	// data (max file mtime for CSV, max updated-at for Postgres).
	Version(ctx context.Context) (string, error)
	// Load reads every table and returns a fully populated snapshot.
	// Optional analytic tables are nil on the result when absent.
	Load(ctx context.Context) (*models.Snapshot, error)
}

// Store hands out the current immutable snapshot and reloads it when the
// source's version key changes. A refreshed load fully replaces the prior
// snapshot; nothing is patched in place.
type Store struct {
	source  Source
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu   sync.RWMutex
	snap *models.Snapshot
}

// NewStore creates a snapshot store over the given source.
func NewStore(source Source, logger *zap.Logger) *Store {
	return &Store{source: source, logger: logger}
}

// SetMetrics attaches the metrics registry for load counters.
func (s *Store) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Snapshot returns the current snapshot, loading or reloading it first if
// the source's version key moved since the last load.
func (s *Store) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	version, err := s.source.Version(ctx)
	if err != nil {
		s.recordError("version_check")
		return nil, fmt.Errorf("dataset version check: %w", err)
	}

	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap != nil && snap.Version == version {
		return snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil && s.snap.Version == version {
		return s.snap, nil
	}

	start := time.Now()
	loaded, err := s.source.Load(ctx)
	if err != nil {
		reason := "load"
		var schemaErr *engine.SchemaError
		if errors.As(err, &schemaErr) {
			reason = "schema"
		}
		s.recordError(reason)
		return nil, fmt.Errorf("dataset load: %w", err)
	}
	loaded.Version = version
	loaded.LoadedAt = time.Now()
	s.snap = loaded

	if s.metrics != nil {
		s.metrics.RecordSnapshotLoad(s.source.Name(), time.Since(start))
		s.recordRows(loaded)
	}

	s.logger.Info("snapshot loaded",
		zap.String("version", version),
		zap.Int("orders", len(loaded.Orders)),
		zap.Int("events", len(loaded.Events)),
		zap.Int("products", len(loaded.Efficiency)),
		zap.Bool("ltv", loaded.HasLTV()),
		zap.Bool("attribution", loaded.HasAttribution()),
	)
	return loaded, nil
}

func (s *Store) recordError(reason string) {
	if s.metrics != nil {
		s.metrics.RecordSnapshotError(s.source.Name(), reason)
	}
}

func (s *Store) recordRows(snap *models.Snapshot) {
	s.metrics.UpdateSnapshotRows("orders", len(snap.Orders))
	s.metrics.UpdateSnapshotRows("orders_clustered", len(snap.Clustered))
	s.metrics.UpdateSnapshotRows("event_stats", len(snap.Events))
	s.metrics.UpdateSnapshotRows("page_stats", len(snap.Pages))
	s.metrics.UpdateSnapshotRows("click_stats", len(snap.Clicks))
	s.metrics.UpdateSnapshotRows("cluster_channels", len(snap.ClusterChannel))
	s.metrics.UpdateSnapshotRows("product_efficiency", len(snap.Efficiency))
	s.metrics.UpdateSnapshotRows("ltv", len(snap.LTV))
	s.metrics.UpdateSnapshotRows("order_intervals", len(snap.Intervals))
	s.metrics.UpdateSnapshotRows("attribution", len(snap.Attribution))
}
