// Package janitor is the background sweeper. It reaps expired files (blob
// first, then row), retries tombstoned blob deletes, expires rooms, and
// reconciles the signaling hub's in-memory rooms against the catalog.
package janitor

import (
	"context"
	"errors"
	"time"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/internal/logger"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/blob"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/catalog"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/metrics"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/signal"
)

// defaultBatchSize bounds rows processed per table per sweep.
const defaultBatchSize = 200

// HubControl is the slice of the signaling hub the janitor needs: a room
// snapshot for reconciliation and forced teardown.
type HubControl interface {
	ActiveRooms() []signal.RoomInfo
	TearDown(code, reason string) bool
}

// Config holds janitor tuning. Zero values select the defaults.
type Config struct {
	// Interval is the sweep cadence. Default 60s.
	Interval time.Duration

	// RoomGrace is how long a hub room may lack a catalog row before
	// reconciliation tears it down. Covers the window between a host join
	// and the asynchronous room insert. Default 5m.
	RoomGrace time.Duration

	// BatchSize bounds rows processed per table per sweep. Default 200.
	BatchSize int
}

// Janitor sweeps expired state on a fixed cadence.
type Janitor struct {
	catalog *catalog.Store
	blob    blob.Store
	hub     HubControl
	metrics *metrics.Metrics

	interval  time.Duration
	roomGrace time.Duration
	batchSize int
}

// New creates a janitor. The hub may be nil when signaling is disabled.
func New(cat *catalog.Store, store blob.Store, hub HubControl, m *metrics.Metrics, cfg Config) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.RoomGrace <= 0 {
		cfg.RoomGrace = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Janitor{
		catalog:   cat,
		blob:      store,
		hub:       hub,
		metrics:   m,
		interval:  cfg.Interval,
		roomGrace: cfg.RoomGrace,
		batchSize: cfg.BatchSize,
	}
}

// Run sweeps on the configured cadence until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	logger.Info("janitor started",
		"interval", j.interval.String(), "room_grace", j.roomGrace.String())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("janitor stopped")
			return ctx.Err()
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass. Exported so tests and operators can trigger it
// directly.
func (j *Janitor) Sweep(ctx context.Context) {
	start := time.Now()
	now := start

	filesSwept := j.sweepExpiredFiles(ctx, now)
	filesSwept += j.sweepTombstonedFiles(ctx)
	roomsSwept := j.sweepExpiredRooms(ctx, now)
	j.reconcileRooms(ctx, now)

	j.metrics.IncJanitorSweeps()
	if filesSwept > 0 || roomsSwept > 0 {
		logger.Info("janitor sweep completed",
			"files_swept", filesSwept,
			"rooms_swept", roomsSwept,
			"duration_ms", logger.DurationMs(start))
	}
}

// sweepExpiredFiles deletes files past expiry: blob first, then row. A row
// whose blob delete fails is tombstoned so the next sweep retries it.
func (j *Janitor) sweepExpiredFiles(ctx context.Context, now time.Time) int {
	files, err := j.catalog.ListExpiredFiles(ctx, now, j.batchSize)
	if err != nil {
		logger.Error("expired file scan failed", logger.Err(err))
		return 0
	}

	swept := 0
	for _, f := range files {
		if err := j.deleteFileAndBlob(ctx, f); err != nil {
			continue
		}
		swept++
	}
	j.metrics.AddFilesExpired(swept)
	return swept
}

// sweepTombstonedFiles retries blob deletes that failed earlier.
func (j *Janitor) sweepTombstonedFiles(ctx context.Context) int {
	files, err := j.catalog.ListTombstonedFiles(ctx, j.batchSize)
	if err != nil {
		logger.Error("tombstoned file scan failed", logger.Err(err))
		return 0
	}

	swept := 0
	for _, f := range files {
		if err := j.deleteFileAndBlob(ctx, f); err != nil {
			continue
		}
		swept++
	}
	return swept
}

func (j *Janitor) deleteFileAndBlob(ctx context.Context, f *catalog.File) error {
	if err := j.blob.Delete(ctx, f.StorageKey); err != nil {
		logger.Warn("blob delete failed",
			logger.FileID(f.ID), logger.StorageKey(f.StorageKey), logger.Err(err))
		if !f.Tombstoned {
			if terr := j.catalog.MarkFileTombstoned(ctx, f.ID); terr != nil && !errors.Is(terr, catalog.ErrFileNotFound) {
				logger.Error("tombstoning failed", logger.FileID(f.ID), logger.Err(terr))
			}
		}
		return err
	}

	if err := j.catalog.DeleteFile(ctx, f.ID); err != nil && !errors.Is(err, catalog.ErrFileNotFound) {
		logger.Error("file row delete failed", logger.FileID(f.ID), logger.Err(err))
		return err
	}

	logger.Debug("expired file reaped",
		logger.FileID(f.ID), logger.StorageKey(f.StorageKey))
	return nil
}

// sweepExpiredRooms removes room rows past expiry and tears down any that are
// still live in the hub.
func (j *Janitor) sweepExpiredRooms(ctx context.Context, now time.Time) int {
	rooms, err := j.catalog.ListExpiredRooms(ctx, now, j.batchSize)
	if err != nil {
		logger.Error("expired room scan failed", logger.Err(err))
		return 0
	}

	swept := 0
	for _, rm := range rooms {
		if err := j.catalog.DeleteRoom(ctx, rm.Code); err != nil && !errors.Is(err, catalog.ErrRoomNotFound) {
			logger.Error("room row delete failed", logger.RoomCode(rm.Code), logger.Err(err))
			continue
		}
		if j.hub != nil {
			j.hub.TearDown(rm.Code, "room expired")
		}
		swept++
	}
	j.metrics.AddRoomsExpired(swept)
	return swept
}

// reconcileRooms tears down hub rooms whose catalog row is missing once they
// outlive the grace period. The grace period tolerates the asynchronous room
// insert after a host join.
func (j *Janitor) reconcileRooms(ctx context.Context, now time.Time) {
	if j.hub == nil {
		return
	}

	for _, info := range j.hub.ActiveRooms() {
		if now.Sub(info.CreatedAt) < j.roomGrace {
			continue
		}
		_, err := j.catalog.GetRoom(ctx, info.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, catalog.ErrRoomNotFound) {
			logger.Error("room reconciliation lookup failed",
				logger.RoomCode(info.Code), logger.Err(err))
			continue
		}
		logger.Warn("hub room has no catalog row, tearing down",
			logger.RoomCode(info.Code))
		j.hub.TearDown(info.Code, "room record missing")
	}
}
