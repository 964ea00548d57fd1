package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBExecutor is the subset of pgxpool.Pool the pruner needs.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const pruneSQL = `DELETE FROM rfq.rfq_snapshot WHERE seen_at < $1`

// DefaultPruneInterval replaces a non-positive prune interval.
const DefaultPruneInterval = time.Hour

// ArchivePruner periodically deletes archived snapshots older than the retention window.
type ArchivePruner struct {
	logger    *zap.Logger
	db        DBExecutor
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewArchivePruner(logger *zap.Logger, db DBExecutor, retention, interval time.Duration) *ArchivePruner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	return &ArchivePruner{
		logger:    logger,
		db:        db,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Start runs the prune loop until ctx is cancelled.
func (p *ArchivePruner) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("archive_pruner.started",
		zap.Duration("interval", p.interval),
		zap.Duration("retention", p.retention))

	for {
		select {
		case <-ticker.C:
			_, _ = p.RunOnce(ctx)
		case <-ctx.Done():
			p.logger.Info("archive_pruner.stopped")
			return
		}
	}
}

// RunOnce deletes expired snapshots and returns how many were removed.
func (p *ArchivePruner) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	cutoff := p.now().UTC().Add(-p.retention)

	tag, err := p.db.Exec(ctx, pruneSQL, cutoff)
	if err != nil {
		p.logger.Error("archive_pruner.prune_failed", zap.Error(err))
		return 0, err
	}

	p.logger.Info("archive_pruner.success",
		zap.Int64("deleted", tag.RowsAffected()),
		zap.Time("cutoff", cutoff),
		zap.Duration("duration", time.Since(start)))
	return tag.RowsAffected(), nil
}
