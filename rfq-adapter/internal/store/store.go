package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/portcall/adapters/rfq-adapter/internal/rfq"
)

// Store tracks which RFQs the watcher has already announced and archives their snapshots.
type Store interface {
	MarkSeen(ctx context.Context, feed string, id int64) (bool, error)
	Unmark(ctx context.Context, feed string, id int64) error
	Archive(ctx context.Context, feed string, r rfq.RFQ) error
	SetLastSync(ctx context.Context, feed string, s SyncState) error
	GetLastSync(ctx context.Context, feed string) (*SyncState, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// SyncState summarises the last successful poll of a feed.
type SyncState struct {
	At         time.Time `json:"at"`
	Total      int       `json:"total"`
	Discovered int       `json:"discovered"`
}

// Schema creates the archive table. Applied by EnsureSchema when Postgres is configured.
const Schema = `
CREATE SCHEMA IF NOT EXISTS rfq;
CREATE TABLE IF NOT EXISTS rfq.rfq_snapshot (
	rfq_id            BIGINT      NOT NULL,
	feed              TEXT        NOT NULL,
	port              TEXT        NOT NULL,
	title             TEXT        NOT NULL,
	payload           JSONB       NOT NULL,
	server_created_at TEXT,
	seen_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (rfq_id, feed)
);`

type HybridStore struct {
	redis   *redis.Client
	PG      *pgxpool.Pool
	logger  *zap.Logger
	seenTTL time.Duration
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first store with an optional Postgres archive (pgURL may be empty).
func NewHybrid(redisAddr string, redisDB int, redisPass string, pgURL string, pgPoolConfig PGPoolConfig, seenTTL time.Duration, logger *zap.Logger) (*HybridStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		DB:       redisDB,
		Password: redisPass,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return New(rdb, pgPool, seenTTL, logger), nil
}

// New wraps existing clients. pg may be nil.
func New(rdb *redis.Client, pg *pgxpool.Pool, seenTTL time.Duration, logger *zap.Logger) *HybridStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridStore{redis: rdb, PG: pg, logger: logger, seenTTL: seenTTL}
}

func seenKey(feed string, id int64) string {
	return fmt.Sprintf("rfq:seen:%s:%d", feed, id)
}

func syncKey(feed string) string {
	return "rfq:sync:" + feed
}

// MarkSeen records id for feed and reports whether it was new.
func (s *HybridStore) MarkSeen(ctx context.Context, feed string, id int64) (bool, error) {
	ok, err := s.redis.SetNX(ctx, seenKey(feed, id), time.Now().UTC().Format(time.RFC3339), s.seenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark seen: %w", err)
	}
	return ok, nil
}

// Unmark removes the seen marker so the next poll announces id again.
func (s *HybridStore) Unmark(ctx context.Context, feed string, id int64) error {
	return s.redis.Del(ctx, seenKey(feed, id)).Err()
}

// Archive upserts the RFQ snapshot into Postgres. No-op without Postgres.
func (s *HybridStore) Archive(ctx context.Context, feed string, r rfq.RFQ) error {
	if s.PG == nil {
		return nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.PG.Exec(ctx, `
		INSERT INTO rfq.rfq_snapshot (rfq_id, feed, port, title, payload, server_created_at, seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (rfq_id, feed)
		DO UPDATE SET
			port = EXCLUDED.port,
			title = EXCLUDED.title,
			payload = EXCLUDED.payload,
			seen_at = EXCLUDED.seen_at;
	`, r.ID, feed, r.Port, r.Title, payload, r.CreatedAt)
	if err != nil {
		s.logger.Error("store.pg.archive_failed", zap.Int64("rfq_id", r.ID), zap.Error(err))
	}
	return err
}

// EnsureSchema applies Schema. No-op without Postgres.
func (s *HybridStore) EnsureSchema(ctx context.Context) error {
	if s.PG == nil {
		return nil
	}
	_, err := s.PG.Exec(ctx, Schema)
	return err
}

func (s *HybridStore) SetLastSync(ctx context.Context, feed string, st SyncState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, syncKey(feed), data, 0).Err()
}

// GetLastSync returns nil, nil when the feed has never been polled.
func (s *HybridStore) GetLastSync(ctx context.Context, feed string) (*SyncState, error) {
	data, err := s.redis.Get(ctx, syncKey(feed)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var st SyncState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
