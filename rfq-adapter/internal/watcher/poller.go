package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/portcall/adapters/pkg/model"
	"github.com/portcall/adapters/rfq-adapter/internal/metrics"
	"github.com/portcall/adapters/rfq-adapter/internal/rfq"
	"github.com/portcall/adapters/rfq-adapter/internal/store"
)

const (
	FeedList   = "list"
	FeedMarket = "market"

	// DefaultInterval replaces a non-positive poll interval.
	DefaultInterval = 30 * time.Second
)

// Source fetches the current snapshot of a feed.
type Source func(ctx context.Context) ([]rfq.RFQ, error)

// Feeds is satisfied by *rfq.Client.
type Feeds interface {
	List(ctx context.Context) ([]rfq.RFQ, error)
	Market(ctx context.Context) ([]rfq.RFQ, error)
}

// SourceFor returns the client operation backing feed.
func SourceFor(c Feeds, feed string) (Source, error) {
	switch feed {
	case FeedList:
		return c.List, nil
	case FeedMarket:
		return c.Market, nil
	default:
		return nil, fmt.Errorf("unknown feed %q (want %q or %q)", feed, FeedList, FeedMarket)
	}
}

// EventPublisher is satisfied by *publisher.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, env *model.Envelope) error
}

// Poller announces RFQs that appear on a feed.
type Poller struct {
	logger   *zap.Logger
	source   Source
	store    store.Store
	pub      EventPublisher
	feed     string
	subject  string
	service  string
	interval time.Duration
}

func NewPoller(
	logger *zap.Logger,
	source Source,
	st store.Store,
	pub EventPublisher,
	feed, subject, service string,
	interval time.Duration,
) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		logger:   logger,
		source:   source,
		store:    st,
		pub:      pub,
		feed:     feed,
		subject:  subject,
		service:  service,
		interval: interval,
	}
}

// Run polls once immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("rfq.watch_started",
		zap.String("feed", p.feed),
		zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("rfq.watch_poll_failed",
				zap.String("feed", p.feed),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			p.logger.Info("rfq.watch_stopped", zap.String("feed", p.feed))
			return
		case <-ticker.C:
		}
	}
}

// PollOnce fetches the feed and announces every RFQ not seen before.
// It returns the number of RFQs announced in this pass.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	items, err := p.source(ctx)
	if err != nil {
		metrics.IncError("watcher", "fetch")
		return 0, fmt.Errorf("fetch %s feed: %w", p.feed, err)
	}

	discovered := 0
	for _, r := range items {
		if ctx.Err() != nil {
			return discovered, ctx.Err()
		}
		ok, err := p.announce(ctx, r)
		if err != nil {
			p.logger.Warn("rfq.watch_announce_failed",
				zap.String("feed", p.feed),
				zap.Int64("rfq_id", r.ID),
				zap.Error(err))
			continue
		}
		if ok {
			discovered++
		}
	}

	state := store.SyncState{At: time.Now().UTC(), Total: len(items), Discovered: discovered}
	if err := p.store.SetLastSync(ctx, p.feed, state); err != nil {
		p.logger.Warn("rfq.watch_sync_state_failed", zap.String("feed", p.feed), zap.Error(err))
	}
	metrics.SetLastPoll("watcher", state.At)

	if discovered > 0 {
		p.logger.Info("rfq.watch_discovered",
			zap.String("feed", p.feed),
			zap.Int("count", discovered),
			zap.Int("total", len(items)))
	}
	return discovered, nil
}

// announce publishes r if it is new. A failed publish releases the seen marker
// so the next pass retries.
func (p *Poller) announce(ctx context.Context, r rfq.RFQ) (bool, error) {
	first, err := p.store.MarkSeen(ctx, p.feed, r.ID)
	if err != nil {
		metrics.IncError("watcher", "store")
		return false, err
	}
	if !first {
		return false, nil
	}

	if err := p.store.Archive(ctx, p.feed, r); err != nil {
		// the archive is best effort; announcing still proceeds
		p.logger.Warn("rfq.archive_failed", zap.Int64("rfq_id", r.ID), zap.Error(err))
	}

	env, err := model.NewEnvelope(p.service, p.subject, model.EventRFQDiscovered, r)
	if err != nil {
		p.release(ctx, r.ID)
		return false, err
	}
	env.Context = model.Context{RFQID: r.ID, Port: r.Port, Feed: p.feed}

	if err := p.pub.Publish(ctx, p.subject, env); err != nil {
		p.release(ctx, r.ID)
		return false, err
	}

	metrics.IncDiscovered(p.feed)
	return true, nil
}

func (p *Poller) release(ctx context.Context, id int64) {
	if err := p.store.Unmark(ctx, p.feed, id); err != nil {
		p.logger.Warn("rfq.watch_unmark_failed", zap.Int64("rfq_id", id), zap.Error(err))
	}
}
