package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/portcall/adapters/internal/httpclient"
	"github.com/portcall/adapters/internal/rate"
	"github.com/portcall/adapters/pkg/secrets"
	"github.com/portcall/adapters/pkg/utils"
	"github.com/portcall/adapters/rfq-adapter/internal/metrics"
	"github.com/portcall/adapters/rfq-adapter/internal/publisher"
	"github.com/portcall/adapters/rfq-adapter/internal/rfq"
	rfqsecrets "github.com/portcall/adapters/rfq-adapter/internal/secrets"
	"github.com/portcall/adapters/rfq-adapter/pkg/config"
)

// newClient builds the facade over a rate-limited executor. The bearer token
// comes from RFQ_API_TOKEN, or from Secrets Manager when only RFQ_ACCOUNT is set.
// stop ends the secret cache cleaner.
func newClient(ctx context.Context, cfg *config.Config, logger *zap.Logger, stop <-chan struct{}) (*rfq.Client, error) {
	var tokens httpclient.TokenSource
	var onError func(*httpclient.StatusError) error
	baseURL := cfg.BaseURL

	switch {
	case cfg.AccessToken != "":
		logger.Debug("rfq.auth_static_token", zap.String("token", utils.MaskToken(cfg.AccessToken)))
		tokens = httpclient.StaticToken(cfg.AccessToken)

	case cfg.Account != "":
		resolver, err := newTokenResolver(ctx, cfg, logger, stop)
		if err != nil {
			return nil, err
		}
		acct, err := resolver.Resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve account %q: %w", cfg.Account, err)
		}
		if acct.BaseURL != "" && !cfg.BaseURLSet {
			baseURL = acct.BaseURL
		}
		tokens = resolver
		onError = invalidateOnUnauthorized(resolver)
	}

	logger.Debug("rfq.client_configured", zap.String("base_url", utils.RedactURL(baseURL)))
	return rfq.NewClient(newExecutor(cfg, logger, baseURL, tokens, onError)), nil
}

func newExecutor(
	cfg *config.Config,
	logger *zap.Logger,
	baseURL string,
	tokens httpclient.TokenSource,
	onError func(*httpclient.StatusError) error,
) *httpclient.Executor {
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RateRPS,
		Burst:             cfg.RateBurst,
	})

	return httpclient.New(logger, rateMgr, &http.Client{Timeout: cfg.HTTPTimeout}, httpclient.Config{
		BaseURL:      baseURL,
		RetryMax:     cfg.RetryMax,
		Tag:          "rfq",
		Tokens:       tokens,
		ErrorHandler: onError,
	})
}

// invalidator is satisfied by *secrets.TokenResolver.
type invalidator interface {
	Invalidate()
}

// invalidateOnUnauthorized drops the cached secret on a 401 so the next call
// refetches it. The executor's error is returned unchanged.
func invalidateOnUnauthorized(inv invalidator) func(*httpclient.StatusError) error {
	return func(serr *httpclient.StatusError) error {
		if serr.StatusCode == http.StatusUnauthorized {
			inv.Invalidate()
		}
		return serr
	}
}

func newTokenResolver(ctx context.Context, cfg *config.Config, logger *zap.Logger, stop <-chan struct{}) (*rfqsecrets.TokenResolver, error) {
	provider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("aws secrets provider: %w", err)
	}
	cache := secrets.NewCache[rfqsecrets.AccountConfig](cfg.CacheTTL)
	cache.OnAccess = metrics.IncCacheAccess
	go cache.StartCleaner(cfg.CleanupFreq, stop)

	return rfqsecrets.NewTokenResolver(logger, *cfg, provider, cache), nil
}

// newPublisher connects the configured event backend.
func newPublisher(cfg *config.Config, subject string, logger *zap.Logger) (*publisher.Publisher, error) {
	var sink publisher.Sink
	switch cfg.EventsBackend {
	case "nats":
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		s, err := publisher.NewNATSSink(nc, cfg.ServiceName)
		if err != nil {
			nc.Close()
			return nil, err
		}
		sink = s
	case "amqp":
		s, err := publisher.NewAMQPSink(cfg.AMQPURL, cfg.EventsExchange, cfg.ServiceName)
		if err != nil {
			return nil, err
		}
		sink = s
	case "none", "":
		sink = publisher.NopSink{}
	default:
		return nil, fmt.Errorf("unknown EVENTS_BACKEND %q", cfg.EventsBackend)
	}
	return publisher.New(sink, cfg.EventsBackend, subject, logger), nil
}
