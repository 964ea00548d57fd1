package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pkgsecrets "github.com/portcall/adapters/pkg/secrets"
)

// AWSResolver resolves per-account configuration from AWS Secrets Manager,
// caching results locally. It is generic over the parsed config type T.
//
// Secret naming convention: {env}/{account}/{venue}
type AWSResolver[T any] struct {
	logger   *zap.Logger
	env      string
	venue    string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[T]
}

// NewAWSResolver constructs a generic per-account config resolver.
func NewAWSResolver[T any](
	logger *zap.Logger,
	env string,
	venue string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[T],
) *AWSResolver[T] {
	return &AWSResolver[T]{
		logger:   logger,
		env:      env,
		venue:    venue,
		provider: provider,
		cache:    cache,
	}
}

func (r *AWSResolver[T]) cacheKey(account string) string {
	return strings.ToLower(account + "|" + r.venue)
}

// SecretName returns the Secrets Manager key for an account.
func (r *AWSResolver[T]) SecretName(account string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, account, r.venue))
}

// Resolve returns the cached config for account, fetching and parsing it on a miss.
// parse should validate required fields.
func (r *AWSResolver[T]) Resolve(ctx context.Context, account string, parse func(map[string]string) (T, error)) (T, error) {
	var zero T
	key := r.cacheKey(account)

	if cfg, ok := r.cache.Get(key); ok {
		return cfg, nil
	}

	name := r.SecretName(account)
	raw, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", name),
			zap.Error(err))
		return zero, fmt.Errorf("resolve config for %q: %w", account, err)
	}

	cfg, err := parse(raw)
	if err != nil {
		return zero, fmt.Errorf("parse secret %q: %w", name, err)
	}

	r.cache.Put(key, cfg)

	r.logger.Info("aws.config_resolved",
		zap.String("account", account),
		zap.String("venue", r.venue),
	)
	return cfg, nil
}

// Invalidate drops the cached config for account so the next Resolve refetches it.
func (r *AWSResolver[T]) Invalidate(account string) {
	r.cache.Bust(r.cacheKey(account))
}

// DiscoverAccounts lists the accounts that have a secret for this venue,
// i.e. names shaped "{env}/{account}/{venue}".
func (r *AWSResolver[T]) DiscoverAccounts(ctx context.Context) ([]string, error) {
	prefix := strings.ToLower(r.env + "/")
	suffix := "/" + strings.ToLower(r.venue)

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover accounts: %w", err)
	}

	var accounts []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
			continue
		}
		middle := strings.TrimSuffix(strings.TrimPrefix(lower, prefix), suffix)
		if middle != "" && !strings.Contains(middle, "/") {
			accounts = append(accounts, middle)
		}
	}

	r.logger.Info("aws.accounts_discovered",
		zap.Int("count", len(accounts)),
		zap.Strings("accounts", accounts),
	)
	return accounts, nil
}
