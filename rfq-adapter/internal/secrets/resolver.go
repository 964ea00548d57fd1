package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	intsecrets "github.com/portcall/adapters/internal/secrets"
	pkgsecrets "github.com/portcall/adapters/pkg/secrets"
	"github.com/portcall/adapters/rfq-adapter/pkg/config"
)

// AccountConfig is the per-account secret of the RFQ API.
//
// Secret naming convention: {env}/{account}/rfq
// Secret JSON format:       {"access_token": "...", "base_url": "https://..."}
type AccountConfig struct {
	AccessToken string
	BaseURL     string // optional override of RFQ_API_BASE_URL
}

// TokenResolver resolves the bearer token of one account and satisfies httpclient.TokenSource.
type TokenResolver struct {
	inner   *intsecrets.AWSResolver[AccountConfig]
	account string
}

// NewTokenResolver constructs a resolver for cfg.Account backed by provider and cache.
func NewTokenResolver(
	logger *zap.Logger,
	cfg config.Config,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[AccountConfig],
) *TokenResolver {
	return &TokenResolver{
		inner:   intsecrets.NewAWSResolver(logger, cfg.Env, cfg.Venue, provider, cache),
		account: cfg.Account,
	}
}

// Resolve returns the full account config.
func (r *TokenResolver) Resolve(ctx context.Context) (AccountConfig, error) {
	return r.inner.Resolve(ctx, r.account, parseAccountConfig)
}

// Token implements httpclient.TokenSource.
func (r *TokenResolver) Token(ctx context.Context) (string, error) {
	cfg, err := r.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return cfg.AccessToken, nil
}

// Invalidate forces the next Token call to refetch the secret.
func (r *TokenResolver) Invalidate() {
	r.inner.Invalidate(r.account)
}

// DiscoverAccounts lists accounts that have an RFQ secret configured.
func (r *TokenResolver) DiscoverAccounts(ctx context.Context) ([]string, error) {
	return r.inner.DiscoverAccounts(ctx)
}

func parseAccountConfig(m map[string]string) (AccountConfig, error) {
	cfg := AccountConfig{
		AccessToken: m["access_token"],
		BaseURL:     m["base_url"],
	}
	if cfg.AccessToken == "" {
		return AccountConfig{}, fmt.Errorf("missing required field 'access_token'")
	}
	return cfg, nil
}
