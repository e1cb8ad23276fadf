package clientcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/metrics"
	"github.com/eaglebank/corebank/shared/models"
	"go.uber.org/zap"
)

// Resolver turns a client key into a client snapshot: cache first, then the
// client service, populating the cache on success.
//
// Resolve is authoritative and fails with apperrors.ErrNotFound whenever the
// client cannot be confirmed; use it wherever the answer gates a write.
// ResolveBestEffort never fails and may return a placeholder; use it only for
// display.
type Resolver struct {
	cache   *Cache
	remote  RemoteLookup
	timeout time.Duration
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewResolver(cache *Cache, remote RemoteLookup, timeout time.Duration, collector *metrics.Collector, log *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{cache: cache, remote: remote, timeout: timeout, metrics: collector, log: log}
}

func (r *Resolver) Resolve(ctx context.Context, clientKey string) (*models.CachedClient, error) {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return nil, fmt.Errorf("%w: client key is required", apperrors.ErrInvalidInput)
	}

	if client, ok := r.cache.Get(ctx, clientKey); ok {
		r.log.Debug("client cache hit", zap.String("clientKey", clientKey))
		return client, nil
	}

	r.log.Debug("client cache miss, asking client service", zap.String("clientKey", clientKey))
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	client, err := r.remote.LookupClient(lookupCtx, clientKey)
	r.metrics.RemoteLookup(remoteOutcome(err))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			r.log.Info("client not found by client service", zap.String("clientKey", clientKey))
			return nil, err
		}
		r.log.Warn("client lookup failed", zap.String("clientKey", clientKey), zap.Error(err))
		return nil, fmt.Errorf("%w: client %s could not be resolved", apperrors.ErrNotFound, clientKey)
	}

	r.cache.Put(ctx, client)
	return client, nil
}

// ResolveBestEffort returns a synthesized placeholder instead of an error.
// Placeholders are never cached.
func (r *Resolver) ResolveBestEffort(ctx context.Context, clientKey string) *models.CachedClient {
	client, err := r.Resolve(ctx, clientKey)
	if err == nil {
		return client
	}
	r.log.Debug("using placeholder client", zap.String("clientKey", clientKey), zap.Error(err))
	return Placeholder(clientKey)
}

func Placeholder(clientKey string) *models.CachedClient {
	return &models.CachedClient{
		ClientKey:   clientKey,
		Name:        "Client " + clientKey,
		State:       models.ClientStateUnknown,
		Placeholder: true,
	}
}
