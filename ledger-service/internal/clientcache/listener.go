package clientcache

import (
	"context"
	"fmt"

	"github.com/eaglebank/corebank/shared/events"
	"github.com/eaglebank/corebank/shared/metrics"
	"go.uber.org/zap"
)

// Listener replays client events into the cache. Every kind maps to an
// overwrite or a removal, so redelivery is harmless.
type Listener struct {
	cache   *Cache
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewListener(cache *Cache, collector *metrics.Collector, log *zap.Logger) *Listener {
	return &Listener{cache: cache, metrics: collector, log: log}
}

// listenedKinds are the client events the cache reacts to.
var listenedKinds = []events.EventKind{
	events.ClientCreated,
	events.ClientUpdated,
	events.ClientDeactivated,
	events.ClientDeleted,
}

// RoutingKeys is the subscription binding for Handle.
func (l *Listener) RoutingKeys() []string {
	keys := make([]string, len(listenedKinds))
	for i, kind := range listenedKinds {
		keys[i] = kind.RoutingKey()
	}
	return keys
}

// Handle satisfies events.Handler.
func (l *Listener) Handle(ctx context.Context, event events.ClientEvent) error {
	key := event.Data.ClientKey

	switch event.Kind {
	case events.ClientCreated, events.ClientUpdated, events.ClientDeactivated:
		l.cache.Put(ctx, event.Snapshot())
	case events.ClientDeleted:
		l.cache.Delete(ctx, key)
	default:
		l.metrics.EventConsumed(event.Kind.String(), "rejected")
		return fmt.Errorf("unhandled client event kind %s", event.Kind)
	}

	l.metrics.EventConsumed(event.Kind.String(), "applied")
	l.log.Info("client event applied",
		zap.String("eventId", event.EventID),
		zap.Stringer("kind", event.Kind),
		zap.String("clientKey", key),
		zap.String("previousState", event.Data.PreviousState))
	return nil
}
