package clientcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/events"
	"github.com/eaglebank/corebank/shared/metrics"
	"github.com/eaglebank/corebank/shared/models"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ---- mock implementations ----

type mockRemote struct {
	calls    atomic.Int32
	lookupFn func(ctx context.Context, key string) (*models.CachedClient, error)
}

func (m *mockRemote) LookupClient(ctx context.Context, key string) (*models.CachedClient, error) {
	m.calls.Add(1)
	if m.lookupFn != nil {
		return m.lookupFn(ctx, key)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client, DefaultKeyPrefix, time.Hour, metrics.NewCollector(), zap.NewNop()), mr
}

var testClient = &models.CachedClient{
	ID: 1, ClientKey: "CLI-1", Name: "Jose Lema", State: models.ClientStateActive,
}

// ---- cache ----

func TestCachePutGetDelete(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Put(ctx, testClient)
	if !mr.Exists("client:CLI-1") {
		t.Fatal("expected prefixed key in redis")
	}
	if ttl := mr.TTL("client:CLI-1"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	got, ok := cache.Get(ctx, "CLI-1")
	if !ok || got.Name != "Jose Lema" {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	cache.Delete(ctx, "CLI-1")
	if _, ok := cache.Get(ctx, "CLI-1"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestCacheRefusesPlaceholders(t *testing.T) {
	cache, mr := newTestCache(t)
	cache.Put(context.Background(), Placeholder("CLI-9"))
	if mr.Exists("client:CLI-9") {
		t.Fatal("placeholder must not be cached")
	}
}

// ---- resolver ----

func TestResolveCacheHitSkipsRemote(t *testing.T) {
	cache, _ := newTestCache(t)
	remote := &mockRemote{}
	r := NewResolver(cache, remote, time.Second, metrics.NewCollector(), zap.NewNop())
	ctx := context.Background()
	cache.Put(ctx, testClient)

	got, err := r.Resolve(ctx, "CLI-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Name != testClient.Name {
		t.Errorf("Name = %q", got.Name)
	}
	if n := remote.calls.Load(); n != 0 {
		t.Errorf("remote calls = %d, want 0", n)
	}
}

func TestResolveMissPopulatesCache(t *testing.T) {
	cache, _ := newTestCache(t)
	remote := &mockRemote{lookupFn: func(context.Context, string) (*models.CachedClient, error) {
		c := *testClient
		return &c, nil
	}}
	r := NewResolver(cache, remote, time.Second, metrics.NewCollector(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(ctx, "CLI-1"); err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
	}
	if n := remote.calls.Load(); n != 1 {
		t.Errorf("remote calls = %d, want exactly 1", n)
	}
	if _, ok := cache.Get(ctx, "CLI-1"); !ok {
		t.Error("expected cache to be populated")
	}
}

func TestResolveFailuresAreNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"remote not found", fmt.Errorf("%w: client CLI-1", apperrors.ErrNotFound)},
		{"remote unavailable", fmt.Errorf("%w: connection refused", apperrors.ErrRemoteUnavailable)},
		{"unexpected error", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, mr := newTestCache(t)
			remote := &mockRemote{lookupFn: func(context.Context, string) (*models.CachedClient, error) {
				return nil, tt.err
			}}
			r := NewResolver(cache, remote, time.Second, metrics.NewCollector(), zap.NewNop())

			_, err := r.Resolve(context.Background(), "CLI-1")
			if !errors.Is(err, apperrors.ErrNotFound) {
				t.Fatalf("err = %v, want not found", err)
			}
			if errors.Is(err, apperrors.ErrRemoteUnavailable) {
				t.Error("transport failure leaked to caller")
			}
			if mr.Exists("client:CLI-1") {
				t.Error("cache must stay unpopulated")
			}
		})
	}
}

func TestResolveTimeoutIsNotFound(t *testing.T) {
	cache, _ := newTestCache(t)
	remote := &mockRemote{lookupFn: func(ctx context.Context, _ string) (*models.CachedClient, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRemoteUnavailable, ctx.Err())
	}}
	r := NewResolver(cache, remote, 20*time.Millisecond, metrics.NewCollector(), zap.NewNop())

	start := time.Now()
	_, err := r.Resolve(context.Background(), "CLI-1")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("resolution took %v, timeout not honoured", elapsed)
	}
}

func TestResolveSurvivesCacheOutage(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()
	remote := &mockRemote{lookupFn: func(context.Context, string) (*models.CachedClient, error) {
		c := *testClient
		return &c, nil
	}}
	r := NewResolver(cache, remote, time.Second, metrics.NewCollector(), zap.NewNop())

	got, err := r.Resolve(context.Background(), "CLI-1")
	if err != nil || got.ClientKey != "CLI-1" {
		t.Fatalf("Resolve with redis down = %+v, %v", got, err)
	}
}

func TestResolveBestEffortPlaceholder(t *testing.T) {
	cache, mr := newTestCache(t)
	remote := &mockRemote{lookupFn: func(context.Context, string) (*models.CachedClient, error) {
		return nil, apperrors.ErrRemoteUnavailable
	}}
	r := NewResolver(cache, remote, time.Second, metrics.NewCollector(), zap.NewNop())

	got := r.ResolveBestEffort(context.Background(), "CLI-7")
	if !got.Placeholder || got.Name != "Client CLI-7" || got.State != models.ClientStateUnknown {
		t.Errorf("unexpected placeholder %+v", got)
	}
	if mr.Exists("client:CLI-7") {
		t.Error("placeholder leaked into cache")
	}
}

// ---- listener ----

func TestListenerAppliesEvents(t *testing.T) {
	cache, _ := newTestCache(t)
	l := NewListener(cache, metrics.NewCollector(), zap.NewNop())
	ctx := context.Background()

	client := &models.Client{ID: 1, ClientKey: "CLI-1", Name: "Jose Lema", State: models.ClientStateActive}
	created := events.NewClientEvent(events.ClientCreated, client, "")

	// duplicated delivery is a plain overwrite
	for i := 0; i < 2; i++ {
		if err := l.Handle(ctx, created); err != nil {
			t.Fatal(err)
		}
	}
	got, ok := cache.Get(ctx, "CLI-1")
	if !ok || got.Name != "Jose Lema" {
		t.Fatalf("after CREATED: %+v, %v", got, ok)
	}

	client.State = models.ClientStateInactive
	if err := l.Handle(ctx, events.NewClientEvent(events.ClientDeactivated, client, models.ClientStateActive)); err != nil {
		t.Fatal(err)
	}
	if got, _ := cache.Get(ctx, "CLI-1"); got == nil || got.State != models.ClientStateInactive {
		t.Fatalf("after DEACTIVATED: %+v", got)
	}

	deleted := events.NewClientEvent(events.ClientDeleted, client, models.ClientStateInactive)
	for i := 0; i < 2; i++ {
		if err := l.Handle(ctx, deleted); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := cache.Get(ctx, "CLI-1"); ok {
		t.Fatal("expected key removed after DELETED")
	}
}

func TestListenerRejectsUnknownKind(t *testing.T) {
	cache, _ := newTestCache(t)
	l := NewListener(cache, metrics.NewCollector(), zap.NewNop())

	err := l.Handle(context.Background(), events.ClientEvent{Kind: events.EventKind(99), Data: events.ClientEventData{ClientKey: "CLI-1"}})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestListenerRoutingKeys(t *testing.T) {
	l := NewListener(nil, metrics.NewCollector(), zap.NewNop())

	want := []string{"client.created", "client.updated", "client.deactivated", "client.deleted"}
	got := l.RoutingKeys()
	if len(got) != len(want) {
		t.Fatalf("RoutingKeys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RoutingKeys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// ---- remote ----

func TestHTTPLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/clients/CLI-1":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":1,"clientKey":"CLI-1","name":"Jose Lema","state":"ACTIVE","extra":"ignored"}`)
		case "/internal/clients/CLI-404":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	lookup := NewHTTPLookup(srv.URL+"/", time.Second)
	ctx := context.Background()

	got, err := lookup.LookupClient(ctx, "CLI-1")
	if err != nil || got.Name != "Jose Lema" {
		t.Fatalf("LookupClient = %+v, %v", got, err)
	}
	if _, err := lookup.LookupClient(ctx, "CLI-404"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("404 should map to not found, got %v", err)
	}
	if _, err := lookup.LookupClient(ctx, "CLI-500"); !errors.Is(err, apperrors.ErrRemoteUnavailable) {
		t.Errorf("500 should map to remote unavailable, got %v", err)
	}
}

func TestHTTPLookupUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPLookup(addr, 200*time.Millisecond).LookupClient(context.Background(), "CLI-1")
	if !errors.Is(err, apperrors.ErrRemoteUnavailable) {
		t.Fatalf("err = %v", err)
	}
}
