package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eaglebank/corebank/client-service/internal/repository"
	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/events"
	"github.com/eaglebank/corebank/shared/metrics"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/eaglebank/corebank/shared/utils"
	"go.uber.org/zap"
)

// ClientCommandService owns every client mutation. Each committed mutation is
// followed by exactly one client event. Mutations of one client key hold that
// key's lock across the write and the publish, so its events go out in commit
// order.
type ClientCommandService struct {
	store     repository.ClientStore
	publisher events.Publisher
	metrics   *metrics.Collector
	log       *zap.Logger
	locks     keyLocks
}

func NewClientCommandService(
	store repository.ClientStore,
	publisher events.Publisher,
	collector *metrics.Collector,
	log *zap.Logger,
) *ClientCommandService {
	return &ClientCommandService{
		store:     store,
		publisher: publisher,
		metrics:   collector,
		log:       log,
		locks:     keyLocks{held: make(map[string]*keyLock)},
	}
}

func (s *ClientCommandService) CreateClient(ctx context.Context, cmd cqrs.CreateClientCommand) (*models.Client, error) {
	if err := validateAge(cmd.Age); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	client := &models.Client{
		ClientKey: strings.TrimSpace(cmd.ClientKey),
		Name:      cmd.Name,
		Gender:    cmd.Gender,
		Age:       cmd.Age,
		IDNumber:  cmd.IDNumber,
		Address:   cmd.Address,
		Phone:     cmd.Phone,
		State:     normalizeState(cmd.State),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if client.ClientKey == "" {
		client.ClientKey = utils.GenerateClientKey()
	}
	defer s.locks.lock(client.ClientKey)()

	if err := s.store.Create(ctx, client); err != nil {
		return nil, err
	}
	s.log.Info("client created", zap.String("clientKey", client.ClientKey), zap.Int64("id", client.ID))

	s.publish(ctx, events.ClientCreated, client, "")
	return client, nil
}

// UpdateClient replaces the profile of the client named by cmd.ClientKey.
// Moving into INACTIVE from any other state is announced as a deactivation.
func (s *ClientCommandService) UpdateClient(ctx context.Context, cmd cqrs.UpdateClientCommand) (*models.Client, error) {
	if err := validateAge(cmd.Age); err != nil {
		return nil, err
	}
	defer s.locks.lock(cmd.ClientKey)()

	client, err := s.store.GetByKey(ctx, cmd.ClientKey)
	if err != nil {
		return nil, err
	}
	previousState := client.State

	client.Name = cmd.Name
	client.Gender = cmd.Gender
	client.Age = cmd.Age
	client.IDNumber = cmd.IDNumber
	client.Address = cmd.Address
	client.Phone = cmd.Phone
	if cmd.State != "" {
		client.State = normalizeState(cmd.State)
	}
	client.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, client); err != nil {
		return nil, err
	}
	s.log.Info("client updated",
		zap.String("clientKey", client.ClientKey),
		zap.String("previousState", previousState),
		zap.String("state", client.State))

	kind := events.ClientUpdated
	if client.State == models.ClientStateInactive && previousState != models.ClientStateInactive {
		kind = events.ClientDeactivated
	}
	s.publish(ctx, kind, client, previousState)
	return client, nil
}

// DeleteClient is a soft delete: the record stays for uniqueness but is
// invisible to every lookup afterwards.
func (s *ClientCommandService) DeleteClient(ctx context.Context, cmd cqrs.DeleteClientCommand) error {
	client, err := s.store.GetByID(ctx, cmd.ID)
	if err != nil {
		return err
	}
	defer s.locks.lock(client.ClientKey)()

	// re-read under the lock for an up to date previous state
	client, err = s.store.GetByID(ctx, cmd.ID)
	if err != nil {
		return err
	}
	previousState := client.State

	if err := s.store.SoftDelete(ctx, cmd.ID); err != nil {
		return err
	}
	client.State = models.ClientStateInactive
	s.log.Info("client deleted", zap.String("clientKey", client.ClientKey), zap.Int64("id", client.ID))

	s.publish(ctx, events.ClientDeleted, client, previousState)
	return nil
}

// publish runs after the write has committed. A failure only costs the
// consumers a cache miss, so it is logged and not returned.
func (s *ClientCommandService) publish(ctx context.Context, kind events.EventKind, client *models.Client, previousState string) {
	event := events.NewClientEvent(kind, client, previousState)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.EventPublished(kind.String(), "error")
		s.log.Error("failed to publish client event",
			zap.String("eventId", event.EventID),
			zap.Stringer("kind", kind),
			zap.String("clientKey", client.ClientKey),
			zap.Error(err))
		return
	}
	s.metrics.EventPublished(kind.String(), "ok")
	s.log.Debug("client event published",
		zap.String("eventId", event.EventID), zap.Stringer("kind", kind), zap.String("clientKey", client.ClientKey))
}

type keyLock struct {
	sync.Mutex
	refs int
}

// keyLocks is a set of mutexes keyed by client key. Entries live only while
// some caller holds or waits on them.
type keyLocks struct {
	mu   sync.Mutex
	held map[string]*keyLock
}

// lock blocks until key is free and returns its release func.
func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.held[key]
	if !ok {
		l = &keyLock{}
		k.held[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.held, key)
		}
		k.mu.Unlock()
	}
}

func normalizeState(state string) string {
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		return models.ClientStateActive
	}
	return state
}

// ErrInvalidAge is returned for ages outside 0..150.
var ErrInvalidAge = fmt.Errorf("%w: age must be between 0 and 150", apperrors.ErrInvalidInput)

func validateAge(age int) error {
	if age < 0 || age > 150 {
		return ErrInvalidAge
	}
	return nil
}
