package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/models"
)

// MemoryClientStore keeps clients in process. It enforces the same
// uniqueness rules as the clients table.
type MemoryClientStore struct {
	mu      sync.RWMutex
	nextID  int64
	clients map[int64]*models.Client
	deleted map[int64]bool
}

func NewMemoryClientStore() *MemoryClientStore {
	return &MemoryClientStore{
		clients: make(map[int64]*models.Client),
		deleted: make(map[int64]bool),
	}
}

func (s *MemoryClientStore) Create(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(client, 0); err != nil {
		return err
	}
	s.nextID++
	client.ID = s.nextID
	stored := *client
	s.clients[stored.ID] = &stored
	return nil
}

func (s *MemoryClientStore) GetByID(_ context.Context, id int64) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok || s.deleted[id] {
		return nil, fmt.Errorf("%w: client %d", apperrors.ErrNotFound, id)
	}
	out := *c
	return &out, nil
}

func (s *MemoryClientStore) GetByKey(_ context.Context, clientKey string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, c := range s.clients {
		if c.ClientKey == clientKey && !s.deleted[id] {
			out := *c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: client %s", apperrors.ErrNotFound, clientKey)
}

func (s *MemoryClientStore) List(_ context.Context) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Client, 0, len(s.clients))
	for id, c := range s.clients {
		if !s.deleted[id] {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryClientStore) Update(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client.ID]; !ok || s.deleted[client.ID] {
		return fmt.Errorf("%w: client %d", apperrors.ErrNotFound, client.ID)
	}
	if err := s.checkUnique(client, client.ID); err != nil {
		return err
	}
	stored := *client
	s.clients[client.ID] = &stored
	return nil
}

func (s *MemoryClientStore) SoftDelete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok || s.deleted[id] {
		return fmt.Errorf("%w: client %d", apperrors.ErrNotFound, id)
	}
	c.State = models.ClientStateInactive
	s.deleted[id] = true
	return nil
}

// checkUnique covers soft-deleted rows too, as the table constraints do.
func (s *MemoryClientStore) checkUnique(client *models.Client, selfID int64) error {
	for id, c := range s.clients {
		if id == selfID {
			continue
		}
		if c.ClientKey == client.ClientKey {
			return fmt.Errorf("%w: client key %s already exists", apperrors.ErrConflict, client.ClientKey)
		}
		if c.IDNumber == client.IDNumber {
			return fmt.Errorf("%w: identification %s already exists", apperrors.ErrConflict, client.IDNumber)
		}
	}
	return nil
}
