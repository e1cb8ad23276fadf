package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eaglebank/corebank/shared/models"
	"github.com/google/uuid"
)

// Topic/stream names
const (
	ClientEventsStream = "client-events"
)

// SchemaVersion is bumped only for incompatible envelope changes. Adding
// fields keeps the version; consumers ignore fields they do not know.
const SchemaVersion = 1

// EventKind is the closed set of client lifecycle events.
type EventKind int

const (
	ClientCreated EventKind = iota + 1
	ClientUpdated
	ClientDeactivated
	ClientDeleted
)

var kindNames = map[EventKind]string{
	ClientCreated:     "CLIENT_CREATED",
	ClientUpdated:     "CLIENT_UPDATED",
	ClientDeactivated: "CLIENT_DEACTIVATED",
	ClientDeleted:     "CLIENT_DELETED",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// RoutingKey is the per-kind key the transports bind on, e.g. client.created.
func (k EventKind) RoutingKey() string {
	name, ok := kindNames[k]
	if !ok {
		return "client.unknown"
	}
	return strings.ToLower(strings.Replace(name, "_", ".", 1))
}

func (k EventKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func ParseEventKind(s string) (EventKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown client event kind %q", s)
}

func (k EventKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", k)
	}
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ClientEvent is the envelope published for every client mutation.
type ClientEvent struct {
	EventID   string          `json:"eventId"`
	Kind      EventKind       `json:"eventType"`
	Version   int             `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      ClientEventData `json:"data"`
}

// ClientEventData is a full snapshot of the client's public fields.
// PreviousState is the state label right before the mutation.
type ClientEventData struct {
	ID            int64  `json:"id"`
	ClientKey     string `json:"clientKey"`
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	Age           int    `json:"age"`
	IDNumber      string `json:"idNumber"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	State         string `json:"state"`
	PreviousState string `json:"previousState,omitempty"`
}

// NewClientEvent builds an envelope with a fresh id and timestamp.
func NewClientEvent(kind EventKind, c *models.Client, previousState string) ClientEvent {
	return ClientEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		Version:   SchemaVersion,
		Timestamp: time.Now().UTC(),
		Data: ClientEventData{
			ID:            c.ID,
			ClientKey:     c.ClientKey,
			Name:          c.Name,
			Gender:        c.Gender,
			Age:           c.Age,
			IDNumber:      c.IDNumber,
			Address:       c.Address,
			Phone:         c.Phone,
			State:         c.State,
			PreviousState: previousState,
		},
	}
}

// Snapshot returns the cacheable view of the event payload.
func (e ClientEvent) Snapshot() *models.CachedClient {
	return &models.CachedClient{
		ID:        e.Data.ID,
		ClientKey: e.Data.ClientKey,
		Name:      e.Data.Name,
		Gender:    e.Data.Gender,
		Age:       e.Data.Age,
		IDNumber:  e.Data.IDNumber,
		Address:   e.Data.Address,
		Phone:     e.Data.Phone,
		State:     e.Data.State,
	}
}

// Encode serialises the envelope for any transport.
func Encode(e ClientEvent) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// Decode parses and validates an envelope read off any transport.
func Decode(data []byte) (ClientEvent, error) {
	var e ClientEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ClientEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if !e.Kind.Valid() {
		return ClientEvent{}, fmt.Errorf("event %s has no kind", e.EventID)
	}
	if e.Data.ClientKey == "" {
		return ClientEvent{}, fmt.Errorf("event %s carries no client key", e.EventID)
	}
	return e, nil
}

// Publisher sends client events onto the bus.
type Publisher interface {
	Publish(ctx context.Context, event ClientEvent) error
}

// Handler processes one delivered event. Returned errors are logged by the
// subscriber and the message is dropped.
type Handler func(ctx context.Context, event ClientEvent) error
