// Package directory runs client directory operations against the store and
// reports each one as an event.
package directory

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/clientdir/internal/database"
	"github.com/saltyorg/clientdir/internal/events"
)

// Store is the subset of *database.DB the service needs.
type Store interface {
	InitSchema(ctx context.Context) error
	AddClient(ctx context.Context, c database.NewClient) (int64, error)
	AddPhone(ctx context.Context, clientID int64, phone string) (bool, error)
	ChangeClient(ctx context.Context, clientID int64, u database.ClientUpdate) (*database.ChangeResult, error)
	DeletePhone(ctx context.Context, clientID int64, phone string) (int64, error)
	DeleteClient(ctx context.Context, clientID int64) (*database.DeleteResult, error)
	FindClient(ctx context.Context, q database.ClientQuery, mode database.FindMode) ([]int64, error)
	GetClient(ctx context.Context, clientID int64) (*database.ClientRecord, error)
	ListClients(ctx context.Context) ([]*database.ClientRecord, error)
}

// Service wraps a Store and emits one event per completed operation.
type Service struct {
	store    Store
	notifier events.Notifier
	findMode database.FindMode
	now      func() time.Time
}

// New creates a service. A nil notifier discards events; an empty find mode
// means database.FindFirst.
func New(store Store, notifier events.Notifier, findMode database.FindMode) *Service {
	if notifier == nil {
		notifier = events.Discard
	}
	if findMode == "" {
		findMode = database.FindFirst
	}
	return &Service{
		store:    store,
		notifier: notifier,
		findMode: findMode,
		now:      time.Now,
	}
}

// FindMode returns the mode applied by Find.
func (s *Service) FindMode() database.FindMode {
	return s.findMode
}

func (s *Service) emit(ev events.Event) {
	ev.Time = s.now()
	s.notifier.Notify(ev)
}

// InitSchema wipes and recreates the directory tables.
func (s *Service) InitSchema(ctx context.Context) error {
	if err := s.store.InitSchema(ctx); err != nil {
		return err
	}
	s.emit(events.Event{Type: events.SchemaInitialized})
	return nil
}

// AddClient inserts a client (and its first phone when given).
func (s *Service) AddClient(ctx context.Context, c database.NewClient) (int64, error) {
	id, err := s.store.AddClient(ctx, c)
	if err != nil {
		return 0, err
	}
	log.Debug().Int64("client_id", id).Str("email", c.Email).Msg("Client added")

	s.emit(events.Event{Type: events.ClientAdded, ClientID: id, Name: fullName(c.FirstName, c.LastName)})
	if c.Phone != nil {
		s.emit(events.Event{Type: events.PhoneAdded, ClientID: id, Phone: *c.Phone})
	}
	return id, nil
}

// AddPhone adds phone to the client unless it is already there.
func (s *Service) AddPhone(ctx context.Context, clientID int64, phone string) (bool, error) {
	added, err := s.store.AddPhone(ctx, clientID, phone)
	if err != nil {
		return false, err
	}
	s.emitPhone(clientID, phone, added)
	return added, nil
}

func (s *Service) emitPhone(clientID int64, phone string, added bool) {
	typ := events.PhoneAdded
	if !added {
		typ = events.PhoneExists
	}
	s.emit(events.Event{Type: typ, ClientID: clientID, Phone: phone})
}

// ChangeClient applies the non-nil fields of u, one event per changed field.
func (s *Service) ChangeClient(ctx context.Context, clientID int64, u database.ClientUpdate) (*database.ChangeResult, error) {
	result, err := s.store.ChangeClient(ctx, clientID, u)
	if err != nil {
		return nil, err
	}

	for _, c := range result.Changed {
		s.emit(events.Event{Type: events.ClientChanged, ClientID: clientID, Field: c.Field, Value: c.Value})
	}
	if u.Phone != nil {
		s.emitPhone(clientID, result.Phone, result.PhoneAdded)
	}
	return result, nil
}

// DeletePhone removes a phone number from the client.
func (s *Service) DeletePhone(ctx context.Context, clientID int64, phone string) (int64, error) {
	n, err := s.store.DeletePhone(ctx, clientID, phone)
	if err != nil {
		return 0, err
	}
	s.emit(events.Event{Type: events.PhoneDeleted, ClientID: clientID, Phone: phone, Count: n})
	return n, nil
}

// DeleteClient removes the client together with all its phones.
func (s *Service) DeleteClient(ctx context.Context, clientID int64) (*database.DeleteResult, error) {
	result, err := s.store.DeleteClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	var count int64
	if result.ClientDeleted {
		count = 1
	}
	log.Debug().Int64("client_id", clientID).Int64("phones_deleted", result.PhonesDeleted).Msg("Client deleted")
	s.emit(events.Event{Type: events.ClientDeleted, ClientID: clientID, Count: count})
	return result, nil
}

// Find looks clients up using the service's find mode.
func (s *Service) Find(ctx context.Context, q database.ClientQuery) ([]int64, error) {
	return s.FindWithMode(ctx, q, s.findMode)
}

// FindWithMode looks clients up with an explicit mode.
func (s *Service) FindWithMode(ctx context.Context, q database.ClientQuery, mode database.FindMode) ([]int64, error) {
	ids, err := s.store.FindClient(ctx, q, mode)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		s.emit(events.Event{Type: events.ClientNotFound})
	} else {
		s.emit(events.Event{Type: events.ClientFound, ClientIDs: ids})
	}
	return ids, nil
}

// GetClient returns the client with its phones, or nil.
func (s *Service) GetClient(ctx context.Context, clientID int64) (*database.ClientRecord, error) {
	return s.store.GetClient(ctx, clientID)
}

// ListClients returns every client with its phones.
func (s *Service) ListClients(ctx context.Context) ([]*database.ClientRecord, error) {
	return s.store.ListClients(ctx)
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

var _ Store = (*database.DB)(nil)
