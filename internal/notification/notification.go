// Package notification forwards directory events to external webhooks.
package notification

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/clientdir/internal/events"
)

// Provider is the interface for notification providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Send delivers one event
	Send(ctx context.Context, event events.Event) error
}

// Manager queues events and dispatches them to every provider in the
// background. It implements events.Notifier.
type Manager struct {
	providers []Provider
	only      []events.Type
	timeout   time.Duration
	mu        sync.RWMutex
	queue     chan events.Event
	stopChan  chan struct{}
	wg        sync.WaitGroup

	// Running state
	running bool
}

// NewManager creates a manager. When only is non-empty, other event types
// are ignored.
func NewManager(timeout time.Duration, only []events.Type, providers ...Provider) *Manager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		providers: providers,
		only:      only,
		timeout:   timeout,
		queue:     make(chan events.Event, 100),
		stopChan:  make(chan struct{}),
	}
}

// Providers returns the configured provider names
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	return names
}

// Start starts the dispatcher.
// Returns true if the manager was started (providers exist), false otherwise.
func (m *Manager) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return true
	}
	if len(m.providers) == 0 {
		return false
	}

	m.running = true
	m.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("Notification dispatcher panicked")
			}
		}()
		m.dispatcher()
	})
	log.Debug().Strs("providers", m.Providers()).Msg("Notification manager started")
	return true
}

// Stop delivers whatever is still queued and stops the dispatcher
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopChan)
	m.wg.Wait()

	// Recreate stopChan for potential restart
	m.stopChan = make(chan struct{})

	log.Debug().Msg("Notification manager stopped")
}

// Notify queues an event for delivery
func (m *Manager) Notify(event events.Event) {
	if len(m.only) > 0 && !slices.Contains(m.only, event.Type) {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return
	}

	select {
	case m.queue <- event:
	default:
		log.Warn().Str("type", string(event.Type)).Msg("Notification queue full, dropping event")
	}
}

// dispatcher processes events until stopped, then drains the queue
func (m *Manager) dispatcher() {
	for {
		select {
		case <-m.stopChan:
			for {
				select {
				case event := <-m.queue:
					m.dispatch(event)
				default:
					return
				}
			}
		case event := <-m.queue:
			m.dispatch(event)
		}
	}
}

// dispatch sends an event to all providers
func (m *Manager) dispatch(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	for _, provider := range m.providers {
		if err := provider.Send(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("provider", provider.Name()).
				Str("event", string(event.Type)).
				Msg("Failed to send notification")
			continue
		}
		log.Debug().
			Str("provider", provider.Name()).
			Str("event", string(event.Type)).
			Msg("Notification sent")
	}
}
