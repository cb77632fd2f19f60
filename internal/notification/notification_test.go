package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/saltyorg/clientdir/internal/events"
)

type capture struct {
	mu      sync.Mutex
	bodies  [][]byte
	headers []http.Header
}

func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, body)
	c.headers = append(c.headers, r.Header.Clone())
	c.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (c *capture) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.bodies...)
}

func TestManager_DeliversToWebhook(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	webhook, err := NewWebhookProvider(WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"X-Source": "clientdir"},
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewWebhookProvider returned error: %v", err)
	}

	m := NewManager(time.Second, nil, webhook)
	if !m.Start() {
		t.Fatal("expected manager to start with a provider")
	}
	m.Notify(events.Event{Type: events.ClientAdded, ClientID: 1, Name: "Vanya Ivanov"})
	m.Stop()

	bodies := c.received()
	if len(bodies) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(bodies))
	}

	var payload struct {
		Event   string       `json:"event"`
		Message string       `json:"message"`
		Data    events.Event `json:"data"`
	}
	if err := json.Unmarshal(bodies[0], &payload); err != nil {
		t.Fatalf("webhook body is not valid JSON: %v\n%s", err, bodies[0])
	}
	if payload.Event != "client_added" || payload.Message != "Added client 1 (Vanya Ivanov)" || payload.Data.ClientID != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if got := c.headers[0].Get("X-Source"); got != "clientdir" {
		t.Fatalf("expected custom header, got %q", got)
	}
}

func TestManager_FiltersEventTypes(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	discord := NewDiscordProvider(DiscordConfig{WebhookURL: srv.URL, Timeout: time.Second})
	m := NewManager(time.Second, []events.Type{events.ClientDeleted}, discord)
	m.Start()
	m.Notify(events.Event{Type: events.ClientAdded, ClientID: 1})
	m.Notify(events.Event{Type: events.ClientDeleted, ClientID: 1, Count: 1})
	m.Stop()

	bodies := c.received()
	if len(bodies) != 1 {
		t.Fatalf("expected only the delete event, got %d deliveries", len(bodies))
	}

	var payload discordWebhookPayload
	if err := json.Unmarshal(bodies[0], &payload); err != nil {
		t.Fatalf("discord body is not valid JSON: %v", err)
	}
	if payload.Username != "Clientdir" || len(payload.Embeds) != 1 || payload.Embeds[0].Description != "Client 1 deleted" {
		t.Fatalf("unexpected discord payload %+v", payload)
	}
}

func TestManager_NoProvidersDoesNotStart(t *testing.T) {
	m := NewManager(time.Second, nil)
	if m.Start() {
		t.Fatal("expected manager without providers not to start")
	}
	m.Notify(events.Event{Type: events.ClientAdded})
	m.Stop()
}

func TestNewWebhookProvider_InvalidTemplate(t *testing.T) {
	if _, err := NewWebhookProvider(WebhookConfig{URL: "http://localhost", Body: "{{.Nope"}); err == nil {
		t.Fatal("expected error for invalid template")
	}
}

func TestDiscordSend_ReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Invalid Webhook Token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	discord := NewDiscordProvider(DiscordConfig{WebhookURL: srv.URL, Timeout: time.Second})
	err := discord.Send(context.Background(), events.Event{Type: events.ClientAdded, ClientID: 1, Time: time.Now()})
	if err == nil {
		t.Fatal("expected error for rejected delivery")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "Invalid Webhook Token") {
		t.Fatalf("expected status and reason in error, got %v", err)
	}
}
