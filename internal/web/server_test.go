package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/saltyorg/clientdir/internal/config"
	"github.com/saltyorg/clientdir/internal/database"
	"github.com/saltyorg/clientdir/internal/directory"
	"github.com/saltyorg/clientdir/internal/events"
	"github.com/saltyorg/clientdir/internal/maintenance"
)

func newTestServer(t *testing.T, tokenHash string) (*httptest.Server, *events.Hub) {
	t.Helper()

	db, err := database.New(database.Options{Driver: database.DialectSQLite, Name: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema returned error: %v", err)
	}

	hub := events.NewHub(time.Second)
	t.Cleanup(hub.Stop)

	svc := directory.New(db, hub, database.FindFirst)
	s := NewServer(svc, hub, config.HTTPConfig{TokenHash: tokenHash}, nil)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, hub
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestAPI_ClientLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, "")

	var created database.ClientRecord
	status := doJSON(t, http.MethodPost, ts.URL+"/api/clients", map[string]any{
		"first_name": "Vanya",
		"last_name":  "Ivanov",
		"email":      "god@ya.ru",
		"phone":      "5474578123",
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if created.ID != 1 || len(created.Phones) != 1 || created.Phones[0].Phone != "5474578123" {
		t.Fatalf("unexpected created client %+v", created)
	}

	var phone struct {
		Added bool `json:"added"`
	}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/clients/1/phones", map[string]string{"phone": "3476347343"}, &phone); status != http.StatusCreated || !phone.Added {
		t.Fatalf("expected phone to be added, got status %d %+v", status, phone)
	}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/clients/1/phones", map[string]string{"phone": "3476347343"}, &phone); status != http.StatusOK || phone.Added {
		t.Fatalf("expected duplicate phone to be skipped, got status %d %+v", status, phone)
	}

	var change database.ChangeResult
	if status := doJSON(t, http.MethodPatch, ts.URL+"/api/clients/1", map[string]string{"first_name": "Petya"}, &change); status != http.StatusOK {
		t.Fatalf("expected 200 from PATCH, got %d", status)
	}
	if len(change.Changed) != 1 || change.Changed[0].Value != "Petya" {
		t.Fatalf("unexpected change result %+v", change)
	}

	var found struct {
		ClientIDs []int64 `json:"client_ids"`
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/clients/search?phone=3476347343", nil, &found); status != http.StatusOK {
		t.Fatalf("expected 200 from search, got %d", status)
	}
	if len(found.ClientIDs) != 1 || found.ClientIDs[0] != 1 {
		t.Fatalf("unexpected search result %+v", found)
	}

	var deleted struct {
		Deleted int64 `json:"deleted"`
	}
	if status := doJSON(t, http.MethodDelete, ts.URL+"/api/clients/1/phones/5474578123", nil, &deleted); status != http.StatusOK || deleted.Deleted != 1 {
		t.Fatalf("unexpected phone delete: status %d %+v", status, deleted)
	}

	var got database.ClientRecord
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/clients/1", nil, &got); status != http.StatusOK {
		t.Fatalf("expected 200 from GET, got %d", status)
	}
	if got.FirstName != "Petya" || len(got.Phones) != 1 || got.Phones[0].Phone != "3476347343" {
		t.Fatalf("unexpected client %+v", got)
	}

	var result database.DeleteResult
	if status := doJSON(t, http.MethodDelete, ts.URL+"/api/clients/1", nil, &result); status != http.StatusOK {
		t.Fatalf("expected 200 from DELETE, got %d", status)
	}
	if !result.ClientDeleted || result.PhonesDeleted != 1 {
		t.Fatalf("unexpected delete result %+v", result)
	}

	if status := doJSON(t, http.MethodGet, ts.URL+"/api/clients/1", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}

	var clients []database.ClientRecord
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/clients", nil, &clients); status != http.StatusOK || len(clients) != 0 {
		t.Fatalf("expected empty list, got status %d %+v", status, clients)
	}
}

func TestAPI_DeletePhoneEscapedPath(t *testing.T) {
	ts, _ := newTestServer(t, "")

	status := doJSON(t, http.MethodPost, ts.URL+"/api/clients", map[string]any{
		"first_name": "Sasha",
		"email":      "Sasha@ya.ru",
		"phone":      "+7 999 123",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/clients/1/phones", map[string]string{"phone": "8 800 555"}, nil); status != http.StatusCreated {
		t.Fatalf("expected 201 adding second phone, got %d", status)
	}

	tests := []struct {
		name    string
		segment string
		phone   string
	}{
		{"plus and space escaped", "%2B7%20999%20123", "+7 999 123"},
		{"space escaped", "8%20800%20555", "8 800 555"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var deleted struct {
				Phone   string `json:"phone"`
				Deleted int64  `json:"deleted"`
			}
			status := doJSON(t, http.MethodDelete, ts.URL+"/api/clients/1/phones/"+tt.segment, nil, &deleted)
			if status != http.StatusOK {
				t.Fatalf("expected 200, got %d", status)
			}
			if deleted.Phone != tt.phone || deleted.Deleted != 1 {
				t.Fatalf("expected %q to be deleted once, got %+v", tt.phone, deleted)
			}
		})
	}

	var got database.ClientRecord
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/clients/1", nil, &got); status != http.StatusOK {
		t.Fatalf("expected 200 from GET, got %d", status)
	}
	if len(got.Phones) != 0 {
		t.Fatalf("expected no phones left, got %+v", got.Phones)
	}
}

func TestAPI_ErrorStatuses(t *testing.T) {
	ts, _ := newTestServer(t, "")

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		expected int
	}{
		{"missing email", http.MethodPost, "/api/clients", map[string]string{"first_name": "Igor"}, http.StatusConflict},
		{"phone for unknown client", http.MethodPost, "/api/clients/99/phones", map[string]string{"phone": "1"}, http.StatusConflict},
		{"empty phone", http.MethodPost, "/api/clients/1/phones", map[string]string{"phone": " "}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/clients/abc", nil, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/clients", map[string]string{"nickname": "x"}, http.StatusBadRequest},
		{"empty update", http.MethodPatch, "/api/clients/1", map[string]string{}, http.StatusBadRequest},
		{"bad mode", http.MethodGet, "/api/clients/search?first_name=Igor&mode=some", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				Error string `json:"error"`
			}
			status := doJSON(t, tt.method, ts.URL+tt.path, tt.body, &body)
			if status != tt.expected {
				t.Fatalf("expected %d, got %d (%s)", tt.expected, status, body.Error)
			}
			if body.Error == "" {
				t.Fatal("expected an error message")
			}
		})
	}
}

func TestAPI_SearchModes(t *testing.T) {
	ts, _ := newTestServer(t, "")

	for _, email := range []string{"a@ya.ru", "b@ya.ru", "c@ya.ru"} {
		if status := doJSON(t, http.MethodPost, ts.URL+"/api/clients", map[string]string{"last_name": "Ivanov", "email": email}, nil); status != http.StatusCreated {
			t.Fatalf("expected 201, got %d", status)
		}
	}

	tests := []struct {
		query    string
		expected []int64
	}{
		{"last_name=Ivanov", []int64{1}},
		{"last_name=Ivanov&mode=all", []int64{1, 2, 3}},
		{"last_name=Petrov&mode=all", []int64{}},
		{"", []int64{}},
	}

	for _, tt := range tests {
		var found struct {
			ClientIDs []int64 `json:"client_ids"`
		}
		if status := doJSON(t, http.MethodGet, ts.URL+"/api/clients/search?"+tt.query, nil, &found); status != http.StatusOK {
			t.Fatalf("search %q: expected 200, got %d", tt.query, status)
		}
		if len(found.ClientIDs) != len(tt.expected) {
			t.Fatalf("search %q: expected %v, got %v", tt.query, tt.expected, found.ClientIDs)
		}
		for i := range tt.expected {
			if found.ClientIDs[i] != tt.expected[i] {
				t.Fatalf("search %q: expected %v, got %v", tt.query, tt.expected, found.ClientIDs)
			}
		}
	}
}

func TestAPI_TokenAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash token: %v", err)
	}
	ts, _ := newTestServer(t, string(hash))

	resp, err := http.Get(ts.URL + "/api/clients")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/clients", nil)
	req.Header.Set("Authorization", "Bearer letmein")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected /health to skip auth, got %d", resp.StatusCode)
	}
}

func TestAPI_EventFeed(t *testing.T) {
	ts, hub := newTestServer(t, "")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial event feed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for websocket registration")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if status := doJSON(t, http.MethodPost, ts.URL+"/api/clients", map[string]string{"first_name": "Igor", "last_name": "Petrov", "email": "Igor@ya.ru"}, nil); status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev events.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if ev.Type != events.ClientAdded || ev.ClientID != 1 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAPI_HealthReportsMaintenance(t *testing.T) {
	db, err := database.New(database.Options{Driver: database.DialectSQLite, Name: filepath.Join(t.TempDir(), "health.db")})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema returned error: %v", err)
	}

	hub := events.NewHub(time.Second)
	t.Cleanup(hub.Stop)
	s := NewServer(directory.New(db, hub, database.FindFirst), hub, config.HTTPConfig{}, nil)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	var plain map[string]any
	if status := doJSON(t, http.MethodGet, ts.URL+"/health", nil, &plain); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if _, ok := plain["maintenance"]; ok {
		t.Errorf("expected no maintenance field without a scheduler, got %v", plain)
	}

	scheduler, err := maintenance.NewScheduler(db, "@daily")
	if err != nil {
		t.Fatalf("NewScheduler returned error: %v", err)
	}
	scheduler.Start()
	t.Cleanup(scheduler.Stop)
	if err := scheduler.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	s.SetMaintenance(scheduler)

	var health struct {
		Status      string              `json:"status"`
		Maintenance *maintenance.Status `json:"maintenance"`
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/health", nil, &health); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
	if health.Maintenance == nil {
		t.Fatal("expected maintenance status in health response")
	}
	if !health.Maintenance.Running || health.Maintenance.Schedule != "@daily" {
		t.Errorf("unexpected maintenance status: %+v", health.Maintenance)
	}
	if health.Maintenance.LastRun == nil || health.Maintenance.NextRun == nil {
		t.Errorf("expected last and next run to be reported, got %+v", health.Maintenance)
	}
	if health.Maintenance.LastErr != "" {
		t.Errorf("expected no maintenance error, got %q", health.Maintenance.LastErr)
	}
}
