package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// runCLI executes the root command against an isolated SQLite file.
func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("FIND_MODE", "first")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "--db", dbPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestRootRunsDemo(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "demo.db")

	out, err := runCLI(t, dbPath)
	if err != nil {
		t.Fatalf("demo returned error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Client 1 first name changed to Petya") {
		t.Fatalf("expected demo output, got:\n%s", out)
	}

	out, err = runCLI(t, dbPath, "list")
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 clients after demo, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "1\tPetya Ivanov\tgod@ya.ru\tphones: 5474578123, 3476347343") {
		t.Fatalf("unexpected first client line %q", lines[0])
	}
}

func TestSubcommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	steps := []struct {
		args     []string
		expected string
	}{
		{[]string{"add-client", "--first", "Igor", "--last", "Petrov", "--email", "Igor@ya.ru", "--phone", "6646347342"}, "Added client 1 (Igor Petrov)"},
		{[]string{"add-client", "--last", "Petrov", "--email", "p@ya.ru"}, "Added client 2 (Petrov)"},
		{[]string{"add-phone", "1", "87328515"}, "Added phone 87328515 for client 1"},
		{[]string{"add-phone", "1", "87328515"}, "Phone 87328515 already belongs to client 1"},
		{[]string{"change-client", "1", "--last", "Sobakin"}, "Client 1 last name changed to Sobakin"},
		{[]string{"find", "--last", "Petrov", "--mode", "all"}, "Found client 2"},
		{[]string{"find", "--phone", "6646347342"}, "Found client 1"},
		{[]string{"find", "--email", "nobody@ya.ru"}, "No client found"},
		{[]string{"delete-phone", "1", "6646347342"}, "Phone 6646347342 removed from client 1"},
		{[]string{"show", "1"}, "1\tIgor Sobakin\tIgor@ya.ru\tphones: 87328515"},
		{[]string{"delete-client", "1"}, "Client 1 deleted"},
		{[]string{"show", "1"}, "No client 1"},
	}

	for _, step := range steps {
		out, err := runCLI(t, dbPath, step.args...)
		if err != nil {
			t.Fatalf("%v returned error: %v\n%s", step.args, err, out)
		}
		if !strings.Contains(out, step.expected) {
			t.Fatalf("%v: expected %q in output, got:\n%s", step.args, step.expected, out)
		}
	}
}

func TestSubcommandErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "errors.db")

	tests := [][]string{
		{"add-phone", "abc", "1"},
		{"add-phone", "42", "1"},
		{"change-client", "1"},
		{"find", "--first", "Igor", "--mode", "several"},
		{"--driver", "mysql", "list"},
	}
	for _, args := range tests {
		if out, err := runCLI(t, dbPath, args...); err == nil {
			t.Fatalf("%v: expected error, got output:\n%s", args, out)
		}
	}
}

func TestGenToken(t *testing.T) {
	out, err := runCLI(t, filepath.Join(t.TempDir(), "unused.db"), "gen-token")
	if err != nil {
		t.Fatalf("gen-token returned error: %v", err)
	}
	if !strings.Contains(out, "Token: ") || !strings.Contains(out, "API_TOKEN_HASH='$2a$") {
		t.Fatalf("unexpected gen-token output:\n%s", out)
	}
}

func TestMaintenanceReportsDriver(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "maint.db")
	if out, err := runCLI(t, dbPath, "init"); err != nil {
		t.Fatalf("init returned error: %v\n%s", err, out)
	}

	out, err := runCLI(t, dbPath, "maintenance", "--vacuum")
	if err != nil {
		t.Fatalf("maintenance returned error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Database maintenance (sqlite) finished in") {
		t.Fatalf("unexpected maintenance output:\n%s", out)
	}
}

func TestEventsReachWebhook(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
	}))
	defer srv.Close()

	t.Setenv("NOTIFY_WEBHOOK_URL", srv.URL)
	t.Setenv("NOTIFY_EVENTS", "client_added")

	dbPath := filepath.Join(t.TempDir(), "notify.db")
	if out, err := runCLI(t, dbPath, "add-client", "--first", "Sasha", "--email", "Sasha@ya.ru", "--phone", "85312873"); err != nil {
		t.Fatalf("add-client returned error: %v\n%s", err, out)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("expected 1 webhook delivery, got %d: %v", len(bodies), bodies)
	}
	if !strings.Contains(bodies[0], `"event":"client_added"`) {
		t.Fatalf("unexpected webhook body %s", bodies[0])
	}
}
