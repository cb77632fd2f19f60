package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a rejected response is quoted in the error.
const maxErrorBody = 512

// postJSON marshals payload and posts it to url.
func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return send(client, req)
}

// send executes req. A non-2xx reply becomes an error quoting the start of
// its body, which is where Discord and most webhooks explain the rejection.
func send(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	head, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if msg := strings.TrimSpace(string(head)); msg != "" {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}
