package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"text/template"
	"time"

	"github.com/saltyorg/clientdir/internal/events"
	"github.com/saltyorg/clientdir/internal/httpclient"
)

// WebhookConfig holds generic webhook configuration
type WebhookConfig struct {
	URL         string
	Method      string            // HTTP method (POST, PUT, etc.)
	Body        string            // Template for request body
	Headers     map[string]string // Custom headers
	ContentType string            // Content-Type header
	Timeout     time.Duration
}

// WebhookProvider sends events to a generic HTTP endpoint
type WebhookProvider struct {
	config WebhookConfig
	tmpl   *template.Template
	client *http.Client
}

// NewWebhookProvider creates a generic webhook provider. The body template
// is parsed up front so a bad template fails at startup.
func NewWebhookProvider(config WebhookConfig) (*WebhookProvider, error) {
	if config.Method == "" {
		config.Method = http.MethodPost
	}
	if config.ContentType == "" {
		config.ContentType = "application/json"
	}
	if config.Body == "" {
		config.Body = DefaultWebhookBody
	}

	tmpl, err := template.New("webhook").Funcs(templateFuncs).Parse(config.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook body template: %w", err)
	}

	return &WebhookProvider{
		config: config,
		tmpl:   tmpl,
		client: httpclient.NewTraceClient("webhook", config.Timeout),
	}, nil
}

// Name returns the provider name
func (w *WebhookProvider) Name() string {
	return "webhook"
}

// webhookTemplateData holds the data available for template rendering
type webhookTemplateData struct {
	Type      string
	Message   string
	ClientID  int64
	Timestamp string
	EventJSON string
}

// DefaultWebhookBody is used when no body template is configured
const DefaultWebhookBody = `{"event":{{json .Type}},"message":{{json .Message}},"timestamp":{{json .Timestamp}},"data":{{.EventJSON}}}`

var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Send sends an event via the webhook
func (w *WebhookProvider) Send(ctx context.Context, event events.Event) error {
	body, err := w.renderBody(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, w.config.Method, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.config.ContentType)
	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}

	return send(w.client, req)
}

// renderBody renders the body template with event data
func (w *WebhookProvider) renderBody(event events.Event) ([]byte, error) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	data := webhookTemplateData{
		Type:      string(event.Type),
		Message:   event.Message(),
		ClientID:  event.ClientID,
		Timestamp: event.Time.Format(time.RFC3339),
		EventJSON: string(eventJSON),
	}

	var buf bytes.Buffer
	if err := w.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute webhook template: %w", err)
	}
	return buf.Bytes(), nil
}
