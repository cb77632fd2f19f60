package main

import (
	"net/http"

	"github.com/saltyorg/clientdir/internal/config"
	"github.com/saltyorg/clientdir/internal/events"
	"github.com/saltyorg/clientdir/internal/notification"
)

// newNotificationManager builds and starts the outbound notifier from the
// configuration. The caller must Stop it so queued events are delivered.
func newNotificationManager(cfg config.NotifyConfig) (*notification.Manager, error) {
	only, err := events.ParseTypes(cfg.Events)
	if err != nil {
		return nil, err
	}

	var providers []notification.Provider
	if cfg.WebhookURL != "" {
		method := cfg.WebhookMethod
		if method == "" {
			method = http.MethodPost
		}
		webhook, err := notification.NewWebhookProvider(notification.WebhookConfig{
			URL:     cfg.WebhookURL,
			Method:  method,
			Body:    cfg.WebhookBody,
			Headers: cfg.WebhookHeaders,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, webhook)
	}
	if cfg.DiscordURL != "" {
		providers = append(providers, notification.NewDiscordProvider(notification.DiscordConfig{
			WebhookURL: cfg.DiscordURL,
			Username:   cfg.DiscordUsername,
			Timeout:    cfg.Timeout,
		}))
	}

	mgr := notification.NewManager(cfg.Timeout, only, providers...)
	mgr.Start()
	return mgr, nil
}
