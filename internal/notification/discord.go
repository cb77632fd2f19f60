package notification

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/saltyorg/clientdir/internal/events"
	"github.com/saltyorg/clientdir/internal/httpclient"
)

// DiscordConfig holds Discord webhook configuration
type DiscordConfig struct {
	WebhookURL string
	Username   string // Bot username (optional)
	Timeout    time.Duration
}

// DiscordProvider sends events as Discord embeds
type DiscordProvider struct {
	config DiscordConfig
	client *http.Client
}

// NewDiscordProvider creates a new Discord notification provider
func NewDiscordProvider(config DiscordConfig) *DiscordProvider {
	if config.Username == "" {
		config.Username = "Clientdir"
	}
	return &DiscordProvider{
		config: config,
		client: httpclient.NewTraceClient("discord", config.Timeout),
	}
}

// Name returns the provider name
func (d *DiscordProvider) Name() string {
	return "discord"
}

// Send posts the event to Discord
func (d *DiscordProvider) Send(ctx context.Context, event events.Event) error {
	payload := discordWebhookPayload{
		Username: d.config.Username,
		Embeds:   []discordEmbed{d.buildEmbed(event)},
	}
	return postJSON(ctx, d.client, d.config.WebhookURL, payload)
}

// buildEmbed creates a Discord embed from an event
func (d *DiscordProvider) buildEmbed(event events.Event) discordEmbed {
	embed := discordEmbed{
		Title:       string(event.Type),
		Description: event.Message(),
		Color:       colorForEvent(event.Type),
		Timestamp:   event.Time.Format(time.RFC3339),
		Footer:      &discordEmbedFooter{Text: "Clientdir"},
	}

	if event.ClientID != 0 {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   "Client",
			Value:  strconv.FormatInt(event.ClientID, 10),
			Inline: true,
		})
	}
	if event.Phone != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Phone", Value: event.Phone, Inline: true})
	}

	return embed
}

// colorForEvent returns a color based on event type
func colorForEvent(eventType events.Type) int {
	switch eventType {
	case events.ClientAdded, events.PhoneAdded:
		return 0x00FF00 // Green
	case events.ClientDeleted, events.PhoneDeleted:
		return 0xFF0000 // Red
	case events.ClientChanged:
		return 0xFFFF00 // Yellow
	case events.ClientFound, events.ClientNotFound:
		return 0x0099FF // Blue
	default:
		return 0x808080 // Gray
	}
}

// Discord webhook payload structures
type discordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}
