package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

type DiscordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

type DiscordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Discord posts moderation events to a webhook, at most one message per
// rate limit interval.
type Discord struct {
	webhookURL string
	appURL     string
	rateLimit  time.Duration
	lastSend   time.Time
	mu         sync.Mutex
	client     *http.Client
}

func NewDiscord(webhookURL, appURL string, rateLimitMs int) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		appURL:     strings.TrimRight(appURL, "/"),
		rateLimit:  time.Duration(rateLimitMs) * time.Millisecond,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, ev Event) error {
	message := d.formatMessage(ev)
	if message == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if wait := d.rateLimit - time.Since(d.lastSend); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := d.send(ctx, message); err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	d.lastSend = time.Now()
	return nil
}

func (d *Discord) formatMessage(ev Event) *DiscordMessage {
	switch ev.Type {
	case EventPromptApproved:
		return &DiscordMessage{Embeds: []DiscordEmbed{{
			Title:       "New Prompt Added!",
			Description: truncate(ev.Text, 4096),
			URL:         d.appURL + "/prompt/" + ev.PromptID,
			Color:       0x5865F2,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}}}
	case EventModerationDigest:
		return &DiscordMessage{
			Content: fmt.Sprintf("%d prompt(s) waiting for review: %s/admin", ev.PendingCount, d.appURL),
		}
	default:
		return nil
	}
}

func (d *Discord) send(ctx context.Context, message *DiscordMessage) error {
	jsonBody, err := json.Marshal(message)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Discord API error %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
