package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
)

// DiscordSender delivers alerts via a Discord webhook using embeds.
type DiscordSender struct {
	webhookURL string
	roleID     string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL. roleID
// is optional; when set, the message content mentions the role.
func NewDiscordSender(webhookURL, roleID string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		roleID:     roleID,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}

// Send posts the alert embed to the webhook. Discord answers 204 No Content
// on success, or 200 when ?wait=true is used.
func (d *DiscordSender) Send(ctx context.Context, alert domain.Alert) error {
	payload := map[string]any{
		"embeds": []discordEmbed{buildDiscordEmbed(alert)},
	}
	if d.roleID != "" {
		payload["content"] = fmt.Sprintf("<@&%s>", d.roleID)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord: %w", domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// HealthCheck fetches the webhook metadata. A valid webhook answers 200.
func (d *DiscordSender) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.webhookURL, nil)
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord: health check status %d", resp.StatusCode)
	}
	return nil
}
