package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackChannel sends alert notifications to Slack via an incoming webhook.
type SlackChannel struct {
	WebhookURL string
	Timeout    time.Duration
	client     *http.Client
}

// NewSlackChannel creates a Slack notification channel.
func NewSlackChannel(webhookURL string, timeout time.Duration) *SlackChannel {
	return &SlackChannel{
		WebhookURL: webhookURL,
		Timeout:    timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *SlackChannel) Type() string {
	return "slack"
}

func (s *SlackChannel) Send(ctx context.Context, n *Notification) error {
	fields := []map[string]interface{}{
		{"title": "Source IP", "value": n.SrcIP, "short": true},
		{"title": "Port", "value": fmt.Sprintf("%d", n.DstPort), "short": true},
		{"title": "Type", "value": string(n.EventType), "short": true},
	}
	if n.Country != "" {
		fields = append(fields, map[string]interface{}{
			"title": "Country", "value": n.Country, "short": true,
		})
	}
	if n.Username != "" {
		fields = append(fields, map[string]interface{}{
			"title": "Username", "value": n.Username, "short": true,
		})
	}

	payload := map[string]interface{}{
		"text": fmt.Sprintf("🍯 Honeypot activity: %s from %s", n.EventType, n.SrcIP),
		"attachments": []map[string]interface{}{
			{
				"color":  "warning",
				"fields": fields,
				"footer": "Honeysting",
				"ts":     time.Now().Unix(),
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	return nil
}
