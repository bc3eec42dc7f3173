package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// WebhookTarget is one configured delivery endpoint.
type WebhookTarget struct {
	Name string `json:"name" yaml:"name"`
	// Kind selects the payload shape: "discord", "slack" or "generic".
	Kind string `json:"kind" yaml:"kind"`
	URL  string `json:"url" yaml:"url"`
}

// WebhookSender posts events to notification endpoints. Sends are rate
// limited so a large scan cannot hammer a chat webhook into a 429.
type WebhookSender struct {
	client  *http.Client
	limiter *rate.Limiter
}

func NewWebhookSender() *WebhookSender {
	return &WebhookSender{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Send dispatches one event to the given target.
func (w *WebhookSender) Send(target WebhookTarget, evt Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	switch target.Kind {
	case "discord":
		return w.postJSON(target.URL, map[string]interface{}{
			"embeds": []map[string]interface{}{
				{
					"title":       evt.Title,
					"description": evt.Message,
					"timestamp":   evt.At.Format(time.RFC3339),
				},
			},
		})
	case "slack":
		return w.postJSON(target.URL, map[string]interface{}{
			"text": fmt.Sprintf("*%s*\n%s", evt.Title, evt.Message),
		})
	default:
		return w.postJSON(target.URL, evt)
	}
}

func (w *WebhookSender) postJSON(url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := w.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
