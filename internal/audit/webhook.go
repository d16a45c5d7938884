package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docflow/backend/pkg/models"
)

// WebhookSink forwards audit entries to an HTTP endpoint as JSON.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a new WebhookSink. A zero timeout leaves requests
// bounded only by the caller's context.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{url: url, client: &http.Client{Timeout: timeout}}
}

// Append posts entry to the webhook.
func (w *WebhookSink) Append(ctx context.Context, entry *models.AuditEntry) error {
	requestBody, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to deliver audit entry: status code %d", resp.StatusCode)
	}
	return nil
}
