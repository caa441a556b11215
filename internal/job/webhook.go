package job

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/download"
	"github.com/snagd/snagd/pkg/logger"
)

var webhookLog = logger.Get("Webhook")

// WebhookEndpoint identifies the logical route the notification
// reports on, mirroring the path the request came in through.
const WebhookEndpoint = "/v1/media/download"

// webhookPayload is the completion notification delivered to the
// requester's endpoint. Exactly one of Result or Error is populated;
// Status carries the HTTP-style outcome code (200 success, 500 failure).
type webhookPayload struct {
	JobID    uuid.UUID                `json:"job_id"`
	State    string                   `json:"state"`
	Endpoint string                   `json:"endpoint"`
	Status   int                      `json:"status"`
	Result   *download.ResponseRecord `json:"result,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

type WebhookNotifier struct {
	client *http.Client
}

func NewWebhookNotifier() *WebhookNotifier {
	return &WebhookNotifier{client: &http.Client{Timeout: 30 * time.Second}}
}

// Notify POSTs the job outcome to the given URL, retrying once on
// failure. Delivery is best-effort and never affects the job outcome.
func (notifier *WebhookNotifier) Notify(ctx context.Context, url string, payload webhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		webhookLog.Errorf("Failed to serialize webhook payload for job %s: %v\n", payload.JobID, err)
		return
	}

	if err := notifier.post(ctx, url, body); err != nil {
		webhookLog.Warnf("Webhook delivery to %s failed, retrying once: %v\n", url, err)
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return
		}

		if err := notifier.post(ctx, url, body); err != nil {
			webhookLog.Errorf("Webhook delivery to %s abandoned: %v\n", url, err)
			return
		}
	}

	webhookLog.Debugf("Webhook for job %s delivered to %s\n", payload.JobID, url)
}

func (notifier *WebhookNotifier) post(ctx context.Context, url string, body []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := notifier.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("endpoint returned status %d", response.StatusCode)
	}

	return nil
}
