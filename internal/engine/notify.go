package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/open-cmuq/tapin/internal/models"
)

// KindEligibilityReached fires the first time an attendance aggregate crosses
// its scope's minimum-minutes threshold.
const KindEligibilityReached = "eligibility_reached"

// Notifier delivers one-shot attendance notifications. Delivery is
// best-effort and at most once: a failed Notify is logged, never retried.
type Notifier interface {
	Notify(ctx context.Context, user *models.User, scope *models.Scope, kind string) error
}

// LogNotifier writes notifications to the process log
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, user *models.User, scope *models.Scope, kind string) error {
	log.Printf("notify: %s user=%s scope=%s", kind, user.Email, scope.Slug)
	return nil
}

// WebhookNotifier POSTs notifications as JSON to a configured endpoint
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

// NewWebhookNotifier creates a webhook notifier with a bounded client timeout
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, user *models.User, scope *models.Scope, kind string) error {
	payload, err := json.Marshal(map[string]any{
		"kind":       kind,
		"user_id":    user.ID,
		"user_name":  user.Name,
		"user_email": user.Email,
		"scope_id":   scope.ID,
		"scope_slug": scope.Slug,
		"scope_name": scope.Name,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
