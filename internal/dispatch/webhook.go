package dispatch

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/ride-hailing/internal/models"
)

// WebhookNotifier posts ride alerts to a driver-app backend. Delivery is
// best-effort; a dead endpoint never blocks the lifecycle operation.
type WebhookNotifier struct {
	Endpoint string
	Client   *http.Client
}

func NewWebhookNotifier(endpoint string) *WebhookNotifier {
	return &WebhookNotifier{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (n *WebhookNotifier) OpenRequest(r *models.Ride) {
	b, _ := json.Marshal(alertFor(r))
	resp, err := n.Client.Post(n.Endpoint, "application/json", bytes.NewReader(b))
	if err != nil {
		slog.Warn("webhook post failed", "ride_id", r.ID, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Warn("webhook rejected alert", "ride_id", r.ID, "status", resp.StatusCode)
	}
}
