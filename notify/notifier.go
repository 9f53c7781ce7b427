// Package notify relays emitted breakout signals to external consumers.
package notify

import (
	"bytes"
	"net/http"
	"time"

	"github.com/dnldd/breakout/shared"
	"github.com/rs/zerolog"
)

// WebhookNotifierConfig represents the webhook notifier configuration.
type WebhookNotifierConfig struct {
	// URL is the webhook endpoint signals are posted to.
	URL string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// WebhookNotifier posts emitted signals as JSON to a webhook endpoint.
// Delivery is best effort, failures are logged and never retried.
type WebhookNotifier struct {
	cfg   *WebhookNotifierConfig
	httpc http.Client
}

// Ensure the webhook notifier implements the Notifier interface.
var _ shared.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier initializes a new webhook notifier.
func NewWebhookNotifier(cfg *WebhookNotifierConfig) *WebhookNotifier {
	return &WebhookNotifier{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}
}

// Notify relays the provided breakout signal to the webhook endpoint.
func (n *WebhookNotifier) Notify(signal shared.BreakoutSignal) {
	encoded, err := signal.Encode()
	if err != nil {
		n.cfg.Logger.Error().Msgf("encoding %s signal for delivery: %v", signal.Symbol, err)
		return
	}

	resp, err := n.httpc.Post(n.cfg.URL, "application/json",
		bytes.NewBufferString(encoded))
	if err != nil {
		n.cfg.Logger.Error().Msgf("delivering %s signal: %v", signal.Symbol, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.cfg.Logger.Error().Msgf("delivering %s signal: unexpected status %d",
			signal.Symbol, resp.StatusCode)
	}
}

// NoopNotifier discards all signals, used when no webhook is configured and
// by the simulation harness.
type NoopNotifier struct{}

// Ensure the noop notifier implements the Notifier interface.
var _ shared.Notifier = (*NoopNotifier)(nil)

// Notify discards the provided signal.
func (n *NoopNotifier) Notify(signal shared.BreakoutSignal) {}
