package instagram

import (
	"net/http"
	"time"

	"github.com/wolfman30/ig-lead-funnel/internal/observability/metrics"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

// AdapterConfig holds everything the Instagram comment channel needs.
type AdapterConfig struct {
	AccessToken      string
	AppSecret        string
	VerifyToken      string
	GraphAPIBase     string
	PublicBaseURL    string
	Campaign         string
	DMTimeout        time.Duration
	ProcessingBudget time.Duration
	MaxBodyBytes     int64
	Deduper          Deduper
	Metrics          *metrics.FunnelMetrics
	Logger           *logging.Logger
}

// Adapter is the Instagram comment channel: inbound webhooks from Meta and
// the auto-reply DM that carries the signup link.
type Adapter struct {
	client    *Client
	messenger *Messenger
	webhook   *WebhookHandler
}

// NewAdapter creates a new Instagram comment adapter.
func NewAdapter(cfg AdapterConfig) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	client := NewClient(cfg.AccessToken)
	if cfg.GraphAPIBase != "" {
		client.SetGraphAPIBase(cfg.GraphAPIBase)
	}
	messenger := NewMessenger(client, cfg.DMTimeout, cfg.Logger, cfg.Metrics)

	webhook := NewWebhookHandler(WebhookConfig{
		VerifyToken:      cfg.VerifyToken,
		Verifier:         NewVerifier(cfg.AppSecret),
		Parser:           NewParser(cfg.Logger, cfg.Metrics),
		Sender:           messenger,
		Links:            SignupLinks{BaseURL: cfg.PublicBaseURL, Campaign: cfg.Campaign},
		Deduper:          cfg.Deduper,
		ProcessingBudget: cfg.ProcessingBudget,
		MaxBodyBytes:     cfg.MaxBodyBytes,
		Metrics:          cfg.Metrics,
		Logger:           cfg.Logger,
	})

	return &Adapter{client: client, messenger: messenger, webhook: webhook}
}

// HandleVerification handles GET /api/webhooks/meta/instagram (Meta challenge).
func (a *Adapter) HandleVerification(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleVerification(w, r)
}

// HandleWebhook handles POST /api/webhooks/meta/instagram (comment deliveries).
func (a *Adapter) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleInbound(w, r)
}

// SetGraphAPIBase points the Graph client at another host (tests, sandboxes).
func (a *Adapter) SetGraphAPIBase(base string) {
	a.client.SetGraphAPIBase(base)
}
