package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/ig-lead-funnel/internal/observability/metrics"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

var webhookTracer = otel.Tracer("leadfunnel.internal.channels.instagram.webhook")

const (
	defaultMaxBodyBytes     = 1 << 20
	defaultProcessingBudget = 10 * time.Second
	logCommentChars         = 50
)

// DMSender is what the webhook needs to reply to a comment.
type DMSender interface {
	SendDM(ctx context.Context, recipientID, text string)
}

// WebhookConfig wires a WebhookHandler.
type WebhookConfig struct {
	VerifyToken string
	Verifier    *Verifier
	Parser      *Parser
	Sender      DMSender
	Links       SignupLinks
	Deduper     Deduper
	// ProcessingBudget caps the time spent sending DMs for one delivery so the
	// acknowledgement always goes out inside Meta's window.
	ProcessingBudget time.Duration
	MaxBodyBytes     int64
	Metrics          *metrics.FunnelMetrics
	Logger           *logging.Logger
}

// WebhookHandler handles Instagram webhook verification and comment deliveries.
type WebhookHandler struct {
	cfg WebhookConfig
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Verifier == nil {
		panic("instagram: verifier required")
	}
	if cfg.Sender == nil {
		panic("instagram: dm sender required")
	}
	if cfg.Parser == nil {
		cfg.Parser = NewParser(cfg.Logger, cfg.Metrics)
	}
	if cfg.Deduper == nil {
		cfg.Deduper = NoopDeduper{}
	}
	if cfg.ProcessingBudget <= 0 {
		cfg.ProcessingBudget = defaultProcessingBudget
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &WebhookHandler{cfg: cfg}
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	h.cfg.Logger.Info("instagram: webhook verification attempt", "mode", mode, "has_token", token != "")

	if mode == "subscribe" && h.cfg.VerifyToken != "" && token == h.cfg.VerifyToken {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	h.cfg.Logger.Warn("instagram: webhook verification failed", "mode", mode)
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "Verification failed"})
}

// HandleInbound handles POST webhook deliveries. Once the signature checks
// out the answer is always 200: Meta treats anything else as a failed
// delivery and retries aggressively.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "instagram.webhook")
	defer span.End()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.cfg.Metrics.ObserveWebhook("too_large")
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Payload too large"})
			return
		}
		h.cfg.Metrics.ObserveWebhook("read_error")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Bad request"})
		return
	}

	signature := r.Header.Get(SignatureHeader)
	h.cfg.Logger.Info("instagram: webhook received", "has_signature", signature != "", "body_length", len(body))

	if !h.cfg.Verifier.Verify(body, signature) {
		h.cfg.Logger.Warn("instagram: invalid webhook signature", "has_signature", signature != "")
		h.cfg.Metrics.ObserveWebhook("unauthorized")
		span.RecordError(errors.New("invalid webhook signature"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
		return
	}

	events, err := h.cfg.Parser.Parse(body)
	if err != nil {
		h.cfg.Logger.Error("instagram: invalid payload structure", "error", err)
		h.cfg.Metrics.ObserveWebhook("invalid_payload")
		span.RecordError(err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
		return
	}
	h.cfg.Metrics.ObserveWebhook("verified")
	span.SetAttributes(attribute.Int("leadfunnel.ig.comment_events", len(events)))

	start := time.Now()
	h.process(ctx, events)
	h.cfg.Metrics.ObserveWebhookLatency(time.Since(start))

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// process handles events in payload order. It detaches from the request so a
// dropped connection does not abort replies, and bounds the whole batch by
// ProcessingBudget.
func (h *WebhookHandler) process(ctx context.Context, events []CommentEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.ProcessingBudget)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			h.cfg.Logger.Error("instagram: webhook processing panic", "panic", fmt.Sprint(rec))
		}
	}()

	for _, event := range events {
		if ctx.Err() != nil {
			h.cfg.Logger.Warn("instagram: processing budget exhausted, dropping comment",
				"comment_id", event.CommentID,
				"ig_user_id", event.UserID,
			)
			h.cfg.Metrics.ObserveComment("budget_exhausted")
			continue
		}
		h.handleComment(ctx, event)
	}
}

func (h *WebhookHandler) handleComment(ctx context.Context, event CommentEvent) {
	if event.CommentID != "" {
		first, err := h.cfg.Deduper.FirstSeen(ctx, event.CommentID)
		switch {
		case err != nil:
			// Fail open: a duplicate DM beats a lost lead.
			h.cfg.Logger.Warn("instagram: dedup check failed", "comment_id", event.CommentID, "error", err)
		case !first:
			h.cfg.Logger.Info("instagram: duplicate comment delivery skipped", "comment_id", event.CommentID)
			h.cfg.Metrics.ObserveComment("duplicate")
			return
		}
	}

	h.cfg.Logger.Info("instagram: processing comment",
		"ig_user_id", event.UserID,
		"ig_username", event.Username,
		"comment_text", truncate(event.Text, logCommentChars),
		"comment_id", event.CommentID,
		"media_id", event.MediaID,
	)
	h.cfg.Sender.SendDM(ctx, event.UserID, h.cfg.Links.Message(event))
	h.cfg.Metrics.ObserveComment("messaged")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
