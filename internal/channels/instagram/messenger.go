package instagram

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/ig-lead-funnel/internal/observability/metrics"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

var messengerTracer = otel.Tracer("leadfunnel.internal.channels.instagram.messenger")

const (
	// DefaultCampaign tags leads that arrive through the comment auto-reply.
	DefaultCampaign = "ig_comment_automation"
	signupPath      = "/signup"
)

// TextSender is the Graph API surface the messenger needs.
type TextSender interface {
	SendTextMessage(ctx context.Context, recipientID, text string) (*SendResponse, error)
}

// SignupLinks builds the signup URL and DM text for a comment. All attribution
// travels in the query string so the form needs no server-side session.
type SignupLinks struct {
	BaseURL  string
	Campaign string
}

// URL returns <base>/signup?ig_user_id=..&ig_username=..&campaign=..&comment_id=..&media_id=..
func (l SignupLinks) URL(event CommentEvent) string {
	campaign := l.Campaign
	if campaign == "" {
		campaign = DefaultCampaign
	}
	// Fixed parameter order; url.Values.Encode would sort the keys.
	params := []struct{ key, value string }{
		{"ig_user_id", event.UserID},
		{"ig_username", event.Username},
		{"campaign", campaign},
		{"comment_id", event.CommentID},
		{"media_id", event.MediaID},
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(l.BaseURL, "/"))
	b.WriteString(signupPath)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(escapeComponent(p.value))
	}
	return b.String()
}

// escapeComponent percent-encodes a query value. Spaces become %20, not +.
func escapeComponent(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// Message returns the DM body for a comment.
func (l SignupLinks) Message(event CommentEvent) string {
	return "Thanks for your comment! 🎉\n\nTap here to get started: " + l.URL(event)
}

// Messenger delivers DMs fire-and-forget: failures are logged and counted,
// never returned, never retried.
type Messenger struct {
	sender  TextSender
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.FunnelMetrics
}

// NewMessenger wraps sender. timeout bounds each individual send.
func NewMessenger(sender TextSender, timeout time.Duration, logger *logging.Logger, m *metrics.FunnelMetrics) *Messenger {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Messenger{sender: sender, timeout: timeout, logger: logger, metrics: m}
}

// SendDM attempts one delivery to recipientID.
func (m *Messenger) SendDM(ctx context.Context, recipientID, text string) {
	ctx, span := messengerTracer.Start(ctx, "instagram.send_dm")
	defer span.End()
	span.SetAttributes(attribute.String("leadfunnel.ig.recipient_id", recipientID))

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err := m.sender.SendTextMessage(ctx, recipientID, text)
	if err == nil {
		m.metrics.ObserveDM("sent")
		m.logger.Info("instagram: dm sent", "recipient_id", recipientID)
		return
	}

	span.RecordError(err)
	m.metrics.ObserveDM("failed")
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		m.logger.Error("instagram: failed to send dm",
			"recipient_id", recipientID,
			"status", apiErr.Status,
			"body", apiErr.Body,
		)
		return
	}
	m.logger.Error("instagram: failed to send dm", "recipient_id", recipientID, "error", err)
}
