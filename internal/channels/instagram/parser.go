package instagram

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wolfman30/ig-lead-funnel/internal/observability/metrics"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

// ErrInvalidPayload marks a verified body that is not a usable webhook payload.
var ErrInvalidPayload = errors.New("instagram: invalid webhook payload")

const commentsField = "comments"

// Parser extracts comment events from verified webhook bodies.
type Parser struct {
	logger  *logging.Logger
	metrics *metrics.FunnelMetrics
}

// NewParser creates a parser that logs skipped changes. m may be nil.
func NewParser(logger *logging.Logger, m *metrics.FunnelMetrics) *Parser {
	if logger == nil {
		logger = logging.Default()
	}
	return &Parser{logger: logger, metrics: m}
}

// Parse decodes body and returns its comment events in payload order.
// Structural problems with the payload as a whole return ErrInvalidPayload;
// problems with individual entries or changes only drop that entry or change.
func (p *Parser) Parse(body []byte) ([]CommentEvent, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if payload.Object == "" {
		return nil, fmt.Errorf("%w: missing object", ErrInvalidPayload)
	}
	if len(payload.Entry) == 0 {
		return nil, fmt.Errorf("%w: missing entry", ErrInvalidPayload)
	}
	return p.Events(payload), nil
}

// Events walks entry -> changes and keeps actionable comment changes.
func (p *Parser) Events(payload WebhookPayload) []CommentEvent {
	var events []CommentEvent

	for i, rawEntry := range payload.Entry {
		var entry Entry
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			p.logger.Warn("instagram: skipping malformed entry", "entry_index", i, "error", err)
			continue
		}

		for j, rawChange := range entry.Changes {
			var change Change
			if err := json.Unmarshal(rawChange, &change); err != nil {
				p.logger.Warn("instagram: skipping malformed change", "entry_id", entry.ID, "change_index", j, "error", err)
				continue
			}
			// Meta multiplexes every subscribed field through one callback.
			if change.Field != commentsField {
				continue
			}

			event, ok := p.commentEvent(entry.ID, change.Value)
			if !ok {
				continue
			}
			events = append(events, event)
		}
	}

	return events
}

func (p *Parser) commentEvent(entryID string, raw json.RawMessage) (CommentEvent, bool) {
	var value CommentValue
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &value); err != nil {
			p.logger.Warn("instagram: skipping malformed comment value", "entry_id", entryID, "error", err)
			return CommentEvent{}, false
		}
	}

	event := CommentEvent{
		EntryID:   entryID,
		Text:      value.Text,
		CommentID: value.ID,
	}
	if value.From != nil {
		event.UserID = value.From.ID
		event.Username = value.From.Username
	}
	if value.Media != nil {
		event.MediaID = value.Media.ID
	}

	if event.UserID == "" || event.Username == "" {
		p.logger.Warn("instagram: missing user data in comment",
			"entry_id", entryID,
			"comment_id", event.CommentID,
			"has_user_id", event.UserID != "",
			"has_username", event.Username != "",
		)
		p.metrics.ObserveComment("missing_user")
		return CommentEvent{}, false
	}
	return event, true
}
