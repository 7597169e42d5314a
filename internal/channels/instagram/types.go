package instagram

import "encoding/json"

// WebhookPayload is the top-level structure received from Meta's webhook.
// Entries stay raw so one malformed entry cannot sink the whole delivery.
type WebhookPayload struct {
	Object string            `json:"object"`
	Entry  []json.RawMessage `json:"entry"`
}

// Entry represents a single entry in the webhook payload.
type Entry struct {
	ID      string            `json:"id"`
	Time    int64             `json:"time"`
	Changes []json.RawMessage `json:"changes"`
}

// Change is one field-level change notification inside an entry.
type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// CommentValue is the value of a "comments" change.
type CommentValue struct {
	ID    string        `json:"id"`
	Text  string        `json:"text"`
	From  *CommentFrom  `json:"from,omitempty"`
	Media *CommentMedia `json:"media,omitempty"`
}

// CommentFrom identifies the commenting user.
type CommentFrom struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CommentMedia identifies the post that was commented on.
type CommentMedia struct {
	ID               string `json:"id"`
	MediaProductType string `json:"media_product_type,omitempty"`
}

// CommentEvent is the normalized, actionable result of parsing a comment change.
type CommentEvent struct {
	EntryID   string
	UserID    string
	Username  string
	Text      string
	CommentID string
	MediaID   string
}

// SendRequest is the payload sent to the Graph API to send a message.
type SendRequest struct {
	Recipient     SendRecipient `json:"recipient"`
	Message       SendMessage   `json:"message"`
	MessagingType string        `json:"messaging_type,omitempty"`
}

// SendRecipient identifies who to send the message to.
type SendRecipient struct {
	ID string `json:"id"`
}

// SendMessage is the message content for outbound messages.
type SendMessage struct {
	Text string `json:"text"`
}

// SendResponse is the response from the Graph API after sending a message.
type SendResponse struct {
	RecipientID string     `json:"recipient_id"`
	MessageID   string     `json:"message_id"`
	Error       *SendError `json:"error,omitempty"`
}

// SendError represents an error returned by the Graph API.
type SendError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}
