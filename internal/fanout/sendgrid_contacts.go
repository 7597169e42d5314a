package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/wolfman30/ig-lead-funnel/internal/leads"
	"github.com/wolfman30/ig-lead-funnel/internal/notify"
)

// SendGridContactsConfig configures the SendGrid Marketing contacts sink.
type SendGridContactsConfig struct {
	APIKey string
	ListID string
	Host   string
}

// SendGridContactSink upserts each lead into a SendGrid Marketing list.
type SendGridContactSink struct {
	cfg SendGridContactsConfig
}

func NewSendGridContactSink(cfg SendGridContactsConfig) *SendGridContactSink {
	if cfg.Host == "" {
		cfg.Host = notify.DefaultSendGridHost
	}
	return &SendGridContactSink{cfg: cfg}
}

func (s *SendGridContactSink) Name() string { return "sendgrid_contacts" }

type sendGridContact struct {
	Email        string            `json:"email"`
	FirstName    string            `json:"first_name,omitempty"`
	LastName     string            `json:"last_name,omitempty"`
	PhoneNumber  string            `json:"phone_number,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

type sendGridUpsert struct {
	ListIDs  []string          `json:"list_ids"`
	Contacts []sendGridContact `json:"contacts"`
}

// Deliver queues the upsert. SendGrid applies it asynchronously and answers 202.
func (s *SendGridContactSink) Deliver(ctx context.Context, lead *leads.Lead) error {
	if s.cfg.APIKey == "" || s.cfg.ListID == "" {
		return ErrSinkNotConfigured
	}

	first, last := SplitName(lead.FullName)
	contact := sendGridContact{
		Email:       lead.Email,
		FirstName:   first,
		LastName:    last,
		PhoneNumber: leads.Value(lead.Phone),
	}
	if lead.IGUsername != nil {
		contact.CustomFields = map[string]string{"ig_username": *lead.IGUsername}
	}

	body, err := json.Marshal(sendGridUpsert{ListIDs: []string{s.cfg.ListID}, Contacts: []sendGridContact{contact}})
	if err != nil {
		return fmt.Errorf("fanout: marshal sendgrid contact: %w", err)
	}

	request := sendgrid.GetRequest(s.cfg.APIKey, "/v3/marketing/contacts", s.cfg.Host)
	request.Method = http.MethodPut
	request.Body = body

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("fanout: sendgrid contacts request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(s.Name(), resp.StatusCode, []byte(resp.Body))
	}
	return nil
}
