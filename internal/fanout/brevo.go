package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/wolfman30/ig-lead-funnel/internal/leads"
)

// DefaultBrevoBaseURL is the public Brevo v3 API.
const DefaultBrevoBaseURL = "https://api.brevo.com/v3"

// BrevoConfig configures the contact-list sink.
type BrevoConfig struct {
	APIKey  string
	ListID  int
	BaseURL string
}

// BrevoSink upserts each lead as a Brevo contact on one list.
type BrevoSink struct {
	cfg        BrevoConfig
	httpClient *http.Client
}

// NewBrevoSink builds the sink. A nil client uses http.DefaultClient.
func NewBrevoSink(cfg BrevoConfig, client *http.Client) *BrevoSink {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBrevoBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &BrevoSink{cfg: cfg, httpClient: client}
}

func (s *BrevoSink) Name() string { return "brevo" }

type brevoContact struct {
	Email            string         `json:"email"`
	Attributes       map[string]any `json:"attributes"`
	ListIDs          []int          `json:"listIds"`
	UpdateEnabled    bool           `json:"updateEnabled"`
	EmailBlacklisted bool           `json:"emailBlacklisted"`
	SMSBlacklisted   bool           `json:"smsBlacklisted"`
}

// Deliver creates the contact, or updates it in place when the email exists.
func (s *BrevoSink) Deliver(ctx context.Context, lead *leads.Lead) error {
	if s.cfg.APIKey == "" || s.cfg.ListID == 0 {
		return ErrSinkNotConfigured
	}

	body, err := json.Marshal(brevoContactFor(lead, s.cfg.ListID))
	if err != nil {
		return fmt.Errorf("fanout: marshal brevo contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/contacts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fanout: build brevo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fanout: brevo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newHTTPError(s.Name(), resp.StatusCode, respBody)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// brevoContactFor maps a lead onto Brevo's contact attributes. Absent
// optional fields are left out rather than sent empty.
func brevoContactFor(lead *leads.Lead, listID int) brevoContact {
	first, last := SplitName(lead.FullName)
	attrs := map[string]any{
		"FIRSTNAME": first,
		"LASTNAME":  last,
	}
	if lead.Phone != nil {
		attrs["SMS"] = *lead.Phone
	}
	if lead.IGUsername != nil {
		attrs["IG_USERNAME"] = *lead.IGUsername
	}
	if lead.Campaign != nil {
		attrs["CAMPAIGN"] = *lead.Campaign
	}
	return brevoContact{
		Email:            lead.Email,
		Attributes:       attrs,
		ListIDs:          []int{listID},
		UpdateEnabled:    true,
		EmailBlacklisted: false,
		SMSBlacklisted:   false,
	}
}

// SplitName splits at the first whitespace run: "Mary Ann Lee" is
// ("Mary", "Ann Lee") and a single word has an empty last name.
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	i := strings.IndexFunc(full, unicode.IsSpace)
	if i < 0 {
		return full, ""
	}
	return full[:i], strings.TrimSpace(full[i:])
}
