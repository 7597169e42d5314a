package fanout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/wolfman30/ig-lead-funnel/internal/leads"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleTokenURL is the service-account token exchange endpoint.
const GoogleTokenURL = "https://oauth2.googleapis.com/token"

const sheetsAuthTimeout = 10 * time.Second

// SheetsConfig configures the spreadsheet sink.
type SheetsConfig struct {
	ServiceAccountEmail string
	PrivateKey          string
	SpreadsheetID       string
	Range               string

	// TokenURL and Endpoint default to Google's production hosts.
	TokenURL string
	Endpoint string
}

func (c SheetsConfig) configured() bool {
	return c.ServiceAccountEmail != "" && c.PrivateKey != "" && c.SpreadsheetID != ""
}

// SheetsSink appends one row per lead to a Google Sheet. The authorized
// service is created on first use and reused afterwards; a failed
// initialization is retried on the next delivery.
type SheetsSink struct {
	cfg SheetsConfig

	mu  sync.Mutex
	svc *sheets.Service
}

// NewSheetsSink builds the sink. Missing credentials are reported per delivery.
func NewSheetsSink(cfg SheetsConfig) *SheetsSink {
	if cfg.Range == "" {
		cfg.Range = "Sheet1!A1"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = GoogleTokenURL
	}
	return &SheetsSink{cfg: cfg}
}

func (s *SheetsSink) Name() string { return "sheets" }

// Deliver appends the lead as a new row below the existing data.
func (s *SheetsSink) Deliver(ctx context.Context, lead *leads.Lead) error {
	if !s.cfg.configured() {
		return ErrSinkNotConfigured
	}

	svc, err := s.session(ctx)
	if err != nil {
		return err
	}

	values := &sheets.ValueRange{Values: [][]interface{}{SheetRow(lead)}}
	_, err = svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, s.cfg.Range, values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return newHTTPError(s.Name(), gerr.Code, []byte(gerr.Body))
		}
		return fmt.Errorf("fanout: sheets append: %w", err)
	}
	return nil
}

func (s *SheetsSink) session(ctx context.Context) (*sheets.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svc != nil {
		return s.svc, nil
	}

	// The session outlives this delivery, so it must not inherit its cancellation.
	authCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, &http.Client{Timeout: sheetsAuthTimeout})

	conf := &jwt.Config{
		Email:      s.cfg.ServiceAccountEmail,
		PrivateKey: []byte(s.cfg.PrivateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   s.cfg.TokenURL,
	}
	ts := conf.TokenSource(authCtx)
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("fanout: sheets authorize: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(oauth2.ReuseTokenSource(tok, ts))}
	if s.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.cfg.Endpoint))
	}
	svc, err := sheets.NewService(authCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("fanout: sheets client: %w", err)
	}

	s.svc = svc
	return svc, nil
}

// SheetRow is the fixed column order of the leads sheet.
func SheetRow(lead *leads.Lead) []interface{} {
	return []interface{}{
		lead.CreatedAt.UTC().Format(time.RFC3339),
		lead.FullName,
		lead.Email,
		leads.Value(lead.Phone),
		leads.Value(lead.IGUserID),
		leads.Value(lead.IGUsername),
		leads.Value(lead.IGCommentID),
		leads.Value(lead.IGMediaID),
		leads.Value(lead.Campaign),
		lead.Source,
		leads.Value(lead.Notes),
	}
}
