package bootstrap

import (
	"net/http"

	appconfig "github.com/wolfman30/ig-lead-funnel/internal/config"
	"github.com/wolfman30/ig-lead-funnel/internal/fanout"
	"github.com/wolfman30/ig-lead-funnel/internal/notify"
	"github.com/wolfman30/ig-lead-funnel/pkg/logging"
)

// SinkClients carries the AWS clients the optional sinks need. Either may be nil.
type SinkClients struct {
	S3  fanout.S3API
	SES notify.SESAPI
}

// BuildSinks returns every sink with enough configuration to run, in the
// order their outcomes are reported. Sheets and Brevo are always registered
// so a missing credential shows up as a skipped outcome in logs and metrics.
func BuildSinks(cfg *appconfig.Config, clients SinkClients, logger *logging.Logger) []fanout.Sink {
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := &http.Client{Timeout: cfg.SinkTimeout}

	sinks := []fanout.Sink{
		fanout.NewSheetsSink(fanout.SheetsConfig{
			ServiceAccountEmail: cfg.SheetsServiceAccountEmail,
			PrivateKey:          cfg.SheetsPrivateKey,
			SpreadsheetID:       cfg.SheetsSpreadsheetID,
			Range:               cfg.SheetsRange,
			TokenURL:            cfg.SheetsTokenURL,
		}),
		fanout.NewBrevoSink(fanout.BrevoConfig{
			APIKey:  cfg.BrevoAPIKey,
			ListID:  cfg.BrevoListIDInt(),
			BaseURL: cfg.BrevoBaseURL,
		}, httpClient),
	}
	if !cfg.SheetsEnabled() {
		logger.Warn("google sheets sink not configured; leads will not be appended to the sheet")
	}
	if !cfg.BrevoEnabled() {
		logger.Warn("brevo sink not configured; leads will not be added to the contact list")
	}

	if cfg.SendGridAPIKey != "" && cfg.SendGridContactListID != "" {
		sinks = append(sinks, fanout.NewSendGridContactSink(fanout.SendGridContactsConfig{
			APIKey: cfg.SendGridAPIKey,
			ListID: cfg.SendGridContactListID,
		}))
	}

	if cfg.LeadNotifyEmail != "" {
		var fallback notify.EmailSender
		if cfg.Env == "development" {
			fallback = notify.NewStubEmailSender(logger)
		}
		sender := notify.Pick(
			notify.NewSendGridSender(notify.SendGridConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.SendGridFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger),
			notify.NewSESSender(clients.SES, notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger),
			fallback,
		)
		if sender == nil {
			logger.Warn("LEAD_NOTIFY_EMAIL set but no email provider configured")
		} else {
			sinks = append(sinks, fanout.NewNotifySink(sender, cfg.LeadNotifyEmail))
		}
	}

	if cfg.LeadsArchiveBucket != "" && clients.S3 != nil {
		sinks = append(sinks, fanout.NewArchiveSink(clients.S3, cfg.LeadsArchiveBucket))
	}

	return sinks
}
