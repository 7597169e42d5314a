package fanout

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/ig-lead-funnel/internal/leads"
	"github.com/wolfman30/ig-lead-funnel/internal/notify"
)

// NotifySink emails a summary of each new lead to the account owner.
type NotifySink struct {
	sender notify.EmailSender
	to     string
}

// NewNotifySink builds the sink. A nil sender or empty recipient skips delivery.
func NewNotifySink(sender notify.EmailSender, to string) *NotifySink {
	return &NotifySink{sender: sender, to: to}
}

func (s *NotifySink) Name() string { return "notify_email" }

func (s *NotifySink) Deliver(ctx context.Context, lead *leads.Lead) error {
	if s.sender == nil || s.to == "" {
		return ErrSinkNotConfigured
	}
	return s.sender.Send(ctx, LeadEmail(s.to, lead))
}

// LeadEmail renders the owner notification for lead.
func LeadEmail(to string, lead *leads.Lead) notify.EmailMessage {
	rows := [][2]string{
		{"Name", lead.FullName},
		{"Email", lead.Email},
		{"Phone", leads.Value(lead.Phone)},
		{"Instagram", leads.Value(lead.IGUsername)},
		{"Campaign", leads.Value(lead.Campaign)},
		{"Notes", leads.Value(lead.Notes)},
		{"Received", lead.CreatedAt.UTC().Format(time.RFC1123)},
	}

	var text, htmlBody strings.Builder
	htmlBody.WriteString("<table>")
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(&text, "%s: %s\n", row[0], row[1])
		fmt.Fprintf(&htmlBody, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", row[0], html.EscapeString(row[1]))
	}
	htmlBody.WriteString("</table>")

	subject := "New lead: " + lead.FullName
	if lead.IGUsername != nil {
		subject += " (@" + *lead.IGUsername + ")"
	}

	return notify.EmailMessage{
		To:      to,
		Subject: subject,
		Body:    text.String(),
		HTML:    htmlBody.String(),
	}
}
