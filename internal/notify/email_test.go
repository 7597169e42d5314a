package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_Defaults(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Lead Funnel" {
		t.Errorf("expected default from name 'Lead Funnel', got %q", sender.fromName)
	}
	if sender.host != DefaultSendGridHost {
		t.Errorf("expected default host, got %q", sender.host)
	}
}

func TestSendGridSender_Send(t *testing.T) {
	var gotAuth, gotPath string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "sg-key",
		FromEmail: "leads@example.com",
		FromName:  "Leads",
		Host:      srv.URL,
	}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "owner@example.com",
		Subject: "New lead",
		Body:    "Jane Roe signed up",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v3/mail/send" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer sg-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if payload["subject"] != "New lead" {
		t.Errorf("unexpected subject in payload: %v", payload["subject"])
	}
	from, _ := payload["from"].(map[string]any)
	if from["email"] != "leads@example.com" {
		t.Errorf("unexpected from: %v", from)
	}
}

func TestSendGridSender_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "bad", FromEmail: "leads@example.com", Host: srv.URL}, nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "owner@example.com", Subject: "x", Body: "y"}); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestSendGridSender_Send_NotConfigured(t *testing.T) {
	var sender *SendGridSender
	if err := sender.Send(context.Background(), EmailMessage{To: "recipient@example.com"}); err == nil {
		t.Error("expected error when sender is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test Subject",
		Body:    "Test body",
	})

	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "leads@example.com"}, nil)
	if sender == nil {
		t.Fatal("expected sender")
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "owner@example.com",
		Subject: "New lead",
		Body:    "text",
		HTML:    "<p>html</p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(client.input.FromEmailAddress); got != "Lead Funnel <leads@example.com>" {
		t.Errorf("unexpected from %q", got)
	}
	if got := client.input.Destination.ToAddresses; len(got) != 1 || got[0] != "owner@example.com" {
		t.Errorf("unexpected destination %v", got)
	}
	body := client.input.Content.Simple.Body
	if aws.ToString(body.Text.Data) != "text" || aws.ToString(body.Html.Data) != "<p>html</p>" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "leads@example.com"}, nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "owner@example.com"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewSESSender_NilWithoutFrom(t *testing.T) {
	if NewSESSender(&fakeSES{}, SESConfig{}, nil) != nil {
		t.Error("expected nil sender without from address")
	}
}

func TestPick(t *testing.T) {
	sg := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "a@example.com"}, nil)
	ses := NewSESSender(&fakeSES{}, SESConfig{FromEmail: "a@example.com"}, nil)

	stub := NewStubEmailSender(nil)

	if Pick(sg, ses, stub) != EmailSender(sg) {
		t.Error("expected sendgrid to win")
	}
	if Pick(nil, ses, stub) != EmailSender(ses) {
		t.Error("expected ses fallback")
	}
	if Pick(nil, nil, stub) != EmailSender(stub) {
		t.Error("expected stub when no provider configured")
	}
	if Pick(nil, nil, nil) != nil {
		t.Error("expected nil when nothing configured")
	}
}

func TestSESInputOmitsEmptyParts(t *testing.T) {
	in := sesInput("Lead Funnel <leads@example.com>", EmailMessage{To: "owner@example.com", Subject: "New lead", Body: "text"})

	if in.Content.Simple.Body.Html != nil {
		t.Error("expected no HTML part")
	}
	if aws.ToString(in.Content.Simple.Body.Text.Charset) != "UTF-8" {
		t.Error("expected UTF-8 text part")
	}
	if aws.ToString(in.Content.Simple.Subject.Data) != "New lead" {
		t.Errorf("unexpected subject %q", aws.ToString(in.Content.Simple.Subject.Data))
	}
}
