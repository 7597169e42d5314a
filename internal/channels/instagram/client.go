package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v22.0"
	defaultHTTPTimeout  = 10 * time.Second
	messagingTypeReply  = "RESPONSE"
)

// APIError is a non-success answer from the Graph API. Status and Body are
// kept verbatim for diagnosis.
type APIError struct {
	Status int
	Body   string
	Code   int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram: graph api status %d: %s", e.Status, e.Body)
}

// Client sends messages via the Instagram/Meta Graph API.
type Client struct {
	accessToken  string
	graphAPIBase string
	httpClient   *http.Client
}

// NewClient creates a new Graph API client.
func NewClient(accessToken string) *Client {
	return &Client{
		accessToken:  accessToken,
		graphAPIBase: defaultGraphAPIBase,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	if base = strings.TrimRight(base, "/"); base != "" {
		c.graphAPIBase = base
	}
}

// SendTextMessage sends a plain text message to the given recipient.
func (c *Client) SendTextMessage(ctx context.Context, recipientID, text string) (*SendResponse, error) {
	if c.accessToken == "" {
		return nil, fmt.Errorf("instagram: access token not configured")
	}
	req := SendRequest{
		Recipient:     SendRecipient{ID: recipientID},
		Message:       SendMessage{Text: text},
		MessagingType: messagingTypeReply,
	}
	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("instagram: marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphAPIBase+"/me/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("instagram: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("instagram: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("instagram: read response: %w", err)
	}

	var sendResp SendResponse
	// Error pages are not always JSON; the status check below still reports them.
	_ = json.Unmarshal(respBody, &sendResp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || sendResp.Error != nil {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(respBody)}
		if sendResp.Error != nil {
			apiErr.Code = sendResp.Error.Code
		}
		return &sendResp, apiErr
	}

	return &sendResp, nil
}
