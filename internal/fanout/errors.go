package fanout

import "fmt"

const maxErrorBody = 1024

// HTTPError is a non-success response from a sink's remote API.
type HTTPError struct {
	Sink   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fanout: %s returned status %d: %s", e.Sink, e.Status, e.Body)
}

func newHTTPError(sink string, status int, body []byte) *HTTPError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{Sink: sink, Status: status, Body: string(body)}
}
