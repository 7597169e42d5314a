package instagram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the HMAC of the raw request body.
const SignatureHeader = "X-Hub-Signature-256"

const signatureAlgorithm = "sha256"

// Verifier checks X-Hub-Signature-256 headers against the app secret.
// It holds no mutable state, so Verify is safe for concurrent use.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given app secret.
func NewVerifier(appSecret string) *Verifier {
	return &Verifier{secret: []byte(appSecret)}
}

// Verify reports whether header is a valid signature of body. body must be
// the exact bytes received on the wire.
func (v *Verifier) Verify(body []byte, header string) bool {
	if v == nil || len(v.secret) == 0 || header == "" {
		return false
	}

	// Signature format: "sha256=<hex>"
	parts := strings.Split(header, "=")
	if len(parts) != 2 || parts[0] != signatureAlgorithm {
		return false
	}
	received, err := hex.DecodeString(parts[1])
	if err != nil || len(received) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)

	return hmac.Equal(mac.Sum(nil), received)
}

// Sign returns the header value Meta would send for body. Used by tests and
// local tooling that replays deliveries.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return signatureAlgorithm + "=" + hex.EncodeToString(mac.Sum(nil))
}
