package hubspot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/menumate/menumate/internal/config"
	ierr "github.com/menumate/menumate/internal/errors"
	"github.com/menumate/menumate/internal/logger"
)

// maxSignatureAge rejects replayed requests with stale timestamps
const maxSignatureAge = 5 * time.Minute

// SignatureVerifier validates HubSpot v3 request signatures.
// The signature is an HMAC-SHA256 over method, uri, body and timestamp,
// keyed with the app client secret and base64 encoded.
type SignatureVerifier struct {
	cfg    *config.CRMConfig
	logger *logger.Logger
}

// NewSignatureVerifier creates a signature verifier from configuration
func NewSignatureVerifier(cfg *config.Configuration, logger *logger.Logger) *SignatureVerifier {
	return &SignatureVerifier{
		cfg:    &cfg.CRM,
		logger: logger,
	}
}

// Verify checks the v3 signature header against the raw request.
// Returns a validation error on any mismatch so the caller can reject
// the request before touching the payload.
func (v *SignatureVerifier) Verify(method, uri string, body []byte, signature, timestamp string) error {
	if v.cfg.ClientSecret == "" {
		return ierr.NewError("CRM webhook secret not configured").
			WithHint("HubSpot client secret is not set").
			Mark(ierr.ErrConfigMissing)
	}

	if signature == "" || timestamp == "" {
		return ierr.NewError("missing webhook signature headers").
			WithHint("Request lacks the signature or timestamp header").
			Mark(ierr.ErrValidation)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ierr.NewError("invalid webhook timestamp").
			WithHint("Timestamp header is not a unix millisecond value").
			Mark(ierr.ErrValidation)
	}
	sentAt := time.UnixMilli(ts).UTC()
	if time.Since(sentAt) > maxSignatureAge {
		return ierr.NewError("webhook signature expired").
			WithHint("Request timestamp is older than the accepted window").
			WithReportableDetails(map[string]interface{}{
				"sent_at": sentAt,
			}).
			Mark(ierr.ErrValidation)
	}

	mac := hmac.New(sha256.New, []byte(v.cfg.ClientSecret))
	mac.Write([]byte(method))
	mac.Write([]byte(uri))
	mac.Write(body)
	mac.Write([]byte(timestamp))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		v.logger.Warnw("CRM webhook signature mismatch", "uri", uri)
		return ierr.NewError("invalid webhook signature").
			WithHint("Signature does not match the request payload").
			Mark(ierr.ErrValidation)
	}

	return nil
}
