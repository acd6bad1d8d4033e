// Package captcha verifies hCaptcha response tokens submitted with the
// public intake forms. Verification is skipped when no secret key is
// configured, so local and test setups work without an hCaptcha account.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// hCaptcha verification endpoint
	defaultVerifyURL = "https://api.hcaptcha.com/siteverify"
	// Timeout for verification requests
	verifyTimeout = 10 * time.Second
)

// VerifyResponse represents the hCaptcha API response.
type VerifyResponse struct {
	Success     bool      `json:"success"`
	ChallengeTS time.Time `json:"challenge_ts"`
	Hostname    string    `json:"hostname"`
	ErrorCodes  []string  `json:"error-codes"`
}

// Verifier checks captcha tokens against the hCaptcha API.
type Verifier struct {
	secretKey string
	verifyURL string
	client    *http.Client
}

// NewVerifier creates a captcha verifier. An empty secretKey disables
// verification entirely.
func NewVerifier(secretKey string) *Verifier {
	return &Verifier{
		secretKey: secretKey,
		verifyURL: defaultVerifyURL,
		client:    &http.Client{Timeout: verifyTimeout},
	}
}

// NewVerifierWithURL creates a verifier against a custom endpoint.
func NewVerifierWithURL(secretKey, verifyURL string) *Verifier {
	v := NewVerifier(secretKey)
	v.verifyURL = verifyURL
	return v
}

// Enabled reports whether captcha verification is configured.
func (v *Verifier) Enabled() bool {
	return v.secretKey != ""
}

// Verify checks the captcha response token with the hCaptcha API.
// When verification is disabled it reports success without a network call.
func (v *Verifier) Verify(ctx context.Context, response, remoteIP string) (*VerifyResponse, error) {
	if !v.Enabled() {
		return &VerifyResponse{Success: true}, nil
	}

	if response == "" {
		return nil, fmt.Errorf("missing captcha response")
	}

	data := url.Values{}
	data.Set("secret", v.secretKey)
	data.Set("response", response)
	if remoteIP != "" {
		data.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse captcha response: %w", err)
	}

	return &result, nil
}
