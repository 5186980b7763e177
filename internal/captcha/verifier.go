// Package captcha checks a human-verification token before a registration
// is accepted. Turnstile and hCaptcha take a form-encoded siteverify call;
// cap takes JSON.
package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio/internal/config"
)

var (
	ErrRejected    = errors.New("captcha rejected")
	ErrUnavailable = errors.New("captcha unavailable")
)

type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Disabled accepts every token.
type Disabled struct{}

func (Disabled) Verify(context.Context, string, string) error { return nil }

type SiteVerifier struct {
	URL    string
	Secret string
	JSON   bool
	Client *http.Client
}

func New(cfg config.Config) Verifier {
	provider := strings.ToLower(strings.TrimSpace(cfg.CaptchaProvider))
	if provider == "" || provider == "none" {
		return Disabled{}
	}
	return &SiteVerifier{
		URL:    strings.TrimSpace(cfg.CaptchaVerifyURL),
		Secret: strings.TrimSpace(cfg.CaptchaSecret),
		JSON:   provider == "cap",
		Client: &http.Client{Timeout: 8 * time.Second},
	}
}

type siteverifyResult struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Error      string   `json:"error"`
}

func (v *SiteVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrRejected)
	}
	req, err := v.request(ctx, token, strings.TrimSpace(remoteIP))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: siteverify HTTP %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if v.JSON {
			return fmt.Errorf("%w: siteverify HTTP %d", ErrUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("%w: siteverify HTTP %d", ErrRejected, resp.StatusCode)
	}

	var out siteverifyResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if out.Success {
		return nil
	}
	reason := strings.TrimSpace(out.Error)
	if reason == "" {
		reason = strings.Join(out.ErrorCodes, ",")
	}
	if reason == "" {
		return ErrRejected
	}
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}

func (v *SiteVerifier) request(ctx context.Context, token, remoteIP string) (*http.Request, error) {
	if v.JSON {
		payload := map[string]string{"secret": v.Secret, "response": token}
		if remoteIP != "" {
			payload["remoteip"] = remoteIP
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	form := url.Values{"secret": {v.Secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}
