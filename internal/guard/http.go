package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portfolio/internal/models"
)

// HTTPSessions implements Sessions against the admin HTTP endpoints.
type HTTPSessions struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSessions(baseURL string) *HTTPSessions {
	return &HTTPSessions{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sessionResponse struct {
	Success bool                 `json:"success"`
	User    models.PublicAccount `json:"user"`
	Error   string               `json:"error"`
}

func (h *HTTPSessions) ActiveSession(ctx context.Context, token string) (models.PublicAccount, error) {
	resp, err := h.do(ctx, http.MethodGet, "/admin-session", token)
	if err != nil {
		return models.PublicAccount{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return models.PublicAccount{}, ErrNoSession
	}
	if resp.StatusCode != http.StatusOK {
		return models.PublicAccount{}, httpError(resp)
	}
	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.PublicAccount{}, fmt.Errorf("decode session response: %w", err)
	}
	if !out.Success || out.User.ID == "" {
		return models.PublicAccount{}, fmt.Errorf("malformed session response")
	}
	return out.User, nil
}

func (h *HTTPSessions) EndSession(ctx context.Context, token string) error {
	resp, err := h.do(ctx, http.MethodPost, "/admin-logout", token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return httpError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (h *HTTPSessions) do(ctx context.Context, method, path, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

func httpError(resp *http.Response) error {
	var body sessionResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	if body.Error != "" {
		return fmt.Errorf("%s %s: %d %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, body.Error)
	}
	return fmt.Errorf("%s %s: %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
}
