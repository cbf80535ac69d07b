package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vet-appointments/internal/platform/httpclient"
	"vet-appointments/internal/ports/auth"
	"vet-appointments/internal/ports/directory"
)

var (
	ErrNotConfigured = errors.New("identity client not configured")
	ErrUnauthorized  = errors.New("identity unauthorized")
	ErrUserNotFound  = errors.New("identity user not found")
	ErrUpstream      = errors.New("identity upstream error")
)

// Config del cliente al servicio de identidad (verificación de tokens y
// perfiles de usuario). BaseURL y APIKey normalmente vienen de env vars.
type Config struct {
	BaseURL string
	APIKey  string

	// Opcional: header donde viaja la API key. Default "X-Api-Key".
	APIKeyHeader string

	Timeout time.Duration
}

type Client struct {
	http         *httpclient.Client
	apiKey       string
	apiKeyHeader string
}

func NewClient(cfg Config) (*Client, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}

	hc, err := httpclient.New(httpclient.Options{
		BaseURL: strings.TrimSpace(cfg.BaseURL),
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		http:         hc,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http.Configured() && c.apiKey != ""
}

// VerifyToken valida un bearer token contra el servicio de identidad y
// devuelve los claims (user id + role).
func (c *Client) VerifyToken(ctx context.Context, token string) (auth.Claims, error) {
	if !c.IsConfigured() {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	var out struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
		Email  string `json:"email"`
	}

	err := c.http.DoJSON(ctx, http.MethodPost, "/v1/tokens/verify", c.headers(map[string]string{
		"Authorization": "Bearer " + token,
	}), map[string]string{"token": token}, &out)
	if err != nil {
		return auth.Claims{}, classify(err)
	}

	out.UserID = strings.TrimSpace(out.UserID)
	if out.UserID == "" {
		return auth.Claims{}, errors.New("identity response missing user_id")
	}

	return auth.Claims{
		UserID: out.UserID,
		Role:   strings.TrimSpace(out.Role),
		Email:  strings.TrimSpace(out.Email),
	}, nil
}

// FindByID implementa directory.Directory: resuelve el perfil (nombre para
// mostrar) de un usuario. Los consumidores lo tratan como best-effort.
func (c *Client) FindByID(ctx context.Context, userID string) (directory.Profile, error) {
	if !c.IsConfigured() {
		return directory.Profile{}, ErrNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return directory.Profile{}, ErrUserNotFound
	}

	var out struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	}

	err := c.http.DoJSON(ctx, http.MethodGet, "/v1/users/"+userID, c.headers(nil), nil, &out)
	if err != nil {
		return directory.Profile{}, classify(err)
	}

	return directory.Profile{
		UserID:      strings.TrimSpace(out.UserID),
		DisplayName: strings.TrimSpace(out.DisplayName),
		Email:       strings.TrimSpace(out.Email),
	}, nil
}

func (c *Client) headers(extra map[string]string) map[string]string {
	h := map[string]string{
		c.apiKeyHeader: c.apiKey,
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func classify(err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrUnauthorized
		case http.StatusNotFound:
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: status=%d", ErrUpstream, httpErr.StatusCode)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
