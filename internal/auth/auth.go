// Package auth resolves bearer credentials to user identities.
//
// The production implementation talks to a hosted GoTrue-compatible
// identity provider (the same service the frontend obtains its tokens
// from); worklog never issues or validates tokens itself. Consumers
// depend on the Verifier interface so tests can substitute a fake.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors. Check with errors.Is().
var (
	// ErrUnauthorized indicates the credential is missing, malformed,
	// expired, or rejected by the identity provider.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrProviderUnavailable indicates the identity provider could not
	// be reached; distinct from a rejected token.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// User is a resolved identity.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Verifier validates a bearer token and yields the user it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// Credentials is a password-grant login request.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is the token bundle returned by a successful login. It is
// passed through to the client verbatim; worklog holds no session state.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

const requestTimeout = 10 * time.Second

// Client talks to a GoTrue-compatible identity provider over REST.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the provider at baseURL (e.g.
// "https://xyz.example.co/auth/v1"). apiKey is the provider's public
// (anon) key, sent alongside every request.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// Verify resolves a bearer token via the provider's GET /user endpoint.
func (c *Client) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("building verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding user payload: %w", err)
	}

	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing user id %q: %w", payload.ID, err)
	}

	return &User{ID: id, Email: payload.Email}, nil
}

// Login exchanges email/password credentials for a token bundle via the
// provider's password grant.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("login rejected", "status", resp.StatusCode, "email", creds.Email)
		return nil, ErrUnauthorized
	}

	var session Session
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&session); err != nil {
		return nil, fmt.Errorf("decoding session payload: %w", err)
	}
	return &session, nil
}

// BearerToken extracts the token from an Authorization header value.
// Returns empty string if the header is not a bearer credential.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
