package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/kit8-platform/kit8/internal/auth"
	"github.com/kit8-platform/kit8/internal/tokenstore"
)

const loginEndpoint = "/auth/login"

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the decoded login payload. Payload holds the full body as received.
type LoginResponse struct {
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user,omitempty"`
	Payload Payload         `json:"-"`
}

// Login authenticates against the KIT8 API and stores the returned token, replacing any previous one.
//
// The login call does not go through Request: it carries only the JSON content type and never an
// Authorization header. Any non-2xx response is reported as ErrAuth without the status code.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	target := c.baseURL + loginEndpoint
	logger := c.logger.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("method", http.MethodPost),
		slog.String("url", target),
	)

	jsonData, err := json.Marshal(creds)
	if err != nil {
		return nil, c.fail(logger, NewClientSerializationError(err, "marshaling login request"))
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	res, cerr := c.send(ctx, http.MethodPost, target, headers, bytes.NewReader(jsonData))
	if cerr != nil {
		return nil, c.fail(logger, cerr)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		logger.Debug("login rejected", slog.Int("status", res.StatusCode))
		return nil, c.fail(logger, NewClientAuthError("server rejected the credentials", nil))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, c.fail(logger, NewClientConnectionError(err, "reading login response"))
	}

	var loginRes LoginResponse
	if err := json.Unmarshal(data, &loginRes); err != nil {
		return nil, c.fail(logger, NewClientParseError(err, "decoding login response"))
	}
	if loginRes.Token == "" {
		return nil, c.fail(logger, NewClientAuthError("response did not contain a token", nil))
	}
	loginRes.Payload = Payload(data)

	if err := c.store.Set(tokenstore.TokenKey, loginRes.Token); err != nil {
		return nil, c.fail(logger, NewClientAuthError("could not store the session token", err))
	}
	// responses cached under the previous identity must not leak into the new session
	c.cache.Clear()

	logger.Info("logged in")
	return &loginRes, nil
}

// Logout forgets the stored token and the response cache. No request is sent.
// The in-memory store never fails; a file store can.
func (c *Client) Logout() error {
	c.cache.Clear()
	if err := c.store.Delete(tokenstore.TokenKey); err != nil {
		c.logger.Error("could not remove session token", slog.String("error", err.Error()))
		return fmt.Errorf("failed to remove session token: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a non-empty token is stored. The token is not validated.
func (c *Client) IsAuthenticated() bool {
	return c.token(c.logger) != ""
}

// ErrNotLoggedIn is returned by CurrentUser when no token is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// CurrentUser decodes the claims of the stored token without verifying it.
// Opaque (non-JWT) tokens return auth.ErrNotJWT.
func (c *Client) CurrentUser() (*auth.Claims, error) {
	token := c.token(c.logger)
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	return auth.ParseClaims(token)
}
