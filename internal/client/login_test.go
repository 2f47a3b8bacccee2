package client

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/kit8-platform/kit8/internal/auth"
	"github.com/kit8-platform/kit8/internal/kit8test"
	"github.com/kit8-platform/kit8/internal/tokenstore"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		password   string
		script     func(srv *kit8test.Server)
		wantErr    error
		wantStored bool
	}{
		{
			name:       "valid credentials",
			password:   kit8test.DefaultPassword,
			wantStored: true,
		},
		{
			name:     "wrong password",
			password: "nope",
			wantErr:  ErrAuth,
		},
		{
			name:     "server error is an auth error",
			password: kit8test.DefaultPassword,
			script: func(srv *kit8test.Server) {
				srv.Script(http.MethodPost, "/api/auth/login", http.StatusInternalServerError, `{"error":"boom"}`)
			},
			wantErr: ErrAuth,
		},
		{
			name:     "missing token",
			password: kit8test.DefaultPassword,
			script: func(srv *kit8test.Server) {
				srv.Script(http.MethodPost, "/api/auth/login", http.StatusOK, `{"user":{"id":"1"}}`)
			},
			wantErr: ErrAuth,
		},
		{
			name:     "malformed body",
			password: kit8test.DefaultPassword,
			script: func(srv *kit8test.Server) {
				srv.Script(http.MethodPost, "/api/auth/login", http.StatusOK, `{"token":`)
			},
			wantErr: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			if tt.script != nil {
				tt.script(srv)
			}
			store := tokenstore.NewMemory()
			c := newTestClient(srv, store)

			res, err := c.Login(ctx, Credentials{Email: kit8test.DefaultEmail, Password: tt.password})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
				if StatusCode(err) != 0 {
					t.Errorf("StatusCode() = %d, login errors carry no status", StatusCode(err))
				}
			} else if err != nil {
				t.Fatalf("Login() error = %v", err)
			}

			token, _ := store.Get(tokenstore.TokenKey)
			if tt.wantStored {
				if token == "" || token != res.Token {
					t.Errorf("stored token = %q, want %q", token, res.Token)
				}
				if len(res.Payload) == 0 || len(res.User) == 0 {
					t.Error("login response should keep the full payload and user")
				}
			} else if token != "" {
				t.Errorf("stored token = %q after a failed login, want none", token)
			}
		})
	}
}

func TestLoginRequestHeaders(t *testing.T) {
	srv := newTestServer(t)
	store := tokenstore.NewMemory()
	if err := store.Set(tokenstore.TokenKey, "old-token"); err != nil {
		t.Fatal(err)
	}
	c := newTestClient(srv, store)

	if _, err := c.Login(context.Background(), Credentials{Email: kit8test.DefaultEmail, Password: kit8test.DefaultPassword}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	req := lastRequest(t, srv)
	if req.Method != http.MethodPost || req.Path != "/api/auth/login" {
		t.Errorf("login sent %s %s", req.Method, req.Path)
	}
	if got := req.Header.Get("Authorization"); got != "" {
		t.Errorf("login sent Authorization %q, want none", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if token, _ := store.Get(tokenstore.TokenKey); token == "old-token" {
		t.Error("login should replace the previous token")
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, kit8test.WithRequireAuth())
	c := newTestClient(srv, tokenstore.NewMemory())
	ctx := context.Background()

	if _, err := c.GetContacts(ctx); !errors.Is(err, &ClientError{Code: ErrHTTP.Code, StatusCode: http.StatusUnauthorized}) {
		t.Fatalf("GetContacts() before login error = %v, want http 401", err)
	}

	res, err := c.Login(ctx, Credentials{Email: kit8test.DefaultEmail, Password: kit8test.DefaultPassword})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !c.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = false after login")
	}

	if _, err := c.GetContacts(ctx); err != nil {
		t.Fatalf("GetContacts() after login error = %v", err)
	}
	if got := lastRequest(t, srv).Header.Get("Authorization"); got != "Bearer "+res.Token {
		t.Errorf("Authorization = %q, want the login token", got)
	}

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if c.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after logout")
	}

	_, err = c.GetContacts(ctx)
	if StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("GetContacts() after logout error = %v, want http 401", err)
	}
	if got := lastRequest(t, srv).Header.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q after logout, want none", got)
	}
}

func TestLoginAndLogoutClearCache(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv, nil)
	ctx := context.Background()

	if _, err := c.GetCached(ctx, "/crm/stats", nil, 0); err != nil {
		t.Fatalf("GetCached() error = %v", err)
	}
	if c.Cache().Len() != 1 {
		t.Fatalf("cache holds %d entries, want 1", c.Cache().Len())
	}

	if _, err := c.Login(ctx, Credentials{Email: kit8test.DefaultEmail, Password: kit8test.DefaultPassword}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if c.Cache().Len() != 0 {
		t.Error("login should clear the cache")
	}

	if _, err := c.GetCached(ctx, "/crm/stats", nil, 0); err != nil {
		t.Fatalf("GetCached() error = %v", err)
	}
	if err := c.Logout(); err != nil {
		t.Fatal(err)
	}
	if c.Cache().Len() != 0 {
		t.Error("logout should clear the cache")
	}
}

func TestCurrentUser(t *testing.T) {
	srv := newTestServer(t)
	store := tokenstore.NewMemory()
	c := newTestClient(srv, store)

	if _, err := c.CurrentUser(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("CurrentUser() without a token error = %v, want ErrNotLoggedIn", err)
	}

	if err := store.Set(tokenstore.TokenKey, "opaque"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CurrentUser(); !errors.Is(err, auth.ErrNotJWT) {
		t.Errorf("CurrentUser() with an opaque token error = %v, want auth.ErrNotJWT", err)
	}

	if _, err := c.Login(context.Background(), Credentials{Email: kit8test.DefaultEmail, Password: kit8test.DefaultPassword}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	claims, err := c.CurrentUser()
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if claims.Email != kit8test.DefaultEmail {
		t.Errorf("claims.Email = %q, want %q", claims.Email, kit8test.DefaultEmail)
	}
}

func TestLoginDoesNotLogEmail(t *testing.T) {
	srv := newTestServer(t)
	var buf bytes.Buffer
	c := New(srv.BaseURL(), nil, WithLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	if _, err := c.Login(context.Background(), Credentials{Email: kit8test.DefaultEmail, Password: kit8test.DefaultPassword}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !strings.Contains(buf.String(), "logged in") {
		t.Fatalf("login was not logged: %q", buf.String())
	}
	if strings.Contains(buf.String(), kit8test.DefaultEmail) {
		t.Errorf("log output contains the account email: %q", buf.String())
	}
}
