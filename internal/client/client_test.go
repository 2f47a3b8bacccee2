package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kit8-platform/kit8/internal/kit8test"
	"github.com/kit8-platform/kit8/internal/logger"
	"github.com/kit8-platform/kit8/internal/tokenstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestServer(t *testing.T, opts ...kit8test.Option) *kit8test.Server {
	t.Helper()
	srv := kit8test.NewServer(opts...)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *kit8test.Server, store tokenstore.Store, opts ...Option) *Client {
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	return New(srv.BaseURL(), store, opts...)
}

func lastRequest(t *testing.T, srv *kit8test.Server) kit8test.RecordedRequest {
	t.Helper()
	req, ok := srv.LastRequest()
	if !ok {
		t.Fatal("the fake API received no request")
	}
	return req
}

func TestNewDefaults(t *testing.T) {
	c := New("", nil)
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}
	if c.IsAuthenticated() {
		t.Error("a new client with an empty store should not be authenticated")
	}
	if c.Cache() == nil {
		t.Error("a new client should own a cache")
	}
}

func TestGetQueryString(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		params    Params
		wantQuery string
	}{
		{name: "nil params", params: nil, wantQuery: ""},
		{name: "empty params", params: Params{}, wantQuery: ""},
		{name: "caller order kept", params: Params{{"stage", "won"}, {"page", 2}}, wantQuery: "stage=won&page=2"},
		{name: "values escaped", params: Params{{"q", "Ann & Bob"}}, wantQuery: "q=Ann+%26+Bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Get(ctx, "/crm/contacts", tt.params); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			req := lastRequest(t, srv)
			if req.Path != "/api/crm/contacts" {
				t.Errorf("path = %q, want /api/crm/contacts", req.Path)
			}
			if req.RawQuery != tt.wantQuery {
				t.Errorf("query = %q, want %q", req.RawQuery, tt.wantQuery)
			}
		})
	}
}

func TestWithQueryNoTrailingQuestionMark(t *testing.T) {
	for _, endpoint := range []string{"/crm/contacts", "/health", "/crm/deals/stats"} {
		if got := withQuery(endpoint, Params{}); got != endpoint {
			t.Errorf("withQuery(%q, {}) = %q, want the endpoint unchanged", endpoint, got)
		}
	}
}

func TestRequestHeaders(t *testing.T) {
	srv := newTestServer(t)
	store := tokenstore.NewMemory()
	c := newTestClient(srv, store)
	ctx := context.Background()

	t.Run("no token no authorization", func(t *testing.T) {
		if _, err := c.GetContacts(ctx); err != nil {
			t.Fatalf("GetContacts() error = %v", err)
		}
		req := lastRequest(t, srv)
		if got := req.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want none", got)
		}
		if got := req.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		if req.Header.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID missing")
		}
	})

	t.Run("token stored after construction is used", func(t *testing.T) {
		if err := store.Set(tokenstore.TokenKey, "late-token"); err != nil {
			t.Fatal(err)
		}
		if _, err := c.GetContacts(ctx); err != nil {
			t.Fatalf("GetContacts() error = %v", err)
		}
		if got := lastRequest(t, srv).Header.Get("Authorization"); got != "Bearer late-token" {
			t.Errorf("Authorization = %q, want Bearer late-token", got)
		}
	})

	t.Run("explicit authorization wins", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Authorization", "Bearer caller-token")
		headers.Set("X-Trace", "1")

		_, err := c.Request(ctx, "/crm/contacts", RequestOptions{Headers: headers})
		if err != nil {
			t.Fatalf("Request() error = %v", err)
		}
		req := lastRequest(t, srv)
		if got := req.Header.Get("Authorization"); got != "Bearer caller-token" {
			t.Errorf("Authorization = %q, want Bearer caller-token", got)
		}
		if got := req.Header.Get("X-Trace"); got != "1" {
			t.Errorf("X-Trace = %q, want 1", got)
		}
	})

	t.Run("caller content type overrides the default", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Content-Type", "text/plain")

		_, err := c.Request(ctx, "/crm/contacts", RequestOptions{Method: http.MethodPost, Body: []byte(`{"first_name":"Ann"}`), Headers: headers})
		if err != nil {
			t.Fatalf("Request() error = %v", err)
		}
		if got := lastRequest(t, srv).Header.Get("Content-Type"); got != "text/plain" {
			t.Errorf("Content-Type = %q, want text/plain", got)
		}
	})
}

func TestHTTPError(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv, nil)

	_, err := c.Get(context.Background(), "/missing", nil)
	if !errors.Is(err, ErrHTTP) {
		t.Fatalf("Get(/missing) error = %v, want ErrHTTP", err)
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode() = %d, want 404", StatusCode(err))
	}
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrParse) {
		t.Error("an http error must not match other kinds")
	}

	var ce *ClientError
	if !errors.As(err, &ce) || ce.UserError() == "" {
		t.Errorf("expected a ClientError with a user message, got %#v", err)
	}
}

func TestHTTPErrorUsesServerMessage(t *testing.T) {
	srv := newTestServer(t)
	srv.Script(http.MethodPost, "/api/crm/contacts", http.StatusBadRequest, `{"error":"email is required"}`)
	c := newTestClient(srv, nil)

	_, err := c.CreateContact(context.Background(), Contact{FirstName: "Ann"})

	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("CreateContact() error = %v, want *ClientError", err)
	}
	if ce.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", ce.StatusCode)
	}
	if ce.UserError() != "email is required" {
		t.Errorf("UserError() = %q, want the server message", ce.UserError())
	}
	if !strings.Contains(ce.Error(), "status: 400") {
		t.Errorf("Error() = %q, want the status in the log message", ce.Error())
	}
}

func TestParseError(t *testing.T) {
	srv := newTestServer(t)
	srv.Script(http.MethodGet, "/api/crm/contacts", http.StatusOK, `{"success":true,"data":[`)
	c := newTestClient(srv, nil)

	_, err := c.GetContacts(context.Background())
	if !errors.Is(err, ErrParse) {
		t.Fatalf("GetContacts() error = %v, want ErrParse", err)
	}
}

func TestNoContentYieldsNull(t *testing.T) {
	srv := newTestServer(t)
	srv.Script(http.MethodDelete, "/api/crm/contacts/9", http.StatusNoContent, "")
	c := newTestClient(srv, nil)

	got, err := c.DeleteContact(context.Background(), 9)
	if err != nil {
		t.Fatalf("DeleteContact() error = %v", err)
	}
	if string(got) != "null" {
		t.Errorf("DeleteContact() = %s, want null", got)
	}
}

func TestNetworkError(t *testing.T) {
	srv := kit8test.NewServer()
	baseURL := srv.BaseURL()
	srv.Close()

	c := New(baseURL, nil, WithLogger(logger.Discard()))
	_, err := c.GetPlatformStatus(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("GetPlatformStatus() error = %v, want ErrNetwork", err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("StatusCode() = %d, want 0 for a network error", StatusCode(err))
	}
}

func TestSerializationError(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv, nil)

	tests := []struct {
		name string
		call func() error
	}{
		{"post channel", func() error {
			_, err := c.Post(context.Background(), "/crm/contacts", make(chan int))
			return err
		}},
		{"put function", func() error {
			_, err := c.Put(context.Background(), "/crm/contacts/1", map[string]any{"f": func() {}})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrSerialization) {
				t.Errorf("error = %v, want ErrSerialization", err)
			}
		})
	}

	if n := len(srv.Requests()); n != 0 {
		t.Errorf("%d requests sent for unserializable data, want 0", n)
	}
}

func TestErrorsAreLogged(t *testing.T) {
	srv := newTestServer(t)
	var buf bytes.Buffer
	c := New(srv.BaseURL(), nil, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	if _, err := c.Get(context.Background(), "/missing", nil); err == nil {
		t.Fatal("expected an error")
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q", buf.String())
	}
	if entry["level"] != "ERROR" || entry["error_code"] != "http_error" {
		t.Errorf("unexpected log entry %v", entry)
	}
	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("logged status = %v, want 404", entry["status"])
	}
	if entry["request_id"] == "" || entry["request_id"] == nil {
		t.Error("request_id missing from the log entry")
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv, nil, WithRateLimit(0.001, 1))

	if _, err := c.GetPlatformStatus(context.Background()); err != nil {
		t.Fatalf("first request error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.GetPlatformStatus(ctx)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("rate limited request error = %v, want ErrNetwork", err)
	}
	if n := srv.Calls(http.MethodGet, "/api/health"); n != 1 {
		t.Errorf("health calls = %d, want 1", n)
	}
}

func TestDecode(t *testing.T) {
	env, err := Decode[Envelope[[]Contact]](Payload(`{"success":true,"data":[{"id":3,"first_name":"Ann","email":"a@x.com"}]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !env.Success || len(env.Data) != 1 || env.Data[0].FirstName != "Ann" {
		t.Errorf("Decode() = %+v", env)
	}

	if _, err := Decode[CRMStats](Payload(`[1,2]`)); !errors.Is(err, ErrParse) {
		t.Errorf("Decode() mismatch error = %v, want ErrParse", err)
	}
}

func TestWithTimeout(t *testing.T) {
	tests := []struct {
		name string
		opts func(shared *http.Client) []Option
		want time.Duration
	}{
		{
			name: "default client",
			opts: func(*http.Client) []Option { return []Option{WithTimeout(5 * time.Second)} },
			want: 5 * time.Second,
		},
		{
			name: "timeout before http client",
			opts: func(shared *http.Client) []Option {
				return []Option{WithTimeout(5 * time.Second), WithHTTPClient(shared)}
			},
			want: 5 * time.Second,
		},
		{
			name: "timeout after http client",
			opts: func(shared *http.Client) []Option {
				return []Option{WithHTTPClient(shared), WithTimeout(5 * time.Second)}
			},
			want: 5 * time.Second,
		},
		{
			name: "no timeout keeps the http client's own",
			opts: func(shared *http.Client) []Option { return []Option{WithHTTPClient(shared)} },
			want: time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := &http.Client{Timeout: time.Second}
			c := New("", nil, tt.opts(shared)...)

			if c.httpClient.Timeout != tt.want {
				t.Errorf("timeout = %v, want %v", c.httpClient.Timeout, tt.want)
			}
			if shared.Timeout != time.Second {
				t.Errorf("caller's http.Client timeout changed to %v", shared.Timeout)
			}
		})
	}
}
