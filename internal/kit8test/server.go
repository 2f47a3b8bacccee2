// Package kit8test runs an in-memory KIT8 API for tests.
//
// The fake serves the same routes as the platform backend under /api, issues HS256 JWTs at
// /api/auth/login, records every request it receives and can be told to answer a route with a
// fixed status and body. Data lives in memory and is lost when the server is closed.
package kit8test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kit8-platform/kit8/internal/logger"
)

const (
	DefaultSecret   = "kit8test-secret"
	TokenLifetime   = 30 * time.Minute
	DefaultEmail    = "admin@kit8.test"
	DefaultPassword = "correct-horse-battery"
)

// RecordedRequest is a request as received by the fake API.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

type scripted struct {
	status int
	body   string
}

type user struct {
	id           string
	name         string
	passwordHash string
}

// Server is a running fake KIT8 API.
type Server struct {
	*httptest.Server

	secret      string
	requireAuth bool
	logger      *slog.Logger

	mu       sync.Mutex
	requests []RecordedRequest
	scripts  map[string]scripted
	users    map[string]user

	contacts *collection
	deals    *collection
	products *collection
	orders   *collection
	payments *collection
}

type Option func(*Server)

// WithRequireAuth makes every module route demand a valid bearer token.
func WithRequireAuth() Option {
	return func(s *Server) {
		s.requireAuth = true
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer starts the fake API. A default user (DefaultEmail / DefaultPassword) is registered.
// Callers must Close it.
func NewServer(opts ...Option) *Server {
	s := &Server{
		secret:   DefaultSecret,
		logger:   logger.Discard(),
		scripts:  make(map[string]scripted),
		users:    make(map[string]user),
		contacts: newCollection(),
		deals:    newCollection(),
		products: newCollection(),
		orders:   newCollection(),
		payments: newCollection(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.AddUser(DefaultEmail, DefaultPassword, "KIT8 Admin"); err != nil {
		panic(err)
	}

	s.Server = httptest.NewServer(s.routes())
	return s
}

// BaseURL is the value to pass to client.New.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// Script makes the fake answer method+path (path includes the /api prefix) with status and body
// until Unscript is called.
func (s *Server) Script(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[method+" "+path] = scripted{status: status, body: body}
}

func (s *Server) Unscript(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scripts, method+" "+path)
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls counts the requests received for method+path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent request, or false if none was received.
func (s *Server) LastRequest() (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(logger.RequestLogging(s.logger))
	router.Use(s.record)
	router.Use(s.scriptedResponses)

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/crm", func(r chi.Router) {
				r.Get("/contacts", s.contacts.list)
				r.Post("/contacts", s.contacts.create)
				r.Put("/contacts/{id}", s.contacts.update)
				r.Delete("/contacts/{id}", s.contacts.remove)
				r.Get("/contacts/{id}/deals", s.handleContactDeals)
				r.Get("/stats", s.handleCRMStats)
				r.Get("/deals", s.deals.list)
				r.Post("/deals", s.deals.create)
				r.Put("/deals/{id}", s.deals.update)
				r.Delete("/deals/{id}", s.deals.remove)
				r.Get("/deals/stats", s.handleDealStats)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/products", s.products.list)
				r.Post("/products", s.products.create)
				r.Get("/products/{id}", s.products.get)
				r.Put("/products/{id}", s.products.update)
				r.Delete("/products/{id}", s.products.remove)
				r.Get("/stats", s.handleInventoryStats)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/orders", s.orders.list)
				r.Post("/orders", s.orders.create)
				r.Get("/orders/{id}", s.orders.get)
				r.Put("/orders/{id}", s.orders.update)
				r.Delete("/orders/{id}", s.orders.remove)
				r.Get("/stats", s.handleOrderStats)
			})

			r.Route("/cashier", func(r chi.Router) {
				r.Get("/payments", s.payments.list)
				r.Post("/payments", s.payments.create)
				r.Put("/payments/{id}", s.payments.update)
				r.Post("/process", s.handleProcessPayment)
				r.Post("/refund/{id}", s.handleRefundPayment)
				r.Get("/stats", s.handleCashierStats)
			})
		})
	})

	return router
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) scriptedResponses(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		sc, ok := s.scripts[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(sc.status)
		_, _ = w.Write([]byte(sc.body))
	})
}
