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
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/kit8-platform/kit8/internal/tokenstore"
)

// Payload is a JSON response body exactly as the server sent it.
type Payload = json.RawMessage

// Decode unmarshals a payload into T. A mismatch is reported as a parse error.
func Decode[T any](p Payload) (T, error) {
	var v T
	if err := json.Unmarshal(p, &v); err != nil {
		return v, NewClientParseError(err, fmt.Sprintf("decoding payload into %T", v))
	}
	return v, nil
}

// Param is one query string parameter. Values are formatted with fmt.Sprint.
type Param struct {
	Key   string
	Value any
}

// Params keeps query parameters in the order the caller listed them.
type Params []Param

// Encode returns the query string without the leading "?".
func (p Params) Encode() string {
	var sb strings.Builder
	for i, param := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(param.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(fmt.Sprint(param.Value)))
	}
	return sb.String()
}

// RequestOptions are the per-call settings for Request.
// Headers override the client defaults. A non-empty Authorization header disables token injection.
type RequestOptions struct {
	Method  string
	Body    []byte
	Headers http.Header
}

// Request sends a request to baseURL+endpoint and returns the JSON response body.
//
// Failures are returned as *ClientError: ErrHTTP for a non-2xx status (StatusCode set),
// ErrNetwork when no response was received and ErrParse when the body is not JSON.
// A 204 response has no body and yields a JSON null payload.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) (Payload, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.baseURL + endpoint

	requestID := uuid.NewString()
	logger := c.logger.With(
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.String("url", target),
	)

	headers := c.defaultHeaders.Clone()
	for name, values := range opts.Headers {
		headers[http.CanonicalHeaderKey(name)] = values
	}
	if headers.Get("Authorization") == "" {
		headers.Del("Authorization")
		if token := c.token(logger); token != "" {
			headers.Set("Authorization", "Bearer "+token)
		}
	}
	headers.Set("X-Request-ID", requestID)

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	res, cerr := c.send(ctx, method, target, headers, body)
	if cerr != nil {
		return nil, c.fail(logger, cerr)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, c.fail(logger, NewClientConnectionError(err, "reading response body"))
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, c.fail(logger, NewClientApiError(res.StatusCode, data))
	}

	if res.StatusCode == http.StatusNoContent {
		return Payload("null"), nil
	}

	if !json.Valid(data) {
		return nil, c.fail(logger, NewClientParseError(errors.New("response body is not valid JSON"), "parsing response"))
	}

	logger.Debug("request completed", slog.Int("status", res.StatusCode), slog.Int("bytes", len(data)))
	return Payload(data), nil
}

// Get sends a GET request with params appended as a query string.
// Empty params leave the endpoint untouched (no trailing "?").
func (c *Client) Get(ctx context.Context, endpoint string, params Params) (Payload, error) {
	return c.Request(ctx, withQuery(endpoint, params), RequestOptions{Method: http.MethodGet})
}

// Post sends data encoded as JSON.
func (c *Client) Post(ctx context.Context, endpoint string, data any) (Payload, error) {
	return c.sendJSON(ctx, http.MethodPost, endpoint, data)
}

// Put sends data encoded as JSON.
func (c *Client) Put(ctx context.Context, endpoint string, data any) (Payload, error) {
	return c.sendJSON(ctx, http.MethodPut, endpoint, data)
}

func (c *Client) Delete(ctx context.Context, endpoint string) (Payload, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodDelete})
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, data any) (Payload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		logger := c.logger.With(slog.String("method", method), slog.String("url", c.baseURL+endpoint))
		return nil, c.fail(logger, NewClientSerializationError(err, "marshaling request body"))
	}
	return c.Request(ctx, endpoint, RequestOptions{Method: method, Body: jsonData})
}

// send waits for the rate limiter and performs the HTTP round trip.
// The caller must close the response body.
func (c *Client) send(ctx context.Context, method, target string, headers http.Header, body io.Reader) (*http.Response, *ClientError) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewClientConnectionError(err, "waiting for the rate limiter")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, NewClientConnectionError(err, "creating request")
	}
	req.Header = headers

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewClientConnectionError(err, "sending request")
	}
	return res, nil
}

// token returns the stored session token. A store that cannot be read is treated as logged out;
// the server then rejects the request and the caller gets an http error.
func (c *Client) token(logger *slog.Logger) string {
	token, err := c.store.Get(tokenstore.TokenKey)
	if err != nil {
		logger.Warn("could not read session token", slog.String("error", err.Error()))
		return ""
	}
	return token
}

func (c *Client) fail(logger *slog.Logger, err *ClientError) error {
	attrs := []slog.Attr{
		slog.String("error_code", string(err.Code)),
		slog.String("error", err.LogMessage),
	}
	if err.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", err.StatusCode))
	}
	logger.LogAttrs(context.Background(), slog.LevelError, "API request error", attrs...)
	return err
}

func withQuery(endpoint string, params Params) string {
	query := params.Encode()
	if query == "" {
		return endpoint
	}
	return endpoint + "?" + query
}
