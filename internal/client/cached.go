package client

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"
)

// GetCached is a read-through cache in front of Get.
//
// A response stored less than ttl ago is returned without a network call; otherwise Get is called
// and its result stored with the current time. ttl <= 0 means DefaultCacheTTL. Failed lookups are
// not cached. Each call returns its own copy of the payload.
//
// Concurrent misses for the same key share one request unless WithoutInflightDedup was used. The
// shared request is not cancelled by any single caller; a caller whose ctx ends stops waiting for
// it and gets a network error.
func (c *Client) GetCached(ctx context.Context, endpoint string, params Params, ttl time.Duration) (Payload, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	key := cacheKey(endpoint, params)

	if cached, ok := c.cache.Get(key, ttl); ok {
		return Payload(cached), nil
	}

	if c.inflight == nil {
		return c.fetchAndStore(ctx, key, endpoint, params)
	}

	shared := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (any, error) {
		return c.fetchAndStore(shared, key, endpoint, params)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return Payload(bytes.Clone(res.Val.(Payload))), nil
	case <-ctx.Done():
		logger := c.logger.With(slog.String("method", http.MethodGet), slog.String("url", c.baseURL+endpoint))
		return nil, c.fail(logger, NewClientConnectionError(ctx.Err(), "waiting for a shared request"))
	}
}

func (c *Client) fetchAndStore(ctx context.Context, key, endpoint string, params Params) (Payload, error) {
	data, err := c.Get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, data)
	return data, nil
}

// cacheKey is endpoint?query; the "?" is kept even when params are empty.
func cacheKey(endpoint string, params Params) string {
	return endpoint + "?" + params.Encode()
}
