// Package tokenstore persists small string values (the session token) between runs of the client.
package tokenstore

// TokenKey is the key the session token is stored under.
const TokenKey = "token"

// Store is a durable key-value store.
// Get returns an empty string and no error when the key is absent.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
