package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by ObjectStore.Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the durable binary storage holding bulletins, the tracker
// object and archived run logs.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// List returns every key under prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}
