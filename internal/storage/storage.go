package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrObjectNotFound is returned by Get for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

// Storage keeps uploaded originals and the files extracted from them.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Open returns the backend named by driver: "r2" or "local".
func Open(ctx context.Context, driver, localDir string, r2 R2Options) (Storage, error) {
	switch driver {
	case "r2":
		c, err := NewR2Client(ctx, r2)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "local":
		l, err := NewLocalStorage(localDir)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
