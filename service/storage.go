package service

import (
	"context"
)

// FileStorage holds contract PDF bytes under object keys of the form
// "<contract id>/<name>".
// Read returns model.ErrFileMissing when the key does not exist.
type FileStorage interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	URL(ctx context.Context, contractID, key string) (string, error)
}
