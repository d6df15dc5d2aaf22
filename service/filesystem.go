package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/model"
	"github.com/gofrs/flock"
)

// FilesystemStorage stores PDFs below a root directory. The directory is
// locked for the lifetime of the storage so two processes never share it.
type FilesystemStorage struct {
	root      string
	publicURL string
	signer    *LinkSigner
	lock      *flock.Flock
}

func NewFilesystemStorage(root, publicURL string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	lock := flock.New(filepath.Join(root, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock storage dir: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("storage dir %s is in use by another process", root)
	}

	return &FilesystemStorage{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		lock:      lock,
	}, nil
}

// Close releases the directory lock.
func (s *FilesystemStorage) Close() error {
	return s.lock.Unlock()
}

func (s *FilesystemStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Write replaces the object atomically.
func (s *FilesystemStorage) Write(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create contract dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func (s *FilesystemStorage) Read(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.ErrFileMissing
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// SignLinks makes URL carry a retrieval token from signer.
func (s *FilesystemStorage) SignLinks(signer *LinkSigner) {
	s.signer = signer
}

// URL points at this service's inline PDF route; the files are not served directly.
func (s *FilesystemStorage) URL(_ context.Context, contractID, _ string) (string, error) {
	return s.signer.Link(s.publicURL, contractID)
}
