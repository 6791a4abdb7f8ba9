// Package storage keeps rendered invoice documents and uploaded templates.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/diewo77/gst-invoices/internal/config"
)

// ErrNotExist is returned when a key has no stored object.
var ErrNotExist = errors.New("document does not exist")

// DocumentStore stores opaque documents under slash-separated keys.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// InvoiceKey is where the document of invoice id is stored.
func InvoiceKey(invoiceID string) string {
	return "invoices/invoice-" + invoiceID + ".pdf"
}

// TemplateKey is where an uploaded template file is stored.
func TemplateKey(id, filename string) string {
	return "templates/" + id + "-" + filepath.Base(filename)
}

// New builds the store selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig) (DocumentStore, error) {
	switch cfg.Driver {
	case "minio":
		s, err := NewMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return NewLocalStore(cfg.LocalDir)
	}
}

// LocalStore keeps documents on the local filesystem below Root.
type LocalStore struct {
	Root string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{Root: root}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}

// Put writes data to key, replacing any previous content.
func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads key.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

// Exists reports whether key is stored.
func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes key. Deleting a missing key is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
