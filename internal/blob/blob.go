// Package blob stores uploaded screenshot files. Two variants exist:
// DirStore writes files under the workspace and hands out stable URLs,
// MemStore keeps bytes in memory with URLs that are only valid for the
// lifetime of the process. Callers pick one up front; the rest of the
// system never branches on which variant supplied a URL.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldlens/internal/config"
	"fieldlens/internal/db"
)

type Store interface {
	// Put stores the file content and returns a URL for it.
	Put(ctx context.Context, customerID, filename string, r io.Reader) (string, error)
	// Mode reports the configured storage mode.
	Mode() string
}

// Open builds the store variant selected by cfg for the given workspace.
func Open(cfg *config.Config, workspace string) (Store, error) {
	switch cfg.Storage.Mode {
	case config.StorageOffline:
		return NewMemStore(), nil
	case config.StorageConnected:
		root, err := db.ScreenshotDir(workspace)
		if err != nil {
			return nil, err
		}
		return &DirStore{Root: root, PublicBase: cfg.Storage.PublicBase}, nil
	}
	return nil, fmt.Errorf("unknown storage mode %q", cfg.Storage.Mode)
}

// DirStore writes screenshots under Root as <customerID>/<ts>_<name> and
// returns URLs under PublicBase.
type DirStore struct {
	Root       string
	PublicBase string
	Now        func() time.Time
}

func (s *DirStore) Mode() string { return config.StorageConnected }

func (s *DirStore) Put(ctx context.Context, customerID, filename string, r io.Reader) (string, error) {
	if customerID == "" {
		return "", fmt.Errorf("customer id required")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	name := fmt.Sprintf("%d_%s", now().UTC().UnixMilli(), sanitize(filename))
	dir := filepath.Join(s.Root, customerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return path.Join(s.PublicBase, customerID, name), nil
}

// MemStore is the offline fallback: content lives in memory and URLs use a
// mem:// scheme. Nothing survives the process, so persisted records carry
// URLs that must not be assumed valid across sessions.
type MemStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: map[string][]byte{}}
}

func (s *MemStore) Mode() string { return config.StorageOffline }

func (s *MemStore) Put(ctx context.Context, customerID, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "mem://" + uuid.NewString() + "/" + sanitize(filename)
	s.mu.Lock()
	s.blobs[url] = data
	s.mu.Unlock()
	return url, nil
}

// Get returns the stored bytes for a mem:// URL.
func (s *MemStore) Get(url string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[url]
	return data, ok
}

func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." {
		name = "upload"
	}
	return name
}
