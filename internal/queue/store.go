package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrCapacityExceeded reports that a serialized queue no longer fits the
// store's configured capacity. The queue reacts by evicting its oldest
// entries, never the newest one.
var ErrCapacityExceeded = errors.New("queue: store capacity exceeded")

// Store persists the serialized queue under a single stable key. The
// payload is an opaque JSON blob from the store's point of view.
type Store interface {
	// Load returns the stored blob and whether one was present. An
	// absent blob is not an error.
	Load() ([]byte, bool, error)
	// Save replaces the stored blob atomically.
	Save(data []byte) error
}

// FileStore keeps the queue in a single file, replaced atomically on
// every save so a crash mid-write never leaves a torn blob behind.
type FileStore struct {
	path     string
	maxBytes int
}

// FileStoreConfig configures the on-disk queue store.
type FileStoreConfig struct {
	// Path locates the queue file. Parent directories are created on
	// first save.
	Path string
	// MaxBytes caps the serialized queue size. Zero means unlimited.
	MaxBytes int
}

// NewFileStore constructs a file-backed store.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("queue: store path is required")
	}
	return &FileStore{path: cfg.Path, maxBytes: cfg.MaxBytes}, nil
}

// Load reads the queue file. A missing file reads as no blob.
func (s *FileStore) Load() ([]byte, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Save writes the blob to a temporary file and renames it into place.
func (s *FileStore) Save(data []byte) error {
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes over %d limit", ErrCapacityExceeded, len(data), s.maxBytes)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	temp := s.path + ".tmp"
	if err := os.WriteFile(temp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(temp, s.path)
}

// MemoryStore is an in-process Store used by tests and by callers that
// do not need durability across restarts.
type MemoryStore struct {
	mu       sync.Mutex
	data     []byte
	present  bool
	maxBytes int
}

// NewMemoryStore constructs an in-memory store. maxBytes of zero means
// unlimited.
func NewMemoryStore(maxBytes int) *MemoryStore {
	return &MemoryStore{maxBytes: maxBytes}
}

// Load returns the held blob, if any.
func (s *MemoryStore) Load() ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return nil, false, nil
	}
	return append([]byte(nil), s.data...), true, nil
}

// Save replaces the held blob.
func (s *MemoryStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes over %d limit", ErrCapacityExceeded, len(data), s.maxBytes)
	}
	s.data = append([]byte(nil), data...)
	s.present = true
	return nil
}
