package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"guideprogress/pkg/config"
)

var (
	// ErrInvalidKey is returned for keys a backend cannot address
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrUnavailable is returned when a backend cannot be used on this system
	ErrUnavailable = errors.New("storage unavailable")
)

// Store is the key-value port the progress store persists through.
// Get reports found=false with a nil error for a missing key.
type Store interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Open creates the backend selected by cfg
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		fs, err := NewFileStore(cfg.Directory)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.BackendEncrypted:
		es, err := NewEncryptedFileStore(cfg.Directory, cfg.Passphrase)
		if err != nil {
			return nil, err
		}
		return es, nil
	case config.BackendKeyring:
		ks, err := NewKeyringStore()
		if err != nil {
			return nil, err
		}
		return ks, nil
	case config.BackendSQLite:
		path := cfg.DatabasePath
		if path == "" {
			dir, err := DataDirectory()
			if err != nil {
				return nil, fmt.Errorf("failed to get data directory: %w", err)
			}
			path = filepath.Join(dir, "progress.db")
		}
		ss, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return ss, nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return nil
}
