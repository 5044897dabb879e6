// Package storage provides the key-value substrate progress records are
// persisted to.
//
// Store is small: get, set and delete of string values under
// string keys. Backends:
//   - FileStore: one JSON file per key, written atomically (temp file, fsync, rename)
//   - EncryptedFileStore: FileStore with AES-GCM sealed values, PBKDF2 key derivation
//   - KeyringStore: the system keychain
//   - SQLiteStore: a kv table in a SQLite database, retrying briefly while
//     another process holds the write lock
//   - MemoryStore: process memory, used as the in-session fallback and in tests
//
// File-based backends live in platform-specific data directories:
//   - Linux: $XDG_DATA_HOME/guideprogress or ~/.local/share/guideprogress
//   - macOS: ~/Library/Application Support/guideprogress
//   - Windows: %APPDATA%/guideprogress
//
// Usage:
//
//	store, err := storage.Open(cfg.Storage)
//	if err != nil {
//	    store = storage.NewMemoryStore()
//	}
//	defer store.Close()
package storage
