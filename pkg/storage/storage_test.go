package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"guideprogress/pkg/config"
)

const sampleRecord = `{"sectionsVisited":["intro"],"exercisesCompleted":[],"totalTimeSpent":3,"lastVisited":"intro","currentStreak":0,"achievements":["first-section"]}`

// exerciseStore runs the behaviour every backend must share
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	t.Run("MissingKey", func(t *testing.T) {
		value, found, err := s.Get("absent")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, value)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, s.Set("guide-progress", sampleRecord))

		value, found, err := s.Get("guide-progress")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, sampleRecord, value)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, s.Set("guide-progress", "first"))
		require.NoError(t, s.Set("guide-progress", "second"))

		value, _, err := s.Get("guide-progress")
		require.NoError(t, err)
		assert.Equal(t, "second", value)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Set("to-delete", "x"))
		require.NoError(t, s.Delete("to-delete"))

		_, found, err := s.Get("to-delete")
		require.NoError(t, err)
		assert.False(t, found)

		// deleting a missing key is not an error
		assert.NoError(t, s.Delete("to-delete"))
	})

	t.Run("EmptyKey", func(t *testing.T) {
		assert.ErrorIs(t, s.Set("", "x"), ErrInvalidKey)
		_, _, err := s.Get("")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.NoError(t, s.Close())
}

func TestMemoryStoreErrorInjection(t *testing.T) {
	s := NewMemoryStore()
	s.SetError = errors.New("quota exceeded")
	s.GetError = errors.New("storage disabled")

	assert.EqualError(t, s.Set("k", "v"), "quota exceeded")
	_, _, err := s.Get("k")
	assert.EqualError(t, err, "storage disabled")
	assert.Equal(t, 0, s.Writes())

	s.SetError = nil
	require.NoError(t, s.Set("k", "v"))
	assert.Equal(t, 1, s.Writes())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set("guide-progress.alice/../x", sampleRecord))

	path := s.Path("guide-progress.alice/../x")
	assert.Equal(t, dir, filepath.Dir(path), "keys never escape the store directory")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRecord, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp files are cleaned up: %s", e.Name())
	}
}

func TestFileStoreDefaultDirectory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is linux only")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)

	s, err := NewFileStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(xdg, "guideprogress", "progress"), s.Dir())
}

func TestEncryptedFileStore(t *testing.T) {
	s, err := NewEncryptedFileStore(t.TempDir(), "correct horse battery staple")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestEncryptedFileStoreSealsValues(t *testing.T) {
	dir := t.TempDir()
	s, err := NewEncryptedFileStore(dir, "secret")
	require.NoError(t, err)

	require.NoError(t, s.Set("guide-progress", sampleRecord))

	raw, err := os.ReadFile(s.files.Path("guide-progress"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "first-section")
	assert.Contains(t, string(raw), `"salt"`)

	wrong := &EncryptedFileStore{files: s.files, passphrase: "not the secret"}
	_, _, err = wrong.Get("guide-progress")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestEncryptedFileStoreRejectsWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	s, err := NewEncryptedFileStore(dir, "correct")
	require.NoError(t, err)
	require.NoError(t, s.Set("guide-progress", sampleRecord))

	wrong, err := NewEncryptedFileStore(dir, "typo")
	assert.ErrorIs(t, err, ErrDecrypt)
	assert.Nil(t, wrong)

	_, err = Open(config.StorageConfig{Backend: config.BackendEncrypted, Directory: dir, Passphrase: "typo"})
	assert.ErrorIs(t, err, ErrDecrypt)

	again, err := NewEncryptedFileStore(dir, "correct")
	require.NoError(t, err)
	value, found, err := again.Get("guide-progress")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sampleRecord, value)
}

func TestEncryptedFileStoreIgnoresPlainFiles(t *testing.T) {
	dir := t.TempDir()
	plain, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, plain.Set("notes", sampleRecord))

	_, err = NewEncryptedFileStore(dir, "anything")
	assert.NoError(t, err)
}

func TestEncryptedFileStoreGeneratedPassphrase(t *testing.T) {
	dir := t.TempDir()

	first, err := NewEncryptedFileStore(dir, "")
	require.NoError(t, err)
	require.NoError(t, first.Set("k", "value"))

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a second instance picks up the same generated passphrase
	second, err := NewEncryptedFileStore(dir, "")
	require.NoError(t, err)
	value, found, err := second.Get("k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", value)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	s, err := NewKeyringStore()
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestKeyringStoreUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	defer keyring.MockInit()

	_, err := NewKeyringStore()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "progress.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("guide-progress", sampleRecord))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, found, err := reopened.Get("guide-progress")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sampleRecord, value)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr bool
	}{
		{"file", config.StorageConfig{Backend: config.BackendFile, Directory: dir}, false},
		{"encrypted", config.StorageConfig{Backend: config.BackendEncrypted, Directory: filepath.Join(dir, "enc"), Passphrase: "p"}, false},
		{"sqlite", config.StorageConfig{Backend: config.BackendSQLite, DatabasePath: filepath.Join(dir, "p.db")}, false},
		{"memory", config.StorageConfig{Backend: config.BackendMemory}, false},
		{"unknown", config.StorageConfig{Backend: "cloud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, s)
			require.NoError(t, s.Set("k", "v"))
			assert.NoError(t, s.Close())
		})
	}
}

func TestSQLiteStoreRetriesLockedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")

	holder, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer holder.Close()

	writer, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer writer.Close()

	tx, err := holder.db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO kv (key, value, updated_at) VALUES ('lock', 'held', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	released := make(chan error, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		released <- tx.Commit()
	}()

	require.NoError(t, writer.Set("guide-progress", sampleRecord))
	require.NoError(t, <-released)

	value, found, err := writer.Get("guide-progress")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sampleRecord, value)
}

func TestIsBusy(t *testing.T) {
	assert.False(t, isBusy(nil))
	assert.False(t, isBusy(errors.New("database is locked")))
	assert.False(t, isBusy(ErrInvalidKey))
}
