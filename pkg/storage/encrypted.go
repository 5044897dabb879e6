package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// ErrDecrypt is returned when a stored value cannot be opened with the
// configured passphrase
var ErrDecrypt = errors.New("failed to decrypt stored value")

// EncryptedFileStore seals each value with AES-GCM under a PBKDF2 key
// before handing it to a FileStore
type EncryptedFileStore struct {
	files      *FileStore
	passphrase string
}

// envelope is the on-disk form of one encrypted value
type envelope struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// NewEncryptedFileStore creates an encrypted store in dir. When passphrase
// is empty a random one is generated once and kept next to the data.
func NewEncryptedFileStore(dir, passphrase string) (*EncryptedFileStore, error) {
	files, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}

	if passphrase == "" {
		passphrase, err = loadOrCreatePassphrase(files.Dir())
		if err != nil {
			return nil, fmt.Errorf("failed to get passphrase: %w", err)
		}
	}

	es := &EncryptedFileStore{files: files, passphrase: passphrase}
	if err := es.verifyPassphrase(); err != nil {
		return nil, err
	}
	return es, nil
}

// verifyPassphrase opens every sealed value already in the directory. A
// store that cannot read them would overwrite them on its first Set.
func (e *EncryptedFileStore) verifyPassphrase() error {
	paths, err := filepath.Glob(filepath.Join(e.files.Dir(), "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list encrypted files: %w", err)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read encrypted file: %w", err)
		}
		var env envelope
		if json.Unmarshal(data, &env) != nil || env.Salt == "" || env.Encrypted == "" {
			continue
		}
		if _, err := e.open(env); err != nil {
			return fmt.Errorf("passphrase does not match %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func (e *EncryptedFileStore) Get(key string) (string, bool, error) {
	raw, found, err := e.files.Get(key)
	if err != nil || !found {
		return "", found, err
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", false, fmt.Errorf("failed to parse encrypted file: %w", err)
	}

	plaintext, err := e.open(env)
	if err != nil {
		return "", false, err
	}
	return string(plaintext), true, nil
}

// open decrypts one envelope with the store's passphrase
func (e *EncryptedFileStore) open(env envelope) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	plaintext, err := decrypt(sealed, deriveKey(e.passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

func (e *EncryptedFileStore) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	sealed, err := encrypt([]byte(value), deriveKey(e.passphrase, salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}

	content, err := json.MarshalIndent(envelope{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
		Version:   1,
		Modified:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal encrypted data: %w", err)
	}

	return e.files.Set(key, string(content))
}

func (e *EncryptedFileStore) Delete(key string) error {
	return e.files.Delete(key)
}

func (e *EncryptedFileStore) Close() error { return nil }

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
}

// loadOrCreatePassphrase reads dir/.passphrase, generating it on first use
func loadOrCreatePassphrase(dir string) (string, error) {
	path := filepath.Join(dir, ".passphrase")

	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)

	if err := os.WriteFile(path, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}

	return passphrase, nil
}

// encrypt encrypts data using AES-GCM, prefixing the nonce
func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt reverses encrypt
func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
