package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/zalando/go-keyring"
)

const serviceName = "shootplan"

// lockTimeout bounds how long file operations wait for the credentials lock.
const lockTimeout = 250 * time.Millisecond

// ErrNoCredentials is returned when nothing is stored for an origin.
var ErrNoCredentials = errors.New("credentials not found")

// Credentials holds a bearer token and what we know about it.
type Credentials struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt int64     `json:"expires_at,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// Store handles credential storage, preferring the system keychain and
// falling back to a lock-protected credentials.json.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

// NewStore creates a credential store.
func NewStore(fallbackDir string) *Store {
	if os.Getenv("SHOOTPLAN_NO_KEYRING") != "" {
		return &Store{useKeyring: false, fallbackDir: fallbackDir}
	}

	testKey := serviceName + "::probe"
	if err := keyring.Set(serviceName, testKey, "probe"); err == nil {
		_ = keyring.Delete(serviceName, testKey)
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	slog.Warn("system keyring unavailable, credentials stored in plaintext",
		"path", filepath.Join(fallbackDir, "credentials.json"))
	return &Store{useKeyring: false, fallbackDir: fallbackDir}
}

// NewFileStore creates a store that never touches the keyring.
func NewFileStore(dir string) *Store {
	return &Store{fallbackDir: dir}
}

func key(origin string) string {
	return fmt.Sprintf("%s::%s", serviceName, origin)
}

// Load retrieves credentials for the given origin.
func (s *Store) Load(origin string) (*Credentials, error) {
	if s.useKeyring {
		return s.loadFromKeyring(origin)
	}
	return s.loadFromFile(origin)
}

// Save stores credentials for the given origin.
func (s *Store) Save(origin string, creds *Credentials) error {
	if s.useKeyring {
		return s.saveToKeyring(origin, creds)
	}
	return s.saveToFile(origin, creds)
}

// Delete removes credentials for the given origin. Deleting credentials
// that do not exist is not an error.
func (s *Store) Delete(origin string) error {
	if s.useKeyring {
		err := keyring.Delete(serviceName, key(origin))
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.deleteFile(origin)
}

// UsingKeyring returns true if the store is using the system keyring.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}

func (s *Store) loadFromKeyring(origin string) (*Credentials, error) {
	data, err := keyring.Get(serviceName, key(origin))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("reading keyring: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	return &creds, nil
}

func (s *Store) saveToKeyring(origin string, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, key(origin), string(data))
}

func (s *Store) credentialsPath() string {
	return filepath.Join(s.fallbackDir, "credentials.json")
}

// withLock runs fn while holding an exclusive lock on the credentials file.
// If the lock cannot be taken in time, fn runs unlocked so the CLI never hangs
// on a stale lock left by a crashed process.
func (s *Store) withLock(fn func() error) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}
	fl := flock.New(filepath.Join(s.fallbackDir, "credentials.lock"))

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("locking credentials: %w", err)
	}
	if locked {
		defer func() { _ = fl.Unlock() }()
	}
	return fn()
}

func (s *Store) loadAllFromFile() (map[string]*Credentials, error) {
	data, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Credentials), nil
		}
		return nil, err
	}

	var all map[string]*Credentials
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("invalid credentials file: %w", err)
	}
	if all == nil {
		all = make(map[string]*Credentials)
	}
	return all, nil
}

func (s *Store) saveAllToFile(all map[string]*Credentials) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.fallbackDir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	destPath := s.credentialsPath()
	if err := os.Rename(tmpPath, destPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *Store) loadFromFile(origin string) (*Credentials, error) {
	var creds *Credentials
	err := s.withLock(func() error {
		all, err := s.loadAllFromFile()
		if err != nil {
			return err
		}
		c, ok := all[origin]
		if !ok {
			return ErrNoCredentials
		}
		creds = c
		return nil
	})
	return creds, err
}

func (s *Store) saveToFile(origin string, creds *Credentials) error {
	return s.withLock(func() error {
		all, err := s.loadAllFromFile()
		if err != nil {
			return err
		}
		all[origin] = creds
		return s.saveAllToFile(all)
	})
}

func (s *Store) deleteFile(origin string) error {
	return s.withLock(func() error {
		all, err := s.loadAllFromFile()
		if err != nil {
			return err
		}
		if _, ok := all[origin]; !ok {
			return nil
		}
		delete(all, origin)
		return s.saveAllToFile(all)
	})
}
