// Package keystore persists each party's RSA key pair as a pair of PEM files in a directory:
// <name>_private.pem (PKCS#8, unencrypted) and <name>_public.pem (SubjectPublicKeyInfo).
package keystore

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pmylund/go-cache"
	"k8s.io/klog/v2"

	"github.com/jetstack/securechat/internal/keys"
	"github.com/jetstack/securechat/pkg/logs"
)

const (
	privateKeySuffix = "_private.pem"
	publicKeySuffix  = "_public.pem"

	privateKeyFileMode fs.FileMode = 0600
	publicKeyFileMode  fs.FileMode = 0644
	dirMode            fs.FileMode = 0700

	// parsed keys are only worth keeping for the duration of a run
	cacheExpiration = 5 * time.Minute
	cachePurge      = 10 * time.Minute
)

var (
	// ErrInvalidName is returned for party names which can't be used as part of a file name.
	ErrInvalidName = errors.New("invalid key name")

	// ErrKeyNotFound is returned when a key file doesn't exist.
	ErrKeyNotFound = errors.New("key not found")
)

// KeyFileError records a failure to read, write or parse a key file.
type KeyFileError struct {
	Name string
	Path string
	Err  error
}

func (e *KeyFileError) Error() string {
	return fmt.Sprintf("key %q (%s): %s", e.Name, e.Path, e.Err)
}

func (e *KeyFileError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrKeyNotFound) true for missing key files.
func (e *KeyFileError) Is(target error) bool {
	return target == ErrKeyNotFound && errors.Is(e.Err, fs.ErrNotExist)
}

// Store reads and writes key files in a single directory.
type Store struct {
	dir   string
	cache *cache.Cache
}

// New creates a Store rooted at dir. The directory is created when the first key is written.
func New(dir string) *Store {
	if dir == "" {
		dir = "."
	}

	return &Store{
		dir:   dir,
		cache: cache.New(cacheExpiration, cachePurge),
	}
}

// Dir returns the directory holding the key files.
func (s *Store) Dir() string {
	return s.dir
}

// PrivateKeyPath returns the path of the private key file for name.
func (s *Store) PrivateKeyPath(name string) string {
	return filepath.Join(s.dir, name+privateKeySuffix)
}

// PublicKeyPath returns the path of the public key file for name.
func (s *Store) PublicKeyPath(name string) string {
	return filepath.Join(s.dir, name+publicKeySuffix)
}

// Generate creates a new key pair of the given size for name and writes both halves to disk,
// replacing any existing key files for that name.
func (s *Store) Generate(ctx context.Context, name string, bits int) (*rsa.PrivateKey, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	key, err := keys.GenerateKeyPair(bits)
	if err != nil {
		return nil, err
	}

	if err := s.Save(ctx, name, key); err != nil {
		return nil, err
	}

	klog.FromContext(ctx).WithName("keystore").Info("generated key pair", "name", name, "bits", key.N.BitLen())

	return key, nil
}

// Save writes the private key and its public half to the key files for name.
func (s *Store) Save(ctx context.Context, name string, key *rsa.PrivateKey) error {
	log := klog.FromContext(ctx).WithName("keystore")

	if err := validateName(name); err != nil {
		return err
	}

	privPEM, err := keys.EncodePrivateKeyPEM(key)
	if err != nil {
		return &KeyFileError{Name: name, Path: s.PrivateKeyPath(name), Err: err}
	}

	pubPEM, err := keys.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return &KeyFileError{Name: name, Path: s.PublicKeyPath(name), Err: err}
	}

	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("failed to create key directory %q: %w", s.dir, err)
	}

	if err := s.writeFile(name, s.PrivateKeyPath(name), privPEM, privateKeyFileMode); err != nil {
		return err
	}

	if err := s.writeFile(name, s.PublicKeyPath(name), pubPEM, publicKeyFileMode); err != nil {
		return err
	}

	log.V(logs.Debug).Info("wrote key files", "private", s.PrivateKeyPath(name), "public", s.PublicKeyPath(name))

	return nil
}

// LoadPrivateKey reads the private key for name from disk.
func (s *Store) LoadPrivateKey(ctx context.Context, name string) (*rsa.PrivateKey, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	path := s.PrivateKeyPath(name)
	if cached, ok := s.cache.Get(path); ok {
		klog.FromContext(ctx).WithName("keystore").V(logs.Trace).Info("using cached private key", "path", path)
		return cached.(*rsa.PrivateKey), nil
	}

	key, err := keys.LoadPrivateKeyFromPEMFile(path)
	if err != nil {
		return nil, &KeyFileError{Name: name, Path: path, Err: err}
	}

	s.cache.Set(path, key, cache.DefaultExpiration)

	return key, nil
}

// LoadPublicKey reads the public key for name from disk.
func (s *Store) LoadPublicKey(ctx context.Context, name string) (*rsa.PublicKey, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	path := s.PublicKeyPath(name)
	if cached, ok := s.cache.Get(path); ok {
		klog.FromContext(ctx).WithName("keystore").V(logs.Trace).Info("using cached public key", "path", path)
		return cached.(*rsa.PublicKey), nil
	}

	key, err := keys.LoadPublicKeyFromPEMFile(path)
	if err != nil {
		return nil, &KeyFileError{Name: name, Path: path, Err: err}
	}

	s.cache.Set(path, key, cache.DefaultExpiration)

	return key, nil
}

// Exists reports whether both key files for name are present.
func (s *Store) Exists(name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}

	for _, path := range []string{s.PrivateKeyPath(name), s.PublicKeyPath(name)} {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, &KeyFileError{Name: name, Path: path, Err: err}
		}
	}

	return true, nil
}

func (s *Store) writeFile(name, path string, data []byte, mode fs.FileMode) error {
	s.cache.Delete(path)

	if err := os.WriteFile(path, data, mode); err != nil {
		return &KeyFileError{Name: name, Path: path, Err: fmt.Errorf("failed to write PEM file: %w", err)}
	}

	// WriteFile leaves the mode of an existing file alone
	if err := os.Chmod(path, mode); err != nil {
		return &KeyFileError{Name: name, Path: path, Err: fmt.Errorf("failed to set file mode: %w", err)}
	}

	return nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, os.PathSeparator):
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidName, name)
	}

	return nil
}
