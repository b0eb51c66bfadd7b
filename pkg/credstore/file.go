package credstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"gopkg.in/yaml.v3"
)

// File stores the pair as a YAML document readable only by the owner. With a
// passphrase the document is sealed with cryptox.Seal.
type File struct {
	path       string
	passphrase string

	mu sync.Mutex
}

// NewFile returns a File store at path. The file is created lazily.
func NewFile(path, passphrase string) *File {
	return &File{path: filepath.Clean(path), passphrase: passphrase}
}

func (f *File) Path() string { return f.path }

func (f *File) Load(context.Context) (TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return TokenPair{}, ErrNotFound
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	if cryptox.IsSealed(data) {
		if f.passphrase == "" {
			return TokenPair{}, errors.New("credentials are sealed; a passphrase is required")
		}
		if data, err = cryptox.Open(f.passphrase, data); err != nil {
			return TokenPair{}, fmt.Errorf("failed to unseal credentials: %w", err)
		}
	}

	var pair TokenPair
	if err := yaml.Unmarshal(data, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if pair.IsZero() {
		return TokenPair{}, ErrNotFound
	}
	return pair, nil
}

func (f *File) Save(_ context.Context, pair TokenPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if f.passphrase != "" {
		if data, err = cryptox.Seal(f.passphrase, data); err != nil {
			return fmt.Errorf("failed to seal credentials: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials dir: %w", err)
	}

	// Replace atomically.
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

func (f *File) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
