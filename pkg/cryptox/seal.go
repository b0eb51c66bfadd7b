package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Sealed payload layout: [magic 4][salt 16][nonce 12][ciphertext+tag].
var sealMagic = []byte("sbx1")

const (
	sealSaltLen = 16
	sealKeyLen  = 32
)

var (
	// ErrNotSealed is returned by Open when the input lacks the sealed header.
	ErrNotSealed = errors.New("cryptox: data is not sealed")

	// ErrWrongPassphrase is returned when authentication of the payload fails.
	ErrWrongPassphrase = errors.New("cryptox: wrong passphrase or corrupted data")
)

// IsSealed reports whether data starts with the sealed header.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, sealMagic)
}

// Seal encrypts plaintext with AES-256-GCM under a key derived from
// passphrase with Argon2id and a fresh random salt.
func Seal(passphrase string, plaintext []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("cryptox: empty passphrase")
	}

	salt := make([]byte, sealSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealMagic)+sealSaltLen+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, sealMagic), nil
}

// Open reverses Seal.
func Open(passphrase string, sealed []byte) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	rest := sealed[len(sealMagic):]
	if len(rest) < sealSaltLen {
		return nil, ErrWrongPassphrase
	}
	salt, rest := rest[:sealSaltLen], rest[sealSaltLen:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, sealMagic)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(passphrase), salt, iterations, memory, parallelism, sealKeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
