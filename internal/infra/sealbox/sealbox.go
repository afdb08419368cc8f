// Package sealbox encrypts small secrets at rest (profile passwords,
// cached session credentials) with a per-user key file.
//
// Sealed values are printable strings of the form
//
//	sealed:v1:<algorithm>:<base64url(nonce || ciphertext)>
//
// so they can sit inside YAML or JSON documents. AES-256-GCM is preferred
// on platforms with AES instructions, XChaCha20-Poly1305 elsewhere; Open
// accepts either regardless of the preference.
package sealbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of a sealbox key.
const KeySize = 32

const prefix = "sealed:v1:"

// Algorithm names an AEAD construction.
type Algorithm string

const (
	AESGCM            Algorithm = "aes256gcm"
	XChaCha20Poly1305 Algorithm = "xchacha20poly1305"
)

var (
	// ErrNotSealed is returned by Open for values without the sealed prefix.
	ErrNotSealed = errors.New("sealbox: value is not sealed")
	// ErrMalformed is returned for sealed values that cannot be decoded.
	ErrMalformed = errors.New("sealbox: malformed sealed value")
	// ErrKeySize is returned for keys that are not KeySize bytes.
	ErrKeySize = errors.New("sealbox: key must be 32 bytes")
)

// Box seals and opens values with one key.
type Box struct {
	key       []byte
	preferred Algorithm
}

// New returns a Box for key using the platform's preferred algorithm.
func New(key []byte) (*Box, error) {
	return NewWithAlgorithm(key, preferredAlgorithm())
}

// NewWithAlgorithm returns a Box sealing with alg.
func NewWithAlgorithm(key []byte, alg Algorithm) (*Box, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	if _, err := newAEAD(key, alg); err != nil {
		return nil, err
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Box{key: k, preferred: alg}, nil
}

// Algorithm returns the algorithm used by Seal.
func (b *Box) Algorithm() Algorithm {
	return b.preferred
}

// Seal encrypts plaintext. aad binds the value to its context, e.g. the
// profile name, and must be passed again to Open.
func (b *Box) Seal(plaintext, aad []byte) (string, error) {
	aead, err := newAEAD(b.key, b.preferred)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("sealbox: nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, plaintext, aad)
	return prefix + string(b.preferred) + ":" + base64.RawURLEncoding.EncodeToString(out), nil
}

// SealString is Seal for string values.
func (b *Box) SealString(plaintext, aad string) (string, error) {
	return b.Seal([]byte(plaintext), []byte(aad))
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(sealed string, aad []byte) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	alg, data, ok := strings.Cut(strings.TrimPrefix(sealed, prefix), ":")
	if !ok {
		return nil, ErrMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	aead, err := newAEAD(b.key, Algorithm(alg))
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformed
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], aad)
	if err != nil {
		return nil, fmt.Errorf("sealbox: open: %w", err)
	}
	return plain, nil
}

// OpenString is Open for string values.
func (b *Box) OpenString(sealed, aad string) (string, error) {
	plain, err := b.Open(sealed, []byte(aad))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// IsSealed reports whether s looks like a sealed value.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, prefix)
}

func newAEAD(key []byte, alg Algorithm) (cipher.AEAD, error) {
	switch alg {
	case AESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case XChaCha20Poly1305:
		return chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("sealbox: unknown algorithm %q", alg)
	}
}

// preferredAlgorithm picks AES-GCM where Go uses hardware AES.
func preferredAlgorithm() Algorithm {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return AESGCM
	default:
		return XChaCha20Poly1305
	}
}

// GenerateKey returns a random key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("sealbox: generate key: %w", err)
	}
	return key, nil
}

// LoadOrCreateKey reads a hex key file, creating it with a fresh key and
// mode 0600 when it does not exist.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, derr := hex.DecodeString(strings.TrimSpace(string(data)))
		if derr != nil || len(key) != KeySize {
			return nil, fmt.Errorf("sealbox: invalid key file %s", path)
		}
		return key, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("sealbox: read key file: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sealbox: create key dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another process created it first.
			return LoadOrCreateKey(path)
		}
		return nil, fmt.Errorf("sealbox: create key file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		return nil, fmt.Errorf("sealbox: write key file: %w", err)
	}
	return key, nil
}

// OpenKeyFile loads or creates the key at keyPath and returns a Box for it.
func OpenKeyFile(keyPath string) (*Box, error) {
	key, err := LoadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}
	return New(key)
}
