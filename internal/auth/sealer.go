// ABOUTME: Passphrase based sealing of stored credentials
// ABOUTME: Argon2id key derivation with XChaCha20-Poly1305 authenticated encryption

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealCorrupt is returned when a sealed payload cannot be opened
var ErrSealCorrupt = errors.New("sealed payload is corrupt or the passphrase is wrong")

const (
	saltSize      = 16
	argonTime     = 1
	argonMemoryKB = 64 * 1024
	argonThreads  = 4
)

// Sealer encrypts and decrypts small payloads with a passphrase. Derived
// keys are cached by salt, and Seal reuses one salt per Sealer, so repeated
// saves pay for a single derivation.
type Sealer struct {
	passphrase []byte

	mu      sync.Mutex
	salt    []byte
	keys    map[string][]byte
	derived int
}

// NewSealer creates a Sealer. An empty passphrase is rejected.
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("sealer passphrase is empty")
	}
	return &Sealer{passphrase: []byte(passphrase), keys: make(map[string][]byte)}, nil
}

func (s *Sealer) key(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[string(salt)]; ok {
		return k
	}
	k := argon2.IDKey(s.passphrase, salt, argonTime, argonMemoryKB, argonThreads, chacha20poly1305.KeySize)
	s.keys[string(salt)] = k
	s.derived++
	return k
}

// sealSalt returns the salt used by Seal, generating it on first use.
func (s *Sealer) sealSalt() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.salt == nil {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generating salt: %w", err)
		}
		s.salt = salt
	}
	return s.salt, nil
}

// adoptSalt makes salt the sealing salt when none has been chosen yet.
func (s *Sealer) adoptSalt(salt []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.salt == nil {
		s.salt = append([]byte(nil), salt...)
	}
}

// Seal encrypts plaintext and returns base64(salt || nonce || ciphertext).
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	salt, err := s.sealSalt()
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealCorrupt, err)
	}
	if len(raw) < saltSize+chacha20poly1305.NonceSizeX {
		return nil, ErrSealCorrupt
	}
	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+chacha20poly1305.NonceSizeX]
	ciphertext := raw[saltSize+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealCorrupt
	}
	s.adoptSalt(salt)
	return plaintext, nil
}
