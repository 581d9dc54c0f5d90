// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	dataKeySize = 32 // AES-256
	ivSize      = 12
	tagSize     = 16

	// MinMasterKeySize is the shortest master secret New accepts.
	MinMasterKeySize = 32

	wrapInfo = "campus-vote/ballot-key-wrap/v1"
)

var wrapAAD = []byte("campus-vote/data-key")

var (
	// ErrIntegrity is returned whenever authentication fails or an envelope
	// field is malformed. Callers must treat the record as tampered.
	ErrIntegrity = errors.New("ballot integrity check failed")

	ErrShortMasterKey = fmt.Errorf("master key must be at least %d bytes", MinMasterKeySize)
)

// Envelope is one encrypted record as stored in the database.
// Key holds the per-record data key wrapped under the master key.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"auth_tag"`
	Key        string `json:"key"`
}

// Sealer encrypts ballot payloads. It is safe for concurrent use.
type Sealer struct {
	wrap cipher.AEAD
}

// New derives the key-wrapping key from masterKey with HKDF-SHA256.
func New(masterKey []byte) (*Sealer, error) {
	if len(masterKey) < MinMasterKeySize {
		return nil, ErrShortMasterKey
	}

	wrapKey := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, masterKey, nil, []byte(wrapInfo))
	if _, err := io.ReadFull(kdf, wrapKey); err != nil {
		return nil, fmt.Errorf("derive wrap key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(wrapKey)
	if err != nil {
		return nil, fmt.Errorf("init wrap cipher: %w", err)
	}
	return &Sealer{wrap: aead}, nil
}

// Seal serializes v and encrypts it under a fresh data key and IV.
func (s *Sealer) Seal(v any) (Envelope, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}

	dataKey := make([]byte, dataKeySize)
	if _, err := rand.Read(dataKey); err != nil {
		return Envelope{}, fmt.Errorf("generate data key: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, fmt.Errorf("generate iv: %w", err)
	}

	gcm, err := newGCM(dataKey)
	if err != nil {
		return Envelope{}, err
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	wrapped, err := s.wrapKey(dataKey)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(tag),
		Key:        base64.StdEncoding.EncodeToString(wrapped),
	}, nil
}

// Open verifies env and decodes the plaintext into out. Plaintext is never
// released when verification fails.
func (s *Sealer) Open(env Envelope, out any) error {
	ciphertext, err1 := base64.StdEncoding.DecodeString(env.Ciphertext)
	iv, err2 := base64.StdEncoding.DecodeString(env.IV)
	tag, err3 := base64.StdEncoding.DecodeString(env.AuthTag)
	wrapped, err4 := base64.StdEncoding.DecodeString(env.Key)
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return fmt.Errorf("%w: malformed envelope: %v", ErrIntegrity, err)
	}
	if len(iv) != ivSize || len(tag) != tagSize {
		return fmt.Errorf("%w: malformed envelope", ErrIntegrity)
	}

	dataKey, err := s.unwrapKey(wrapped)
	if err != nil {
		return err
	}

	gcm, err := newGCM(dataKey)
	if err != nil {
		return err
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return fmt.Errorf("%w: payload authentication failed", ErrIntegrity)
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func (s *Sealer) wrapKey(dataKey []byte) ([]byte, error) {
	nonce := make([]byte, s.wrap.NonceSize(), s.wrap.NonceSize()+len(dataKey)+s.wrap.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate wrap nonce: %w", err)
	}
	return s.wrap.Seal(nonce, nonce, dataKey, wrapAAD), nil
}

func (s *Sealer) unwrapKey(wrapped []byte) ([]byte, error) {
	n := s.wrap.NonceSize()
	if len(wrapped) < n+s.wrap.Overhead() {
		return nil, fmt.Errorf("%w: malformed key", ErrIntegrity)
	}
	dataKey, err := s.wrap.Open(nil, wrapped[:n], wrapped[n:], wrapAAD)
	if err != nil {
		return nil, fmt.Errorf("%w: key authentication failed", ErrIntegrity)
	}
	if len(dataKey) != dataKeySize {
		return nil, fmt.Errorf("%w: malformed key", ErrIntegrity)
	}
	return dataKey, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}
