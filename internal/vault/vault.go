// Package vault encrypts sensitive fields (real names, wallet addresses,
// transaction hashes) before they reach the database.
//
// Ciphertexts use the "iv:ciphertext:tag" hex layout.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	nonceSize = 16
	tagSize   = 16
)

var ErrMalformed = errors.New("malformed ciphertext")

type Vault struct {
	aead      cipher.AEAD
	lookupKey []byte
}

// New derives independent encryption and lookup keys from secret.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault: empty secret")
	}

	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("xcro/vault/v1"))
	encKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, encKey); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	lookupKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, lookupKey); err != nil {
		return nil, fmt.Errorf("vault: derive lookup key: %w", err)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead, lookupKey: lookupKey}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(body) + ":" + hex.EncodeToString(tag), nil
}

func (v *Vault) Decrypt(encoded string) (string, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return "", ErrMalformed
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrMalformed
	}
	body, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformed
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != tagSize {
		return "", ErrMalformed
	}

	plain, err := v.aead.Open(nil, nonce, append(body, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("vault: open: %w", err)
	}
	return string(plain), nil
}

// EncryptPtr encrypts an optional value, keeping nil as nil.
func (v *Vault) EncryptPtr(s *string) (*string, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	enc, err := v.Encrypt(*s)
	if err != nil {
		return nil, err
	}
	return &enc, nil
}

// SafeDecrypt returns nil instead of an error for unreadable values.
func (v *Vault) SafeDecrypt(s *string) *string {
	if s == nil {
		return nil
	}
	plain, err := v.Decrypt(*s)
	if err != nil {
		return nil
	}
	return &plain
}

// Lookup returns a deterministic keyed digest usable as an index for secrets
// that must be found by value, such as buyer invite passwords.
func (v *Vault) Lookup(s string) string {
	mac := hmac.New(sha256.New, v.lookupKey)
	mac.Write([]byte(s))
	return hex.EncodeToString(mac.Sum(nil))
}
