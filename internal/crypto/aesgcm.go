// Package crypto provides the production domain.CryptoAlgebra used to
// protect TSIG keys and other secrets at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/riverstone-dns/zonectl/internal/core/domain"
)

// AESGCMAlgebra is a domain.CryptoAlgebra backed by AES-256-GCM. The
// encryption key is derived by hashing the configured key material
// down to 32 bytes, so callers can supply any length of hex-decoded
// key without worrying about AES's fixed key sizes.
type AESGCMAlgebra struct {
	key [32]byte
}

// NewAESGCMAlgebra builds an algebra from hex-encoded key material.
func NewAESGCMAlgebra(keyHex string) (*AESGCMAlgebra, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding crypto key: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("crypto key must not be empty")
	}
	return &AESGCMAlgebra{key: sha256.Sum256(raw)}, nil
}

// Encrypt returns a hex-encoded nonce||ciphertext||tag for plaintext.
func (a *AESGCMAlgebra) Encrypt(plaintext string) (string, error) {
	gcm, err := a.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. A ciphertext too short to hold a nonce, or
// one that fails authentication, is reported as an error — never
// silently returned as garbage plaintext.
func (a *AESGCMAlgebra) Decrypt(ciphertext string) (string, error) {
	gcm, err := a.gcm()
	if err != nil {
		return "", err
	}
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plaintext), nil
}

func (a *AESGCMAlgebra) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(a.key[:])
	if err != nil {
		return nil, fmt.Errorf("constructing cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

var _ domain.CryptoAlgebra = (*AESGCMAlgebra)(nil)
