package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	keySize   = 32
	nonceSize = 12
)

var (
	ErrInvalidCiphertext    = errors.New("invalid ciphertext")
	ErrAuthenticationFailed = errors.New("ciphertext authentication failed")
)

type Service interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// DeriveKey normalises password to exactly 32 bytes by right-padding with
// spaces and truncating. It is deterministic and is not a KDF.
func DeriveKey(password string) []byte {
	key := []byte(password)
	if len(key) < keySize {
		key = append(key, strings.Repeat(" ", keySize-len(key))...)
	}
	return key[:keySize]
}

func Encrypt(plaintext, password string) (string, error) {
	gcm, err := newGCM(DeriveKey(password))
	if err != nil {
		return "", err
	}
	return seal(gcm, plaintext)
}

func Decrypt(ciphertext, password string) (string, error) {
	gcm, err := newGCM(DeriveKey(password))
	if err != nil {
		return "", err
	}
	return open(gcm, ciphertext)
}

// Codec binds a password so callers can depend on Service.
type Codec struct {
	gcm cipher.AEAD
}

func NewCodec(password string) (*Codec, error) {
	gcm, err := newGCM(DeriveKey(password))
	if err != nil {
		return nil, err
	}
	return &Codec{gcm: gcm}, nil
}

func (c *Codec) Encrypt(plaintext string) (string, error) {
	return seal(c.gcm, plaintext)
}

func (c *Codec) Decrypt(ciphertext string) (string, error) {
	return open(c.gcm, ciphertext)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func seal(gcm cipher.AEAD, plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the encrypted data to nonce, returning nonce || ciphertext || tag
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func open(gcm cipher.AEAD, ciphertext string) (string, error) {
	buffer, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	if len(buffer) < nonceSize {
		return "", fmt.Errorf("%w: %d bytes is shorter than the nonce", ErrInvalidCiphertext, len(buffer))
	}

	nonce, cipherBytes := buffer[:nonceSize], buffer[nonceSize:]
	plainBytes, err := gcm.Open(nil, nonce, cipherBytes, nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}

	return string(plainBytes), nil
}
