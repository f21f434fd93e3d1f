package crypto

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

	"golang.org/x/crypto/scrypt"
)

const (
	ivSize  = 16
	tagSize = 16
	keySize = 32
)

// scrypt parameters for deriving the data key from the operator secret.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// kdfSalt is fixed so the same operator secret always derives the same key.
var kdfSalt = []byte("settings-encryption-salt")

// ErrMalformedToken is returned when an encrypted token does not have the
// expected iv:authTag:ciphertext shape.
var ErrMalformedToken = errors.New("crypto: malformed encrypted token")

// ErrDecryptFailed is returned when authentication of a token fails. A token
// that fails the tamper check never yields partial plaintext.
var ErrDecryptFailed = errors.New("crypto: decryption failed")

// Encryptor encrypts and decrypts sensitive settings fields with AES-GCM.
// The 32-byte key is derived once at construction from the operator secret.
type Encryptor struct {
	aead cipher.AEAD
}

// New derives the encryption key from secret and builds the cipher. An empty
// secret is a configuration error and the service must not start without one.
func New(secret string) (*Encryptor, error) {
	if secret == "" {
		return nil, errors.New("crypto: encryption secret is not configured")
	}

	key, err := scrypt.Key([]byte(secret), kdfSalt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("crypto: key derivation failed: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, err
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt encrypts plaintext and returns a token of the form
// iv_hex:authTag_hex:ciphertext_hex. A fresh random IV is generated per call,
// so encrypting the same plaintext twice yields different tokens.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	sealed := e.aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. It fails with ErrMalformedToken when the token
// does not split into three hex parts and with ErrDecryptFailed when the
// authentication tag does not verify.
func (e *Encryptor) Decrypt(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return "", ErrMalformedToken
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", ErrMalformedToken
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", ErrMalformedToken
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedToken
	}

	sealed := append(ciphertext, tag...)
	plaintext, err := e.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

// Hash returns the SHA-256 digest of text as 64 hex characters. One-way;
// intended for comparison-only use cases.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CompareHash reports whether text hashes to digest.
func CompareHash(text, digest string) bool {
	return hmac.Equal([]byte(Hash(text)), []byte(digest))
}

// GenerateToken returns byteLength random bytes hex-encoded, for API keys and
// webhook signing secrets.
func GenerateToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = 32
	}
	buf := make([]byte, byteLength)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
