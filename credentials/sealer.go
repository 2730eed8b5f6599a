package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the length of the random salt used for key derivation.
const SaltSize = 16

// ErrSealedDataInvalid is returned when a sealed blob cannot be opened, either
// because it was tampered with or because the passphrase is wrong.
var ErrSealedDataInvalid = errors.New("sealed credential data is invalid")

// KDFParams tunes the Argon2id derivation of the encryption key.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDF follows the RFC 9106 second recommended option.
var DefaultKDF = KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4}

// Sealer encrypts blobs with XChaCha20-Poly1305. The output format is
// [24-byte nonce][ciphertext + 16-byte tag]; the storage key is bound to the
// blob as additional data so a blob copied under another key fails to open.
type Sealer struct {
	aead cipher.AEAD
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// NewSealer derives a 256-bit key from passphrase and salt.
func NewSealer(passphrase, salt []byte, params KDFParams) (*Sealer, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("[NewSealer] passphrase is required")
	}
	if len(salt) < SaltSize {
		return nil, fmt.Errorf("[NewSealer] salt must be at least %d bytes", SaltSize)
	}
	key := argon2.IDKey(passphrase, salt, params.Time, params.Memory, params.Threads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext stored under key.
func (s *Sealer) Seal(key string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(key)), nil
}

// Open decrypts a blob produced by Seal for the same key.
func (s *Sealer) Open(key string, sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, ErrSealedDataInvalid
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, ErrSealedDataInvalid
	}
	return plaintext, nil
}
