package rsa

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/jetstack/securechat/internal/envelope"
)

const (
	// minRSAKeySize is the minimum RSA key size in bits; we'd expect that keys will be larger but 2048 is a sane floor
	// to enforce to ensure that a weak key can't accidentally be used
	minRSAKeySize = 2048

	// OAEPEncryptionType is the type identifier for raw RSA-OAEP-SHA256 encryption
	OAEPEncryptionType = "RSA-OAEP-256"
)

var (
	// ErrMessageTooLong is returned when a message doesn't fit in a single RSA-OAEP block.
	ErrMessageTooLong = errors.New("message too long for RSA-OAEP")

	// ErrDecryption is returned when a ciphertext can't be decrypted, most commonly because it was
	// encrypted for a different key. No plaintext is returned in this case.
	ErrDecryption = errors.New("decryption failed")

	// ErrWrongType is returned when a decryptor is given data produced by a different scheme.
	ErrWrongType = errors.New("unexpected encryption type")
)

// Compile-time checks that the OAEP types implement the envelope interfaces
var (
	_ envelope.Encryptor = (*OAEPEncryptor)(nil)
	_ envelope.Decryptor = (*OAEPDecryptor)(nil)
)

// OAEPEncryptor encrypts short messages directly with RSA-OAEP-SHA256.
type OAEPEncryptor struct {
	publicKey *rsa.PublicKey
}

// NewOAEPEncryptor creates a new OAEPEncryptor with the provided RSA public key.
// The RSA key must be at least minRSAKeySize bits.
func NewOAEPEncryptor(publicKey *rsa.PublicKey) (*OAEPEncryptor, error) {
	if err := checkPublicKey(publicKey); err != nil {
		return nil, err
	}

	return &OAEPEncryptor{
		publicKey: publicKey,
	}, nil
}

// MaxMessageSize is the largest plaintext, in bytes, which fits in a single block:
// the modulus size less two SHA-256 digests and two bytes of padding.
func (e *OAEPEncryptor) MaxMessageSize() int {
	return e.publicKey.Size() - 2*sha256.Size - 2
}

// Encrypt encrypts data with RSA-OAEP. The returned ciphertext is as long as the key's modulus.
func (e *OAEPEncryptor) Encrypt(data []byte) (*envelope.EncryptedData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data to encrypt cannot be empty")
	}

	if limit := e.MaxMessageSize(); len(data) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d bytes", ErrMessageTooLong, len(data), limit)
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, e.publicKey, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt data with RSA-OAEP: %w", err)
	}

	return &envelope.EncryptedData{
		Data: ciphertext,
		Type: OAEPEncryptionType,
	}, nil
}

// OAEPDecryptor decrypts data produced by OAEPEncryptor.
type OAEPDecryptor struct {
	privateKey *rsa.PrivateKey
}

// NewOAEPDecryptor creates a new OAEPDecryptor with the provided RSA private key.
func NewOAEPDecryptor(privateKey *rsa.PrivateKey) (*OAEPDecryptor, error) {
	if err := checkPrivateKey(privateKey); err != nil {
		return nil, err
	}

	return &OAEPDecryptor{
		privateKey: privateKey,
	}, nil
}

// Decrypt decrypts data with RSA-OAEP. It returns an error wrapping ErrDecryption if the data was
// encrypted for another key or has been modified.
func (d *OAEPDecryptor) Decrypt(encrypted *envelope.EncryptedData) ([]byte, error) {
	if encrypted == nil {
		return nil, fmt.Errorf("encrypted data cannot be nil")
	}

	if encrypted.Type != OAEPEncryptionType {
		return nil, fmt.Errorf("%w: got %q, expected %q", ErrWrongType, encrypted.Type, OAEPEncryptionType)
	}

	if len(encrypted.Data) == 0 {
		return nil, fmt.Errorf("ciphertext cannot be empty")
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, d.privateKey, encrypted.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	return plaintext, nil
}

func checkPublicKey(publicKey *rsa.PublicKey) error {
	if publicKey == nil {
		return fmt.Errorf("RSA public key cannot be nil")
	}

	keySize := publicKey.N.BitLen()
	if keySize < minRSAKeySize {
		return fmt.Errorf("RSA key size must be at least %d bits, got %d bits", minRSAKeySize, keySize)
	}

	return nil
}

func checkPrivateKey(privateKey *rsa.PrivateKey) error {
	if privateKey == nil {
		return fmt.Errorf("RSA private key cannot be nil")
	}

	return checkPublicKey(&privateKey.PublicKey)
}
