package rsa

import (
	"crypto/rsa"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwe"

	"github.com/jetstack/securechat/internal/envelope"
)

const (
	// EncryptionType is the type identifier for RSA JWE encryption
	EncryptionType = "JWE-RSA"
)

// Compile-time check that Encryptor and Decryptor implement the envelope interfaces
var (
	_ envelope.Encryptor = (*Encryptor)(nil)
	_ envelope.Decryptor = (*Decryptor)(nil)
)

// Encryptor provides envelope encryption using RSA-OAEP-256 for key wrapping
// and AES-256-GCM for data encryption, outputting JWE Compact Serialization format.
type Encryptor struct {
	keyID     string
	publicKey *rsa.PublicKey
}

// NewEncryptor creates a new Encryptor with the provided RSA public key.
// The RSA key must be at least minRSAKeySize bits.
// The encryptor will use RSA-OAEP-256 for key encryption and A256GCM for content encryption.
// keyID is written to the "kid" header; we use the recipient's name.
func NewEncryptor(keyID string, publicKey *rsa.PublicKey) (*Encryptor, error) {
	if err := checkPublicKey(publicKey); err != nil {
		return nil, err
	}

	if len(keyID) == 0 {
		return nil, fmt.Errorf("keyID cannot be empty")
	}

	return &Encryptor{
		keyID:     keyID,
		publicKey: publicKey,
	}, nil
}

// Encrypt performs envelope encryption on the provided data.
// It returns an EncryptedData struct containing JWE Compact Serialization format and type metadata.
func (e *Encryptor) Encrypt(data []byte) (*envelope.EncryptedData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data to encrypt cannot be empty")
	}

	headers := jwe.NewHeaders()
	if err := headers.Set("kid", e.keyID); err != nil {
		return nil, fmt.Errorf("failed to set key ID header: %w", err)
	}

	encrypted, err := jwe.Encrypt(
		data,
		jwe.WithKey(jwa.RSA_OAEP_256(), e.publicKey, jwe.WithPerRecipientHeaders(headers)),
		jwe.WithContentEncryption(jwa.A256GCM()),
		jwe.WithCompact(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt data: %w", err)
	}

	return &envelope.EncryptedData{
		Data: encrypted,
		Type: EncryptionType,
	}, nil
}

// Decryptor opens JWE messages produced by Encryptor.
type Decryptor struct {
	keyID      string
	privateKey *rsa.PrivateKey
}

// NewDecryptor creates a new Decryptor with the provided RSA private key. If keyID is not empty,
// messages whose "kid" header names a different key are rejected before any decryption is tried.
func NewDecryptor(keyID string, privateKey *rsa.PrivateKey) (*Decryptor, error) {
	if err := checkPrivateKey(privateKey); err != nil {
		return nil, err
	}

	return &Decryptor{
		keyID:      keyID,
		privateKey: privateKey,
	}, nil
}

// Decrypt parses and decrypts a JWE compact message.
func (d *Decryptor) Decrypt(encrypted *envelope.EncryptedData) ([]byte, error) {
	if encrypted == nil {
		return nil, fmt.Errorf("encrypted data cannot be nil")
	}

	if encrypted.Type != EncryptionType {
		return nil, fmt.Errorf("%w: got %q, expected %q", ErrWrongType, encrypted.Type, EncryptionType)
	}

	msg, err := jwe.Parse(encrypted.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWE: %w", err)
	}

	if d.keyID != "" {
		kid, ok := msg.ProtectedHeaders().KeyID()
		if ok && kid != d.keyID {
			return nil, fmt.Errorf("%w: message is for key %q, not %q", ErrDecryption, kid, d.keyID)
		}
	}

	plaintext, err := jwe.Decrypt(encrypted.Data, jwe.WithKey(jwa.RSA_OAEP_256(), d.privateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	return plaintext, nil
}
