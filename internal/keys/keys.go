// Package keys generates RSA key pairs and converts them to and from PEM.
//
// Private keys are written as unencrypted PKCS#8 ("PRIVATE KEY") and public keys as
// SubjectPublicKeyInfo ("PUBLIC KEY"). Both loaders also accept the older PKCS#1 encodings
// ("RSA PRIVATE KEY" and "RSA PUBLIC KEY") since other tools commonly produce them.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

const (
	// DefaultKeySize is the size in bits of keys generated when no size is configured.
	DefaultKeySize = 2048

	// MinRSAKeySize is the minimum RSA key size in bits; we'd expect that keys will be larger but 2048 is a sane floor
	// to enforce to ensure that a weak key can't accidentally be used
	MinRSAKeySize = 2048

	privateKeyBlockType      = "PRIVATE KEY"
	rsaPrivateKeyBlockType   = "RSA PRIVATE KEY"
	publicKeyBlockType       = "PUBLIC KEY"
	rsaPublicKeyBlockType    = "RSA PUBLIC KEY"
	encryptedPEMHeaderMarker = "Proc-Type"
)

// GenerateKeyPair generates a new RSA private key of the given size. The public half is
// available as key.PublicKey. The public exponent is always 65537.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits < MinRSAKeySize {
		return nil, fmt.Errorf("RSA key size must be at least %d bits, got %d bits", MinRSAKeySize, bits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	return key, nil
}

// EncodePrivateKeyPEM encodes the private key as an unencrypted PKCS#8 PEM block.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("RSA private key cannot be nil")
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKCS8 private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  privateKeyBlockType,
		Bytes: der,
	}), nil
}

// EncodePublicKeyPEM encodes the public key as a SubjectPublicKeyInfo PEM block.
func EncodePublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("RSA public key cannot be nil")
	}

	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKIX public key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  publicKeyBlockType,
		Bytes: der,
	}), nil
}

// LoadPrivateKeyFromPEM parses an RSA private key from PEM-encoded bytes.
// The PEM block should be of type "PRIVATE KEY" or "RSA PRIVATE KEY".
func LoadPrivateKeyFromPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	// password protected keys are out of scope, and x509.DecryptPEMBlock is deprecated anyway
	if _, ok := block.Headers[encryptedPEMHeaderMarker]; ok {
		return nil, fmt.Errorf("encrypted PEM private keys are not supported")
	}

	var rsaKey *rsa.PrivateKey

	switch block.Type {
	case privateKeyBlockType:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS8 private key: %w", err)
		}

		var ok bool
		rsaKey, ok = key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA private key, got %T", key)
		}

	case rsaPrivateKeyBlockType:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS1 RSA private key: %w", err)
		}

		rsaKey = key

	default:
		return nil, fmt.Errorf("unsupported PEM block type: %s (expected PRIVATE KEY or RSA PRIVATE KEY)", block.Type)
	}

	if err := rsaKey.Validate(); err != nil {
		return nil, fmt.Errorf("invalid RSA private key: %w", err)
	}

	return rsaKey, nil
}

// LoadPublicKeyFromPEM parses an RSA public key from PEM-encoded bytes.
// The PEM block should be of type "PUBLIC KEY" or "RSA PUBLIC KEY".
func LoadPublicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	switch block.Type {
	case publicKeyBlockType:
		pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKIX public key: %w", err)
		}

		rsaKey, ok := pubKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA public key, got %T", pubKey)
		}

		return rsaKey, nil

	case rsaPublicKeyBlockType:
		rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS1 RSA public key: %w", err)
		}

		return rsaKey, nil
	}

	return nil, fmt.Errorf("unsupported PEM block type: %s (expected PUBLIC KEY or RSA PUBLIC KEY)", block.Type)
}

// LoadPrivateKeyFromPEMFile reads and parses an RSA private key from a PEM file.
func LoadPrivateKeyFromPEMFile(path string) (*rsa.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PEM file: %w", err)
	}

	return LoadPrivateKeyFromPEM(pemBytes)
}

// LoadPublicKeyFromPEMFile reads and parses an RSA public key from a PEM file.
func LoadPublicKeyFromPEMFile(path string) (*rsa.PublicKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PEM file: %w", err)
	}

	return LoadPublicKeyFromPEM(pemBytes)
}
