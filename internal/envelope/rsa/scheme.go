package rsa

import (
	"crypto/rsa"
	"fmt"

	"github.com/jetstack/securechat/internal/envelope"
)

const (
	// SchemeOAEP selects raw RSA-OAEP-SHA256 (OAEPEncryptor).
	SchemeOAEP = "oaep"
	// SchemeJWE selects JWE with RSA-OAEP-256 and A256GCM (Encryptor).
	SchemeJWE = "jwe"
)

// Schemes lists the supported scheme names.
func Schemes() []string {
	return []string{SchemeOAEP, SchemeJWE}
}

// NewSchemeEncryptor returns an encryptor for the named scheme. keyID is only used by SchemeJWE.
func NewSchemeEncryptor(scheme, keyID string, publicKey *rsa.PublicKey) (envelope.Encryptor, error) {
	var (
		enc envelope.Encryptor
		err error
	)

	switch scheme {
	case SchemeOAEP:
		enc, err = NewOAEPEncryptor(publicKey)
	case SchemeJWE:
		enc, err = NewEncryptor(keyID, publicKey)
	default:
		return nil, fmt.Errorf("unknown scheme %q (expected one of %v)", scheme, Schemes())
	}

	if err != nil {
		return nil, err
	}

	return enc, nil
}

// DecryptorFor returns a decryptor able to open data with the given encryption type, as recorded
// in envelope.EncryptedData.Type.
func DecryptorFor(encryptionType, keyID string, privateKey *rsa.PrivateKey) (envelope.Decryptor, error) {
	var (
		dec envelope.Decryptor
		err error
	)

	switch encryptionType {
	case OAEPEncryptionType:
		dec, err = NewOAEPDecryptor(privateKey)
	case EncryptionType:
		dec, err = NewDecryptor(keyID, privateKey)
	default:
		return nil, fmt.Errorf("%w: %q", ErrWrongType, encryptionType)
	}

	if err != nil {
		return nil, err
	}

	return dec, nil
}
