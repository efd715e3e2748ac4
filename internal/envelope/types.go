package envelope

import (
	"encoding/json"
	"fmt"
)

// EncryptedData represents encrypted data along with metadata about the encryption type.
type EncryptedData struct {
	// Data contains the encrypted payload
	Data []byte `json:"data"`
	// Type indicates the encryption format (e.g., "RSA-OAEP-256" or "JWE-RSA")
	Type string `json:"type"`
}

// Marshal encodes the EncryptedData as JSON. Data is base64 encoded by encoding/json.
func (ed *EncryptedData) Marshal() ([]byte, error) {
	return json.Marshal(ed)
}

// Unmarshal decodes EncryptedData from JSON produced by Marshal.
func Unmarshal(data []byte) (*EncryptedData, error) {
	var ed EncryptedData
	if err := json.Unmarshal(data, &ed); err != nil {
		return nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	if ed.Type == "" {
		return nil, fmt.Errorf("encrypted data is missing a type")
	}

	if len(ed.Data) == 0 {
		return nil, fmt.Errorf("encrypted data is missing a payload")
	}

	return &ed, nil
}

// Encryptor performs encryption on arbitrary data for a single recipient.
type Encryptor interface {
	// Encrypt encrypts data, returning an EncryptedData struct
	// containing the encrypted payload and encryption type metadata.
	Encrypt(data []byte) (*EncryptedData, error)
}

// Decryptor reverses an Encryptor using the recipient's private key.
type Decryptor interface {
	// Decrypt returns the plaintext of encrypted. It fails if encrypted was produced by a
	// different scheme or for a different key.
	Decrypt(encrypted *EncryptedData) ([]byte, error)
}
