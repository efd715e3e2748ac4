// Package party models a participant in the chat: someone with a name who exclusively owns a
// private key and hands out the matching public key.
package party

import (
	"context"
	"crypto/rsa"
	"fmt"
	"unicode/utf8"

	"k8s.io/klog/v2"

	"github.com/jetstack/securechat/internal/envelope"
	internalrsa "github.com/jetstack/securechat/internal/envelope/rsa"
	"github.com/jetstack/securechat/internal/keystore"
	"github.com/jetstack/securechat/pkg/logs"
)

// Party is a named key holder. The private key never leaves the Party.
type Party struct {
	Name string

	privateKey *rsa.PrivateKey
}

// New creates a Party from a private key.
func New(name string, privateKey *rsa.PrivateKey) (*Party, error) {
	if name == "" {
		return nil, fmt.Errorf("party name cannot be empty")
	}

	if privateKey == nil {
		return nil, fmt.Errorf("private key for %q cannot be nil", name)
	}

	return &Party{
		Name:       name,
		privateKey: privateKey,
	}, nil
}

// Load creates a Party from the private key persisted in store.
func Load(ctx context.Context, store *keystore.Store, name string) (*Party, error) {
	key, err := store.LoadPrivateKey(ctx, name)
	if err != nil {
		return nil, err
	}

	return New(name, key)
}

// PublicKey returns the public half of the party's key pair.
func (p *Party) PublicKey() *rsa.PublicKey {
	return &p.privateKey.PublicKey
}

// Seal encrypts text for the recipient with the given scheme.
func (p *Party) Seal(ctx context.Context, recipient string, recipientKey *rsa.PublicKey, text, scheme string) (*envelope.EncryptedData, error) {
	enc, err := internalrsa.NewSchemeEncryptor(scheme, recipient, recipientKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor for %q: %w", recipient, err)
	}

	encrypted, err := enc.Encrypt([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%s failed to encrypt message for %s: %w", p.Name, recipient, err)
	}

	klog.FromContext(ctx).WithName("party").V(logs.Debug).Info("sealed message",
		"from", p.Name, "to", recipient, "type", encrypted.Type, "bytes", len(encrypted.Data))

	return encrypted, nil
}

// Open decrypts a message addressed to this party.
func (p *Party) Open(ctx context.Context, encrypted *envelope.EncryptedData) (string, error) {
	if encrypted == nil {
		return "", fmt.Errorf("encrypted data cannot be nil")
	}

	dec, err := internalrsa.DecryptorFor(encrypted.Type, p.Name, p.privateKey)
	if err != nil {
		return "", fmt.Errorf("%s cannot open message: %w", p.Name, err)
	}

	plaintext, err := dec.Decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("%s failed to decrypt message: %w", p.Name, err)
	}

	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%s decrypted a message which is not valid UTF-8", p.Name)
	}

	klog.FromContext(ctx).WithName("party").V(logs.Debug).Info("opened message", "name", p.Name, "type", encrypted.Type)

	return string(plaintext), nil
}
