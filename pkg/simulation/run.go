// Package simulation runs a scripted conversation between parties: every party gets a fresh key
// pair written to disk, the keys are read back, and each message is encrypted with the
// recipient's public key and decrypted with the recipient's private key.
package simulation

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"k8s.io/klog/v2"

	"github.com/jetstack/securechat/internal/keystore"
	"github.com/jetstack/securechat/internal/party"
	"github.com/jetstack/securechat/pkg/logs"
)

var (
	// ErrKeyMismatch is returned when a key read back from disk differs from the generated key.
	ErrKeyMismatch = errors.New("key loaded from disk does not match generated key")

	// ErrMessageMismatch is returned when a decrypted message differs from the one sent.
	ErrMessageMismatch = errors.New("decrypted message does not match sent message")
)

// Exchange records the delivery of one message.
type Exchange struct {
	From           string
	To             string
	Sent           string
	Received       string
	Type           string
	CiphertextSize int
}

// Transcript is the result of a successful run.
type Transcript struct {
	Exchanges []Exchange
}

// Run executes the conversation in cfg, printing progress to out. The config is expected to have
// come from ParseConfig or DefaultConfig; it is validated again here. The first failure stops the run.
func Run(ctx context.Context, cfg Config, out io.Writer) (*Transcript, error) {
	log := klog.FromContext(ctx).WithName("simulation")

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}

	if dump, err := cfg.Dump(); err == nil {
		log.V(logs.Debug).Info("loaded config", "config", dump)
	}

	store := keystore.New(cfg.KeyDir)
	name := color.New(color.FgCyan, color.Bold)

	generated := make(map[string]*rsa.PrivateKey, len(cfg.Parties))
	for _, p := range cfg.Parties {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key, err := store.Generate(ctx, p, cfg.KeySize)
		if err != nil {
			return nil, fmt.Errorf("failed to generate keys for %s: %w", p, err)
		}
		generated[p] = key

		fmt.Fprintf(out, "Keys generated for %s\n", name.Sprint(p))
	}

	parties := make(map[string]*party.Party, len(cfg.Parties))
	publicKeys := make(map[string]*rsa.PublicKey, len(cfg.Parties))
	for _, p := range cfg.Parties {
		loaded, err := party.Load(ctx, store, p)
		if err != nil {
			return nil, fmt.Errorf("failed to load private key for %s: %w", p, err)
		}

		pub, err := store.LoadPublicKey(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key for %s: %w", p, err)
		}

		if !generated[p].PublicKey.Equal(pub) || !generated[p].PublicKey.Equal(loaded.PublicKey()) {
			return nil, fmt.Errorf("%w: %s", ErrKeyMismatch, p)
		}

		log.V(logs.Debug).Info("loaded keys", "name", p, "private", store.PrivateKeyPath(p), "public", store.PublicKeyPath(p))

		parties[p] = loaded
		publicKeys[p] = pub
	}

	transcript := &Transcript{}
	for _, m := range cfg.Messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fmt.Fprintf(out, "\n%s sends: %s\n", name.Sprint(m.From), m.Text)

		sealed, err := parties[m.From].Seal(ctx, m.To, publicKeys[m.To], m.Text, cfg.Scheme)
		if err != nil {
			return nil, err
		}

		received, err := parties[m.To].Open(ctx, sealed)
		if err != nil {
			return nil, err
		}

		if received != m.Text {
			return nil, fmt.Errorf("%w: %s to %s", ErrMessageMismatch, m.From, m.To)
		}

		fmt.Fprintf(out, "%s receives and decrypts: %s\n", name.Sprint(m.To), received)

		log.Info("message delivered", "from", m.From, "to", m.To, "type", sealed.Type, "ciphertextBytes", len(sealed.Data))

		transcript.Exchanges = append(transcript.Exchanges, Exchange{
			From:           m.From,
			To:             m.To,
			Sent:           m.Text,
			Received:       received,
			Type:           sealed.Type,
			CiphertextSize: len(sealed.Data),
		})
	}

	return transcript, nil
}
