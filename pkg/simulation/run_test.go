package simulation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/d4l3k/messagediff"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
	"k8s.io/klog/v2/ktesting"

	"github.com/jetstack/securechat/internal/keys"
)

func testContext(t *testing.T) context.Context {
	t.Helper()

	log := ktesting.NewLogger(t, ktesting.NewConfig(ktesting.Verbosity(10)))
	return klog.NewContext(t.Context(), log)
}

func TestRun_DefaultConversation(t *testing.T) {
	color.NoColor = true

	cfg := DefaultConfig()
	cfg.KeyDir = t.TempDir()

	var out bytes.Buffer
	transcript, err := Run(testContext(t), cfg, &out)
	require.NoError(t, err)

	// ciphertext size equals the modulus size
	expected := []Exchange{
		{
			From:           "nayana",
			To:             "chris",
			Sent:           "Hi chris! This is a secret message from nayana.",
			Received:       "Hi chris! This is a secret message from nayana.",
			Type:           "RSA-OAEP-256",
			CiphertextSize: 256,
		},
		{
			From:           "chris",
			To:             "nayana",
			Sent:           "Hi nayana! Got your message loud and clear!",
			Received:       "Hi nayana! Got your message loud and clear!",
			Type:           "RSA-OAEP-256",
			CiphertextSize: 256,
		},
	}
	if diff, equal := messagediff.PrettyDiff(expected, transcript.Exchanges); !equal {
		t.Errorf("unexpected transcript:\n%s", diff)
	}

	assert.Equal(t, strings.Join([]string{
		"Keys generated for nayana",
		"Keys generated for chris",
		"",
		"nayana sends: Hi chris! This is a secret message from nayana.",
		"chris receives and decrypts: Hi chris! This is a secret message from nayana.",
		"",
		"chris sends: Hi nayana! Got your message loud and clear!",
		"nayana receives and decrypts: Hi nayana! Got your message loud and clear!",
		"",
	}, "\n"), out.String())

	for _, name := range []string{"nayana_private.pem", "nayana_public.pem", "chris_private.pem", "chris_public.pem"} {
		_, err := os.Stat(filepath.Join(cfg.KeyDir, name))
		assert.NoError(t, err, name)
	}

	// the files on disk are the keys that were used
	pub, err := keys.LoadPublicKeyFromPEMFile(filepath.Join(cfg.KeyDir, "chris_public.pem"))
	require.NoError(t, err)
	priv, err := keys.LoadPrivateKeyFromPEMFile(filepath.Join(cfg.KeyDir, "chris_private.pem"))
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(pub))
}

func TestRun_JWEScheme(t *testing.T) {
	cfg := Config{
		KeyDir: t.TempDir(),
		Scheme: "jwe",
		Messages: []Message{
			{From: "alice", To: "bob", Text: strings.Repeat("a long message ", 100)},
		},
	}

	transcript, err := Run(testContext(t), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, transcript.Exchanges, 1)
	assert.Equal(t, "JWE-RSA", transcript.Exchanges[0].Type)
	assert.Equal(t, cfg.Messages[0].Text, transcript.Exchanges[0].Received)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := Config{KeyDir: t.TempDir(), KeySize: 512, Parties: []string{"nayana"}}

	transcript, err := Run(testContext(t), cfg, &bytes.Buffer{})
	require.ErrorContains(t, err, "invalid simulation config")
	assert.Nil(t, transcript)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	cfg := DefaultConfig()
	cfg.KeyDir = t.TempDir()

	_, err := Run(ctx, cfg, &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_UnwritableKeyDir(t *testing.T) {
	// a regular file where the key directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	cfg := DefaultConfig()
	cfg.KeyDir = filepath.Join(blocker, "keys")

	_, err := Run(testContext(t), cfg, &bytes.Buffer{})
	require.ErrorContains(t, err, "failed to generate keys for nayana")
}
