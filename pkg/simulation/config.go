package simulation

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	internalrsa "github.com/jetstack/securechat/internal/envelope/rsa"
	"github.com/jetstack/securechat/internal/keys"
	"github.com/jetstack/securechat/pkg/homeutils"
)

// oaepOverhead is the number of bytes of each RSA block taken up by OAEP padding with SHA-256
const oaepOverhead = 2*32 + 2

// Config describes a simulated conversation.
type Config struct {
	// KeyDir is the directory the PEM files are written to.
	KeyDir string `yaml:"key-dir"`
	// KeySize is the RSA modulus size in bits.
	KeySize int `yaml:"key-size"`
	// Scheme is the envelope scheme used for every message, "oaep" or "jwe".
	Scheme string `yaml:"scheme"`
	// Parties get a key pair each. If empty, the parties are taken from Messages.
	Parties  []string  `yaml:"parties"`
	Messages []Message `yaml:"messages"`
}

// Message is one line of the conversation.
type Message struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Text string `yaml:"text"`
}

// DefaultConfig returns the built-in conversation between nayana and chris.
func DefaultConfig() Config {
	return Config{
		KeyDir:  ".",
		KeySize: keys.DefaultKeySize,
		Scheme:  internalrsa.SchemeOAEP,
		Parties: []string{"nayana", "chris"},
		Messages: []Message{
			{
				From: "nayana",
				To:   "chris",
				Text: "Hi chris! This is a secret message from nayana.",
			},
			{
				From: "chris",
				To:   "nayana",
				Text: "Hi nayana! Got your message loud and clear!",
			},
		},
	}
}

// Dump generates a YAML string of the Config object
func (c *Config) Dump() (string, error) {
	d, err := yaml.Marshal(&c)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate YAML dump of config")
	}

	return string(d), nil
}

func (c *Config) applyDefaults() {
	if c.KeyDir == "" {
		c.KeyDir = "."
	}
	c.KeyDir = homeutils.ExpandHome(c.KeyDir)

	if c.KeySize == 0 {
		c.KeySize = keys.DefaultKeySize
	}

	if c.Scheme == "" {
		c.Scheme = internalrsa.SchemeOAEP
	}

	if len(c.Parties) == 0 {
		for _, m := range c.Messages {
			for _, name := range []string{m.From, m.To} {
				if name != "" && !slices.Contains(c.Parties, name) {
					c.Parties = append(c.Parties, name)
				}
			}
		}
	}
}

// Validate reports every problem with the config at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.KeySize < keys.MinRSAKeySize {
		result = multierror.Append(result, fmt.Errorf("key-size must be at least %d, got %d", keys.MinRSAKeySize, c.KeySize))
	}

	if !slices.Contains(internalrsa.Schemes(), c.Scheme) {
		result = multierror.Append(result, fmt.Errorf("scheme %q is not supported, expected one of %v", c.Scheme, internalrsa.Schemes()))
	}

	if len(c.Parties) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one party is required"))
	}

	seen := map[string]bool{}
	for i, name := range c.Parties {
		if name == "" {
			result = multierror.Append(result, fmt.Errorf("party %d/%d is missing a name", i+1, len(c.Parties)))
			continue
		}
		if seen[name] {
			result = multierror.Append(result, fmt.Errorf("party %q is listed more than once", name))
		}
		seen[name] = true
	}

	maxOAEP := c.KeySize/8 - oaepOverhead
	for i, m := range c.Messages {
		if !seen[m.From] {
			result = multierror.Append(result, fmt.Errorf("message %d/%d is from unknown party %q", i+1, len(c.Messages), m.From))
		}
		if !seen[m.To] {
			result = multierror.Append(result, fmt.Errorf("message %d/%d is to unknown party %q", i+1, len(c.Messages), m.To))
		}
		if m.Text == "" {
			result = multierror.Append(result, fmt.Errorf("message %d/%d has no text", i+1, len(c.Messages)))
		}
		if c.Scheme == internalrsa.SchemeOAEP && len(m.Text) > maxOAEP {
			result = multierror.Append(result, fmt.Errorf("message %d/%d is %d bytes, more than the %d bytes RSA-OAEP allows with a %d bit key; use scheme %q", i+1, len(c.Messages), len(m.Text), maxOAEP, c.KeySize, internalrsa.SchemeJWE))
		}
	}

	return result.ErrorOrNil()
}

// ParseConfig reads a YAML conversation, applies defaults and validates it.
func ParseConfig(data []byte) (Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return config, errors.Wrap(err, "failed to parse simulation config")
	}

	config.applyDefaults()

	if err = config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}
