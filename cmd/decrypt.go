package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/jetstack/securechat/internal/envelope"
	"github.com/jetstack/securechat/internal/keystore"
	"github.com/jetstack/securechat/internal/party"
)

var decryptFlags struct {
	as string
	in string
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt a message with a party's private key",
	Long: `Decrypt the JSON or YAML printed by "securechat encrypt" with the private key in
<key-dir>/<as>_private.pem and print the plaintext.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd.InOrStdin(), decryptFlags.in)
		if err != nil {
			return fmt.Errorf("failed to read encrypted message: %w", err)
		}

		return runDecrypt(cmd.Context(), cmd.OutOrStdout(), openStore(), decryptFlags.as, data)
	},
}

func init() {
	rootCmd.AddCommand(decryptCmd)
	decryptCmd.PersistentFlags().StringVar(
		&decryptFlags.as,
		"as",
		"",
		"Name of the party whose private key is used.",
	)
	decryptCmd.PersistentFlags().StringVar(
		&decryptFlags.in,
		"in",
		"-",
		`File holding the encrypted message, or "-" for stdin.`,
	)
}

func runDecrypt(ctx context.Context, out io.Writer, store *keystore.Store, as string, data []byte) error {
	if as == "" {
		return errors.New("a party is required, set --as")
	}

	// JSON is valid YAML, so both output formats of encrypt are accepted.
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("failed to parse encrypted message: %w", err)
	}

	encrypted, err := envelope.Unmarshal(jsonData)
	if err != nil {
		return err
	}

	p, err := party.Load(ctx, store, as)
	if err != nil {
		return err
	}

	text, err := p.Open(ctx, encrypted)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, text)
	return err
}
