package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	internalrsa "github.com/jetstack/securechat/internal/envelope/rsa"
	"github.com/jetstack/securechat/internal/keystore"
	"github.com/jetstack/securechat/pkg/logs"
)

var encryptFlags struct {
	to      string
	message string
	scheme  string
	output  string
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a message for a recipient",
	Long: `Encrypt a message with the recipient's public key, read from
<key-dir>/<to>_public.pem, and print the result as JSON or YAML.

If --message is not given the message is read from stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		message := encryptFlags.message
		if !cmd.Flags().Changed("message") {
			data, err := readInput(cmd.InOrStdin(), "-")
			if err != nil {
				return fmt.Errorf("failed to read message from stdin: %w", err)
			}
			message = strings.TrimSuffix(string(data), "\n")
		}

		return runEncrypt(cmd.Context(), cmd.OutOrStdout(), openStore(), encryptFlags.to, message, encryptFlags.scheme, encryptFlags.output)
	},
}

func init() {
	rootCmd.AddCommand(encryptCmd)
	encryptCmd.PersistentFlags().StringVar(
		&encryptFlags.to,
		"to",
		"",
		"Name of the recipient whose public key is used.",
	)
	encryptCmd.PersistentFlags().StringVarP(
		&encryptFlags.message,
		"message",
		"m",
		"",
		"Message to encrypt.",
	)
	encryptCmd.PersistentFlags().StringVar(
		&encryptFlags.scheme,
		"scheme",
		internalrsa.SchemeOAEP,
		fmt.Sprintf("Encryption scheme, one of %v.", internalrsa.Schemes()),
	)
	encryptCmd.PersistentFlags().StringVarP(
		&encryptFlags.output,
		"output",
		"o",
		"json",
		`Output format, "json" or "yaml".`,
	)
}

func runEncrypt(ctx context.Context, out io.Writer, store *keystore.Store, to, message, scheme, output string) error {
	log := klog.FromContext(ctx).WithName("encrypt")

	if to == "" {
		return errors.New("a recipient is required, set --to")
	}
	if output != "json" && output != "yaml" {
		return fmt.Errorf("unknown output format %q", output)
	}

	pub, err := store.LoadPublicKey(ctx, to)
	if err != nil {
		return fmt.Errorf("failed to load public key for %s: %w", to, err)
	}

	enc, err := internalrsa.NewSchemeEncryptor(scheme, to, pub)
	if err != nil {
		return err
	}

	encrypted, err := enc.Encrypt([]byte(message))
	if err != nil {
		return fmt.Errorf("failed to encrypt message for %s: %w", to, err)
	}

	data, err := encrypted.Marshal()
	if err != nil {
		return err
	}
	if output == "yaml" {
		if data, err = yaml.JSONToYAML(data); err != nil {
			return fmt.Errorf("failed to convert encrypted data to YAML: %w", err)
		}
	}

	log.V(logs.Debug).Info("encrypted message", "to", to, "type", encrypted.Type, "ciphertextBytes", len(encrypted.Data))

	_, err = fmt.Fprint(out, strings.TrimSuffix(string(data), "\n")+"\n")
	return err
}
