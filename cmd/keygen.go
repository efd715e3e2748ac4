package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jetstack/securechat/internal/keystore"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen NAME...",
	Short: "Generate an RSA key pair for each name",
	Long: `Generate an RSA key pair for each name and write it to
<key-dir>/<name>_private.pem (PKCS8) and <key-dir>/<name>_public.pem
(SubjectPublicKeyInfo). Existing files are overwritten.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeygen(cmd.Context(), cmd.OutOrStdout(), openStore(), keySize, args)
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(ctx context.Context, out io.Writer, store *keystore.Store, bits int, names []string) error {
	for _, name := range names {
		if _, err := store.Generate(ctx, name, bits); err != nil {
			return fmt.Errorf("failed to generate keys for %s: %w", name, err)
		}
		fmt.Fprintf(out, "Keys generated for %s\n", name)
	}
	return nil
}
