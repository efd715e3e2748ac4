package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/jetstack/securechat/internal/keys"
	"github.com/jetstack/securechat/pkg/logs"
)

const envPrefix = "SECURECHAT_"

var (
	keyDir  string
	keySize int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "securechat",
	Short: "RSA key generation and encrypted messages between parties",
	Long: `securechat generates RSA key pairs stored as PEM files and uses them to
encrypt messages for a recipient with RSA-OAEP, or with JWE for messages
too long for a single RSA block.

Run "securechat simulate" to watch two parties exchange encrypted messages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setFlagsFromEnv(envPrefix, cmd.Flags())
		return logs.Initialize()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&keyDir,
		"key-dir",
		".",
		"Directory holding the <name>_private.pem and <name>_public.pem files.",
	)
	rootCmd.PersistentFlags().IntVar(
		&keySize,
		"key-size",
		keys.DefaultKeySize,
		"RSA modulus size in bits for generated keys.",
	)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	logs.AddFlags(rootCmd.PersistentFlags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = klog.NewContext(ctx, klog.Background())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func setFlagsFromEnv(prefix string, fs *pflag.FlagSet) {
	set := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) {
		set[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		// ignore flags set from the commandline
		if set[f.Name] {
			return
		}
		// remove trailing _ to reduce common errors with the prefix, i.e. people setting it to MY_PROG_
		cleanPrefix := strings.TrimSuffix(prefix, "_")
		name := fmt.Sprintf("%s_%s", cleanPrefix, strings.Replace(strings.ToUpper(f.Name), "-", "_", -1))
		if e, ok := os.LookupEnv(name); ok {
			_ = fs.Set(f.Name, e)
		}
	})
}
