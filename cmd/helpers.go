package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/jetstack/securechat/internal/keystore"
	"github.com/jetstack/securechat/pkg/homeutils"
	"github.com/jetstack/securechat/pkg/version"
)

func printVersion(out io.Writer, verbose bool) {
	fmt.Fprintln(out, "SecureChat version: ", version.SecureChatVersion, runtime.GOOS+"/"+runtime.GOARCH)
	if verbose {
		fmt.Fprintln(out, "  Commit: ", version.Commit)
		fmt.Fprintln(out, "  Built:  ", version.BuildDate)
		fmt.Fprintln(out, "  Go:     ", runtime.Version())
	}
}

// readInput returns the contents of path, or of in when path is "-" or empty.
func readInput(in io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}

// openStore returns the key store in the directory given by --key-dir.
func openStore() *keystore.Store {
	return keystore.New(homeutils.ExpandHome(keyDir))
}
