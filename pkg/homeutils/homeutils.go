package homeutils

import (
	"os/user"
	"path/filepath"
	"strings"
)

// HomeDir returns the path of the home directory
// of the user the application is running as.
func HomeDir() string {
	usr, err := user.Current()
	if err != nil {
		return ""
	}
	return usr.HomeDir
}

// ExpandHome expands a leading "~" or "~/" in a key directory to the home
// directory of the user the application is running as. Other paths, including
// "~otheruser/...", are returned unchanged, as is everything when the home
// directory can't be determined.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home := HomeDir()
	if home == "" {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
