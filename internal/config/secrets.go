package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret returns the value for name, honoring the name_FILE
// convention: when name_FILE points at a file the secret is read from
// disk, which keeps credentials out of the process environment in
// container deployments. File contents are trimmed of surrounding
// whitespace so a trailing newline in a mounted secret does not leak
// into the value. An unset name yields "" with no error.
func ResolveSecret(name string) (string, error) {
	if path := os.Getenv(name + "_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret file for %s: %w", name, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return os.Getenv(name), nil
}
