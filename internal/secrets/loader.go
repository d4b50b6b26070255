// Package secrets resolves credentials (DSNs, passwords, API keys) from a
// file or an inline value.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when a source has neither a file nor a value.
// Callers with an optional integration check for it to switch the
// integration off instead of failing.
var ErrNotConfigured = errors.New("secret is not configured")

// Source describes where a secret comes from. File wins over Value.
type Source struct {
	// Name appears in error messages.
	Name  string
	Value string
	File  string
}

// Configured reports whether the source points anywhere at all.
func (s Source) Configured() bool {
	return strings.TrimSpace(s.File) != "" || strings.TrimSpace(s.Value) != ""
}

// Load returns the trimmed secret. An empty file is an error rather than
// ErrNotConfigured since a file was asked for.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	return secret, nil
}
