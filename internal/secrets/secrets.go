// Package secrets resolves credentials given inline, as ${VAR} references,
// or as files mounted by a container runtime.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/image-analyzer/internal/errors"
)

// maxFileSize bounds secret file reads.
const maxFileSize = 64 * 1024

// ErrPermissive is joined to the result of ReadFile when group or other
// users can access the file. The secret is still returned.
var ErrPermissive = errors.NewStd("secret file is readable by group or other users")

// Expand replaces ${VAR} and ${VAR:-fallback} references with environment
// values. A reference without fallback to an unset variable is an error.
// Strings without "${" are returned unchanged.
func Expand(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})
	if len(missing) > 0 {
		return "", errors.Newf("missing environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return expanded, nil
}

// ReadFile returns the contents of a secret file without trailing newlines.
// A file accessible to group or other users yields the secret together with
// ErrPermissive.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", errors.NewStd("secret file path is empty")
	}
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	switch {
	case os.IsNotExist(err):
		return "", fmt.Errorf("secret file not found: %s", clean)
	case err != nil:
		return "", fmt.Errorf("stat secret file %s: %w", clean, err)
	case !info.Mode().IsRegular():
		return "", fmt.Errorf("secret path is not a regular file: %s", clean)
	case info.Size() > maxFileSize:
		return "", fmt.Errorf("secret file larger than %d bytes: %s", maxFileSize, clean)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", fmt.Errorf("read secret file %s: %w", clean, err)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file is empty: %s", clean)
	}

	if info.Mode().Perm()&0o077 != 0 {
		return secret, fmt.Errorf("%w: %s", ErrPermissive, clean)
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded.
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	return Expand(value)
}
