package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/image-analyzer/internal/errors"
)

const appDirName = "image-analyzer"

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// The first entry is where a default config is created.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		return []string{filepath.Join(homeDir, "AppData", "Roaming", appDirName)}, nil
	}
	return []string{
		filepath.Join(homeDir, ".config", appDirName),
		filepath.Join("/etc", appDirName),
	}, nil
}
