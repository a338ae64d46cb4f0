package config

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultVersion = "0.1.0"

// versionFiles are checked in order when APP_VERSION is unset.
var versionFiles = []string{
	"VERSION",
	filepath.Join("..", "VERSION"),
	filepath.Join("..", "..", "VERSION"),
}

// GetVersion returns version from environment variable or the VERSION file
func GetVersion() string {
	if envVersion := os.Getenv("APP_VERSION"); envVersion != "" {
		return envVersion
	}
	return readVersionFile(versionFiles)
}

func readVersionFile(paths []string) string {
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(content)); v != "" {
			return v
		}
	}
	return defaultVersion
}
