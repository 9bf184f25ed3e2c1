package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultRepoURL is the template repository cloned into the cache
	DefaultRepoURL = "https://github.com/vattention/facio-superpowers.git"

	// EnvCacheDir overrides the cache location
	EnvCacheDir = "FACIO_SUPERPOWERS_HOME"

	cacheDirName = ".facio-superpowers"
)

// Config holds everything the installer needs. It is built once at startup
// and passed down; nothing below main reads the environment.
type Config struct {
	RepoURL  string
	CacheDir string
	WorkDir  string
}

// Load builds the configuration from the environment and the current directory.
// Empty overrides fall back to defaults.
func Load(getenv func(string) string, repoOverride, cacheOverride string) (Config, error) {
	cfg := Config{
		RepoURL:  DefaultRepoURL,
		CacheDir: cacheOverride,
	}
	if repoOverride != "" {
		cfg.RepoURL = repoOverride
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = getenv(EnvCacheDir)
	}
	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("failed to locate home directory: %w", err)
		}
		cfg.CacheDir = filepath.Join(home, cacheDirName)
	}

	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg.WorkDir = wd

	return cfg, nil
}
