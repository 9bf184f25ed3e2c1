// Package cache keeps a local clone of the template repository up to date.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vattention/facio-superpowers/internal/console"
)

// Cache is a persistent local clone of the template repository
type Cache struct {
	dir     string
	repoURL string
	git     Git
	out     *console.Printer
}

// New creates a cache rooted at dir
func New(dir, repoURL string, git Git, out *console.Printer) *Cache {
	return &Cache{
		dir:     dir,
		repoURL: repoURL,
		git:     git,
		out:     out,
	}
}

// Dir returns the cache root
func (c *Cache) Dir() string {
	return c.dir
}

// Path joins elements onto the cache root
func (c *Cache) Path(elem ...string) string {
	return filepath.Join(append([]string{c.dir}, elem...)...)
}

// Ensure clones the repository when the cache is absent and pulls otherwise.
// Git failures are returned unchanged in meaning; there are no retries.
func (c *Cache) Ensure(ctx context.Context) error {
	_, err := os.Stat(c.dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.out.Section("📦 Downloading facio-superpowers...")
		if err := c.git.Clone(ctx, c.repoURL, c.dir); err != nil {
			return fmt.Errorf("failed to clone %s: %w", c.repoURL, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat cache %s: %w", c.dir, err)
	}

	c.out.Section("🔄 Updating facio-superpowers...")
	if err := c.git.Pull(ctx, c.dir); err != nil {
		return fmt.Errorf("failed to update cache %s: %w", c.dir, err)
	}
	return nil
}
