package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Git is the version-control client used to maintain the cache
type Git interface {
	Clone(ctx context.Context, url, dest string) error
	Pull(ctx context.Context, dir string) error
}

// ExecGit runs the git binary, streaming its output
type ExecGit struct {
	Binary string
	Stdout io.Writer
	Stderr io.Writer
}

// Clone runs "git clone url dest"
func (g *ExecGit) Clone(ctx context.Context, url, dest string) error {
	return g.run(ctx, "", "clone", url, dest)
}

// Pull runs "git pull" inside dir
func (g *ExecGit) Pull(ctx context.Context, dir string) error {
	return g.run(ctx, dir, "pull")
}

func (g *ExecGit) run(ctx context.Context, workdir string, args ...string) error {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}

	c := exec.CommandContext(ctx, bin, args...)
	if workdir != "" {
		c.Dir = workdir
	}
	c.Stdout = g.Stdout
	c.Stderr = g.Stderr

	if err := c.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return fmt.Errorf("git %s exited with code %d", args[0], ee.ExitCode())
		}
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}
