package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/qiniu/x/log"
)

// VCS checks out the submodules of a package.
type VCS interface {
	// SubmoduleUpdate initializes and shallowly checks out the submodules at
	// paths, relative to dir.
	SubmoduleUpdate(ctx context.Context, dir string, paths ...string) error

	// SubmoduleCommit returns the commit the checkout at dir records for the
	// submodule at path.
	SubmoduleCommit(ctx context.Context, dir, path string) (string, error)
}

// gitVCS implements VCS using git.
type gitVCS struct {
	git string
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) SubmoduleUpdate(ctx context.Context, dir string, paths ...string) error {
	args := append([]string{"submodule", "update", "--init", "--depth", "1"}, paths...)
	if _, err := g.output(ctx, dir, args...); err != nil {
		return fmt.Errorf("submodule update: %w", err)
	}
	return nil
}

// SubmoduleCommit reads the gitlink of path from HEAD:
//
//	160000 commit <sha>	<path>
func (g *gitVCS) SubmoduleCommit(ctx context.Context, dir, path string) (string, error) {
	out, err := g.output(ctx, dir, "ls-tree", "HEAD", "--", path)
	if err != nil {
		return "", fmt.Errorf("ls-tree %s: %w", path, err)
	}
	fields := strings.Fields(out)
	if len(fields) < 3 || fields[1] != "commit" {
		return "", fmt.Errorf("%s is not a submodule of %s", path, dir)
	}
	return fields[2], nil
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	cmd.Dir = dir
	log.Debugf("%s %s", g.git, strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
