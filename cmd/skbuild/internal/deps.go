package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/goplus/skbuild/internal/binarycache"
	"github.com/goplus/skbuild/internal/deps"
	"github.com/goplus/skbuild/internal/engine"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	depsList bool
	depsLock bool
)

var depsCmd = &cobra.Command{
	Use:   "deps [name...]",
	Short: "Fetch the native source dependencies",
	Long: `Deps checks out the pinned native sources below the package directory,
from git submodules or, for published packages and when git fails, from
source archives. With --list the pins are printed instead. With --lock the
submodule commits of the checkout are written to ` + deps.LockFile + `, which
published packages use to download the archives.`,
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().BoolVarP(&depsList, "list", "l", false, "Print the pinned dependencies")
	depsCmd.Flags().BoolVar(&depsLock, "lock", false, "Record the submodule commits in "+deps.LockFile)
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	_, _, opts, err := load(cmd, nil)
	if err != nil {
		return err
	}
	r, err := deps.NewResolver(engine.GitOptions(opts)...)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		var selected []deps.Dependency
		for _, name := range args {
			d, err := deps.Find(r.Deps, name)
			if err != nil {
				return err
			}
			selected = append(selected, d)
		}
		r.Deps = selected
	}

	ctx := context.Background()
	switch {
	case depsList:
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(r.Deps)
	case depsLock:
		locked, err := r.Lock(ctx, opts.PackageDir)
		if err != nil {
			return fmt.Errorf("failed to lock dependencies: %w", err)
		}
		if err := deps.WriteLock(opts.PackageDir, locked); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(opts.PackageDir, deps.LockFile))
		return nil
	}

	_, err = binarycache.PackagedHash(opts.PackageDir)
	packaged := err == nil
	if err != nil && !errors.Is(err, binarycache.ErrNotPackaged) {
		return err
	}
	if err := r.Resolve(ctx, opts.PackageDir, packaged); err != nil {
		return fmt.Errorf("failed to fetch dependencies: %w", err)
	}
	return nil
}
