// Package native builds the skia libraries from source with gn and ninja.
package native

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/skbuild/internal/binaries"
	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/gn"
	"github.com/goplus/skbuild/internal/platform"
	"github.com/qiniu/x/log"
)

// DefaultPython runs the helper scripts shipped with the skia sources.
const DefaultPython = "python3"

// Builder runs a from-source build.
type Builder struct {
	Runner gn.Runner
	Python string
}

// New returns a builder executing commands with os/exec.
func New() *Builder {
	return &Builder{Runner: gn.ExecRunner{}, Python: DefaultPython}
}

// Build compiles the libraries of cfg from srcDir into outDir and returns the
// resulting binaries configuration.
//
// Unless cfg.Offline is set the third party sources are synced first and a
// gn binary is fetched when neither an override nor a previously fetched
// one is available. gn and ninja run inside srcDir, so relative directories
// are resolved against the working directory first.
func (b *Builder) Build(ctx context.Context, cfg *config.Build, p platform.Policy, opts *config.Options, srcDir, outDir string) (*binaries.Configuration, error) {
	srcDir, err := filepath.Abs(srcDir)
	if err != nil {
		return nil, err
	}
	if outDir, err = filepath.Abs(outDir); err != nil {
		return nil, err
	}
	gnPath := opts.GNCommand
	if gnPath == "" {
		gnPath = fetchedGN(srcDir, cfg)
	}
	if !cfg.Offline {
		if err := b.run(ctx, srcDir, "tools/git-sync-deps"); err != nil {
			return nil, err
		}
		if opts.GNCommand == "" {
			if _, err := os.Stat(gnPath); err != nil {
				if err := b.run(ctx, srcDir, "bin/fetch-gn"); err != nil {
					return nil, err
				}
			}
		}
	} else if opts.GNCommand == "" {
		if _, err := os.Stat(gnPath); err != nil {
			log.Debugf("%s not found, using gn from PATH", gnPath)
			gnPath = ""
		}
	}

	args, err := platform.GNArgs(cfg, p, platform.Overrides{
		CC:     opts.CC,
		CXX:    opts.CXX,
		GNArgs: opts.GNArgs,
	})
	if err != nil {
		return nil, err
	}

	tool := &gn.Tool{GN: gnPath, Ninja: opts.NinjaCommand, Runner: b.runner()}
	log.Infof("building skia for %s (%s)", cfg.Target, p.Name())
	if err := tool.Generate(ctx, srcDir, outDir, args); err != nil {
		return nil, err
	}
	bc := binaries.New(cfg, p, outDir)
	if err := tool.Build(ctx, srcDir, outDir, bc.BuiltLibraries...); err != nil {
		return nil, err
	}
	return bc, nil
}

func (b *Builder) run(ctx context.Context, srcDir, script string) error {
	python := b.Python
	if python == "" {
		python = DefaultPython
	}
	return b.runner().Run(ctx, srcDir, python, filepath.FromSlash(script))
}

func (b *Builder) runner() gn.Runner {
	if b.Runner != nil {
		return b.Runner
	}
	return gn.ExecRunner{}
}

// fetchedGN is where bin/fetch-gn places the gn binary.
func fetchedGN(srcDir string, cfg *config.Build) string {
	name := "gn"
	if cfg.Host.IsWindows() {
		name = "gn.exe"
	}
	return filepath.Join(srcDir, "bin", name)
}
