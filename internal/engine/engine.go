// Package engine decides how the native libraries of one build are obtained:
// bound from an external directory, built from source, or downloaded with a
// from-source build as fallback.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goplus/skbuild/internal/binaries"
	"github.com/goplus/skbuild/internal/binarycache"
	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/deps"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/native"
	"github.com/goplus/skbuild/internal/platform"
	"github.com/qiniu/x/log"
)

// Decision is the branch the engine took.
type Decision int

const (
	BindExternal Decision = iota
	BuildFromSourceOffline
	Reused
	Downloaded
	BuiltFromSource
)

func (d Decision) String() string {
	switch d {
	case BindExternal:
		return "bind-external"
	case BuildFromSourceOffline:
		return "build-from-source-offline"
	case Reused:
		return "reused"
	case Downloaded:
		return "downloaded"
	case BuiltFromSource:
		return "built-from-source"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// Result describes the outcome of Run.
type Result struct {
	Decision  Decision
	Binaries  *binaries.Configuration
	Key       string // empty when no cache key applies
	ExportDir string // set when artifacts were published
}

// Downloader fetches and unpacks a binaries bundle.
type Downloader interface {
	DownloadAndUnpack(ctx context.Context, url, dest string) error
}

// Builder builds the native libraries from source.
type Builder interface {
	Build(ctx context.Context, cfg *config.Build, p platform.Policy, opts *config.Options, srcDir, outDir string) (*binaries.Configuration, error)
}

// Resolver makes the native sources available below a package directory.
type Resolver interface {
	Resolve(ctx context.Context, pkgDir string, packaged bool) error
}

// Engine runs one build decision. Its collaborators are replaceable.
type Engine struct {
	Env          env.Env
	Downloader   Downloader
	Builder      Builder
	Resolver     Resolver
	Bindings     BindingGenerator // nil skips binding generation
	PolicyFor    func(cfg *config.Build, e env.Env) platform.Policy
	CheckoutHash func(ctx context.Context, dir string) (string, error)
}

// New returns an engine wired to the real downloader, builder and
// dependency resolver.
func New(e env.Env, opts *config.Options) (*Engine, error) {
	r, err := deps.NewResolver(GitOptions(opts)...)
	if err != nil {
		return nil, err
	}
	eng := &Engine{
		Env:          e,
		Downloader:   binarycache.NewDownloader(opts.BinariesToken),
		Builder:      native.New(),
		Resolver:     r,
		PolicyFor:    platform.For,
		CheckoutHash: binarycache.CheckoutHash,
	}
	if opts.BindgenCommand != "" {
		eng.Bindings = &CommandGenerator{Command: opts.BindgenCommand, Args: strings.Fields(opts.BindgenArgs)}
	}
	return eng, nil
}

// GitOptions returns the git configuration of opts.
func GitOptions(opts *config.Options) []deps.GitOption {
	if opts.GitCommand == "" {
		return nil
	}
	return []deps.GitOption{deps.WithGitPath(opts.GitCommand)}
}

// SourceDir is the native source tree of a package.
func SourceDir(opts *config.Options) string {
	if opts.SourceDir != "" {
		return opts.SourceDir
	}
	return filepath.Join(opts.PackageDir, "skia")
}

// Run takes exactly one of the branches:
//
//   - an explicit library search path binds the libraries found there;
//   - an explicit source directory builds from it, offline and uncached;
//   - otherwise a bundle is downloaded when running as a packaged consumer or
//     when forced, falling back to a from-source build unless forced.
//
// Afterwards the artifacts are published when a staging path is set.
func (e *Engine) Run(ctx context.Context, cfg *config.Build, opts *config.Options) (*Result, error) {
	p := e.policy(cfg)
	platform.Prepare(cfg, p)
	log.Infof("target %s, platform %s, features [%s]", cfg.Target, p.Name(), cfg.Features)

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch {
	case opts.LibrarySearchPath != "":
		res, err = e.bindExternal(cfg, p, opts)
	case opts.SourceDir != "":
		res, err = e.buildOffline(ctx, cfg, p, opts)
	default:
		res, err = e.downloadOrBuild(ctx, cfg, p, opts)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("decision: %s", res.Decision)

	built := res.Decision != Downloaded && res.Decision != Reused
	if built || !present(res.Binaries.OutputDirectory, binaries.BindingsFile) {
		srcDir := ""
		if res.Decision == BuildFromSourceOffline || res.Decision == BuiltFromSource {
			srcDir = SourceDir(opts)
		}
		if err := e.generateBindings(ctx, cfg, p, res.Binaries, srcDir); err != nil {
			return nil, err
		}
	}
	res.Binaries.BindingFiles = presentFiles(res.Binaries.OutputDirectory, []string{binaries.BindingsFile})

	if opts.StagingPath != "" {
		if res.ExportDir, err = e.publish(ctx, cfg, opts, res.Binaries); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (e *Engine) policy(cfg *config.Build) platform.Policy {
	if e.PolicyFor != nil {
		return e.PolicyFor(cfg, e.Env)
	}
	return platform.For(cfg, e.Env)
}

func (e *Engine) bindExternal(cfg *config.Build, p platform.Policy, opts *config.Options) (*Result, error) {
	log.Infof("using libraries from %s", opts.LibrarySearchPath)
	bc := binaries.New(cfg, p, opts.OutDir)
	if err := binarycache.CopyFiles(opts.LibrarySearchPath, opts.OutDir, bc.LibraryFiles()); err != nil {
		return nil, err
	}
	for _, f := range bc.AdditionalFiles {
		if _, err := os.Stat(filepath.Join(opts.LibrarySearchPath, f)); err != nil {
			log.Warnf("%s not found in %s", f, opts.LibrarySearchPath)
			continue
		}
		if err := binarycache.CopyFiles(opts.LibrarySearchPath, opts.OutDir, []string{f}); err != nil {
			return nil, err
		}
	}
	return &Result{Decision: BindExternal, Binaries: bc}, nil
}

func (e *Engine) buildOffline(ctx context.Context, cfg *config.Build, p platform.Policy, opts *config.Options) (*Result, error) {
	cfg.Offline = true
	bc, err := e.Builder.Build(ctx, cfg, p, opts, opts.SourceDir, opts.OutDir)
	if err != nil {
		return nil, err
	}
	return &Result{Decision: BuildFromSourceOffline, Binaries: bc}, nil
}

func (e *Engine) downloadOrBuild(ctx context.Context, cfg *config.Build, p platform.Policy, opts *config.Options) (*Result, error) {
	_, perr := binarycache.PackagedHash(opts.PackageDir)
	packaged := perr == nil
	expected := binaries.New(cfg, p, opts.OutDir)
	if e.Bindings == nil {
		expected.BindingFiles = nil
	}

	plan, err := e.plan(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	key := ""
	if plan != nil {
		key = plan.Key
	} else if hash, err := e.checkoutHash(ctx, opts.PackageDir); err == nil {
		key = binarycache.BuildKey(hash, cfg)
	}
	if key != "" && binarycache.Reusable(opts.OutDir, key, expected.Files()) {
		log.Infof("%s already holds %s", opts.OutDir, key)
		return &Result{Decision: Reused, Binaries: expected, Key: key}, nil
	}

	if plan != nil {
		err := e.download(ctx, plan, opts.OutDir)
		if err == nil {
			if err := saveRecord(opts.OutDir, plan.Key, "download"); err != nil {
				return nil, err
			}
			return &Result{Decision: Downloaded, Binaries: expected, Key: plan.Key}, nil
		}
		if opts.ForceDownload {
			return nil, fmt.Errorf("forced binaries download failed: %w", err)
		}
		log.Warnf("%v; building from source", err)
	}

	if !cfg.Offline {
		if err := e.Resolver.Resolve(ctx, opts.PackageDir, packaged); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}
	bc, err := e.Builder.Build(ctx, cfg, p, opts, SourceDir(opts), opts.OutDir)
	if err != nil {
		return nil, err
	}
	if key != "" {
		if err := saveRecord(opts.OutDir, key, "build"); err != nil {
			return nil, err
		}
	}
	return &Result{Decision: BuiltFromSource, Binaries: bc, Key: key}, nil
}

// plan returns the download plan, or nil when no download is attempted.
// Only a forced download turns planning failures into errors.
func (e *Engine) plan(ctx context.Context, cfg *config.Build, opts *config.Options) (*binarycache.Plan, error) {
	if opts.ForceBuild {
		log.Infof("%s set, skipping download", config.VarForceBuild)
		return nil, nil
	}
	if cfg.Offline && !opts.ForceDownload {
		log.Debugf("offline, skipping download")
		return nil, nil
	}
	plan, err := binarycache.ShouldAttemptDownload(ctx, cfg, opts, opts.ForceDownload, e.checkoutHash)
	if err != nil {
		if opts.ForceDownload {
			return nil, err
		}
		log.Warnf("%v; building from source", err)
		return nil, nil
	}
	return plan, nil
}

// download unpacks the bundle of plan into outDir and checks it holds the
// planned key.
func (e *Engine) download(ctx context.Context, plan *binarycache.Plan, outDir string) error {
	if err := e.Downloader.DownloadAndUnpack(ctx, plan.URL, outDir); err != nil {
		return err
	}
	_, key, err := binarycache.ReadMetadata(outDir)
	if err != nil {
		return &binarycache.DownloadError{URL: plan.URL, Err: err}
	}
	if key != plan.Key {
		return &binarycache.DownloadError{URL: plan.URL, Err: fmt.Errorf("bundle holds key %s, want %s", key, plan.Key)}
	}
	return nil
}

func (e *Engine) checkoutHash(ctx context.Context, dir string) (string, error) {
	if e.CheckoutHash == nil {
		return "", errors.New("no checkout hash source")
	}
	return e.CheckoutHash(ctx, dir)
}

// publish exports the artifacts into the staging path. The key is derived
// from the checkout the build ran in.
func (e *Engine) publish(ctx context.Context, cfg *config.Build, opts *config.Options, bc *binaries.Configuration) (string, error) {
	hash, err := e.checkoutHash(ctx, opts.PackageDir)
	if err != nil {
		return "", fmt.Errorf("%s requires a git checkout: %w", config.VarStagingPath, err)
	}
	key := binarycache.BuildKey(hash, cfg)
	return binarycache.Export(bc, config.PackageVersion, key, opts.StagingPath)
}

func present(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

// presentFiles returns the files of names that exist in dir.
func presentFiles(dir string, names []string) []string {
	var files []string
	for _, name := range names {
		if present(dir, name) {
			files = append(files, name)
		}
	}
	return files
}

func saveRecord(outDir, key, source string) error {
	return binarycache.SaveRecord(outDir, &binarycache.Record{
		Key:       key,
		Source:    source,
		BuildTime: time.Now(),
	})
}
