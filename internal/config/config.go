// Package config composes the build configuration and decision inputs from the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/target"
)

// PackageVersion is the version of this package. Published binaries are
// tagged with it.
const PackageVersion = "0.78.2"

// DefaultBinariesURL is the download template. {tag} and {key} are substituted.
const DefaultBinariesURL = "https://github.com/rust-skia/skia-binaries/releases/download/{tag}/skia-binaries-{key}.tar.gz"

// Environment variables.
const (
	VarTarget             = "TARGET"
	VarHost               = "HOST"
	VarDebug              = "SKIA_DEBUG"
	VarUseSystemLibraries = "SKIA_USE_SYSTEM_LIBRARIES"
	VarOffline            = "SKIA_OFFLINE"
	VarStaticRuntime      = "SKIA_STATIC_RUNTIME"
	VarSourceDir          = "SKIA_SOURCE_DIR"
	VarLibrarySearchPath  = "SKIA_LIBRARY_SEARCH_PATH"
	VarForceBuild         = "FORCE_SKIA_BUILD"
	VarForceDownload      = "FORCE_SKIA_BINARIES_DOWNLOAD"
	VarBinariesURL        = "SKIA_BINARIES_URL"
	VarBinariesToken      = "SKIA_BINARIES_TOKEN"
	VarStagingPath        = "SKIA_STAGING_PATH"
	VarGNCommand          = "SKIA_GN_COMMAND"
	VarNinjaCommand       = "SKIA_NINJA_COMMAND"
	VarGNArgs             = "SKIA_GN_ARGS"
	VarCC                 = "SKIA_CC"
	VarCXX                = "SKIA_CXX"
	VarBindgenCommand     = "SKIA_BINDGEN_COMMAND"
	VarBindgenArgs        = "SKIA_BINDGEN_ARGS"
	VarGitCommand         = "SKIA_GIT_COMMAND"
	VarOutDir             = "OUT_DIR"
	VarPackageDir         = "SKBUILD_PACKAGE_DIR"
)

// ErrConfig marks configuration errors: unknown features, malformed triples,
// unparsable switches.
var ErrConfig = errors.New("configuration error")

// MissingError reports an absent prerequisite: an unset variable or a
// toolchain root that could not be discovered.
type MissingError struct {
	Name string // variable or path
	Hint string
}

func (e *MissingError) Error() string {
	msg := "missing prerequisite " + e.Name
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// Missing returns a *MissingError for name.
func Missing(name, hint string) error {
	return &MissingError{Name: name, Hint: hint}
}

// Build is the configuration threaded through the pipeline.
type Build struct {
	Target             target.Target
	Host               target.Target
	Features           features.Set
	Debug              bool
	UseSystemLibraries bool
	Offline            bool
	StaticRuntime      bool
}

// CrossCompiling reports whether target and host differ.
func (b *Build) CrossCompiling() bool {
	return b.Target != b.Host
}

// Options are the inputs of the build decision.
type Options struct {
	PackageDir        string
	OutDir            string
	SourceDir         string
	LibrarySearchPath string
	ForceBuild        bool
	ForceDownload     bool
	BinariesURL       string
	BinariesToken     string
	StagingPath       string
	GNCommand         string
	NinjaCommand      string
	GNArgs            string
	CC                string
	CXX               string
	BindgenCommand    string
	BindgenArgs       string
	GitCommand        string
}

// FromEnvironment reads the build configuration. All failures wrap ErrConfig.
func FromEnvironment(e env.Env) (*Build, error) {
	host := target.Host()
	if v := env.String(e, VarHost); v != "" {
		t, err := target.Parse(v)
		if err != nil {
			return nil, configErr(err)
		}
		host = t
	}
	tgt := host
	if v := env.String(e, VarTarget); v != "" {
		t, err := target.Parse(v)
		if err != nil {
			return nil, configErr(err)
		}
		tgt = t
	}

	fs, err := features.FromEnvironment(e)
	if err != nil {
		return nil, configErr(err)
	}

	b := &Build{Target: tgt, Host: host, Features: fs}
	for _, sw := range []struct {
		key string
		dst *bool
	}{
		{VarDebug, &b.Debug},
		{VarUseSystemLibraries, &b.UseSystemLibraries},
		{VarOffline, &b.Offline},
		{VarStaticRuntime, &b.StaticRuntime},
	} {
		if *sw.dst, err = env.Bool(e, sw.key); err != nil {
			return nil, configErr(err)
		}
	}
	if env.String(e, VarSourceDir) != "" {
		b.Offline = true
	}
	return b, nil
}

// OptionsFromEnvironment reads the decision inputs.
func OptionsFromEnvironment(e env.Env, b *Build) (*Options, error) {
	o := &Options{
		PackageDir:        env.String(e, VarPackageDir),
		OutDir:            env.String(e, VarOutDir),
		SourceDir:         env.String(e, VarSourceDir),
		LibrarySearchPath: env.String(e, VarLibrarySearchPath),
		BinariesURL:       env.String(e, VarBinariesURL),
		BinariesToken:     env.String(e, VarBinariesToken),
		StagingPath:       env.String(e, VarStagingPath),
		GNCommand:         env.String(e, VarGNCommand),
		NinjaCommand:      env.String(e, VarNinjaCommand),
		GNArgs:            env.String(e, VarGNArgs),
		CC:                env.String(e, VarCC),
		CXX:               env.String(e, VarCXX),
		BindgenCommand:    env.String(e, VarBindgenCommand),
		BindgenArgs:       env.String(e, VarBindgenArgs),
		GitCommand:        env.String(e, VarGitCommand),
	}
	var err error
	if o.ForceBuild, err = env.Bool(e, VarForceBuild); err != nil {
		return nil, configErr(err)
	}
	if o.ForceDownload, err = env.Bool(e, VarForceDownload); err != nil {
		return nil, configErr(err)
	}
	if o.ForceBuild && o.ForceDownload {
		return nil, fmt.Errorf("%w: %s and %s are mutually exclusive", ErrConfig, VarForceBuild, VarForceDownload)
	}
	if o.BinariesURL == "" {
		o.BinariesURL = DefaultBinariesURL
	}
	if o.PackageDir == "" {
		if o.PackageDir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	if o.OutDir == "" {
		o.OutDir = filepath.Join(o.PackageDir, "out", b.Target.String())
	}
	for _, p := range []*string{&o.PackageDir, &o.OutDir, &o.SourceDir, &o.LibrarySearchPath, &o.StagingPath} {
		if *p == "" {
			continue
		}
		if *p, err = filepath.Abs(*p); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func configErr(err error) error {
	return fmt.Errorf("%w: %w", ErrConfig, err)
}
