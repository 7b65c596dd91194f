// Package platform holds the per-OS-family build policies: gn arguments,
// extra compiler flags, system link libraries and binding generator flags.
package platform

import (
	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/gn"
	"github.com/goplus/skbuild/internal/target"
)

// Policy captures what differs between target OS families.
type Policy interface {
	// Name identifies the policy in logs.
	Name() string

	// FilterFeatures adjusts the requested features to what the platform
	// supports or requires. Applying it twice yields the same set.
	FilterFeatures(useSystemLibraries bool, f features.Set) features.Set

	// GNArgs adds platform specific gn arguments.
	GNArgs(cfg *config.Build, args *gn.Args) error

	// CompilerFlags returns extra C/C++ flags passed as extra_cflags.
	CompilerFlags(cfg *config.Build) ([]string, error)

	// LinkLibraries returns the system libraries to link, in link order.
	LinkLibraries(f features.Set) []string

	// BindgenArgs returns extra arguments for the binding generator.
	BindgenArgs(t target.Target) ([]string, error)
}

// Sysrooter is implemented by policies that compile against a sysroot.
type Sysrooter interface {
	Sysroot() (string, error)
}

// For selects the policy for cfg.Target.
func For(cfg *config.Build, e env.Env) Policy {
	t := cfg.Target
	switch {
	case t.IsAndroid():
		return NewAndroid(e, cfg.Host)
	case t.IsOpenHarmony():
		return NewOpenHarmony(e, cfg.Host)
	case t.IsEmscripten():
		return NewEmscripten(e)
	case t.IsMSVC():
		return NewMSVC(e)
	case t.IsApple():
		return NewApple(e, t, cfg.Host)
	case isUnix(t.System):
		return NewUnix(e, cfg.Host, PkgConfig{})
	}
	return NewGeneric(cfg.Host)
}

// Prepare filters cfg.Features through p. The feature set is not modified
// afterwards.
func Prepare(cfg *config.Build, p Policy) {
	cfg.Features = p.FilterFeatures(cfg.UseSystemLibraries, cfg.Features)
}

func isUnix(system string) bool {
	switch system {
	case "linux", "freebsd", "netbsd", "openbsd", "dragonfly", "illumos", "solaris":
		return true
	}
	return false
}

// gnOS maps a target to gn's target_os.
func gnOS(t target.Target) string {
	switch {
	case t.IsAndroid():
		return "android"
	case t.IsIOS():
		return "ios"
	case t.IsApple():
		return "mac"
	case t.IsWindows():
		return "win"
	case t.IsEmscripten():
		return "wasm"
	}
	return t.System
}

func crossTargetFlags(t, host target.Target) []string {
	if t == host {
		return nil
	}
	return []string{"--target=" + t.String()}
}
