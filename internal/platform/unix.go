package platform

import (
	"path/filepath"

	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/gn"
	"github.com/goplus/skbuild/internal/target"
	"github.com/qiniu/x/log"
)

// VarSysroot optionally names the sysroot for cross builds on desktop Unix.
const VarSysroot = "SYSROOT"

// Unix is the policy for Linux and the BSDs.
type Unix struct {
	env   env.Env
	host  target.Target
	probe LibProber
}

func NewUnix(e env.Env, host target.Target, probe LibProber) *Unix {
	return &Unix{env: e, host: host, probe: probe}
}

func (u *Unix) Name() string { return "unix" }

func (u *Unix) FilterFeatures(useSystemLibraries bool, f features.Set) features.Set {
	f = f.Enable(features.FreeType).Disable(features.Metal, features.D3D)
	if !useSystemLibraries {
		f = f.Enable(features.EmbedFreeType)
	}
	return f
}

func (u *Unix) GNArgs(cfg *config.Build, args *gn.Args) error {
	args.SetBool("skia_use_fontconfig", true)
	if cfg.CrossCompiling() {
		args.Set("target_os", gnOS(cfg.Target))
		args.Set("cc", "clang")
		args.Set("cxx", "clang++")
	}
	return nil
}

func (u *Unix) CompilerFlags(cfg *config.Build) ([]string, error) {
	return u.crossFlags(cfg.Target), nil
}

// crossFlags returns the include path and target flags needed when target != host.
func (u *Unix) crossFlags(t target.Target) []string {
	flags := crossTargetFlags(t, u.host)
	if flags == nil {
		return nil
	}
	if sysroot := env.String(u.env, VarSysroot); sysroot != "" {
		flags = append(flags, "--sysroot="+sysroot)
	}
	return append(flags, "-I"+filepath.Join("/usr", t.String(), "include"))
}

func (u *Unix) LinkLibraries(f features.Set) []string {
	libs := []string{"stdc++"}

	pkgs := []string{"fontconfig"}
	fallback := []string{"fontconfig"}
	if !f.Contains(features.EmbedFreeType) {
		pkgs = append(pkgs, "freetype2")
		fallback = append(fallback, "freetype")
	}
	found, err := u.probe.Libs(pkgs...)
	if err != nil || len(found) == 0 {
		log.Warnf("pkg-config probe for %v failed (%v), using %v", pkgs, err, fallback)
		found = fallback
	}
	libs = append(libs, found...)

	if f.Contains(features.GL) {
		if f.Contains(features.EGL) {
			libs = append(libs, "EGL")
		}
		if f.Contains(features.X11) {
			libs = append(libs, "GL")
		}
		if f.Contains(features.Wayland) {
			libs = append(libs, "wayland-egl", "GLESv2")
		}
	}
	return libs
}

func (u *Unix) BindgenArgs(t target.Target) ([]string, error) {
	return u.crossFlags(t), nil
}

// Sysroot returns $SYSROOT, which may be empty.
func (u *Unix) Sysroot() (string, error) {
	return env.String(u.env, VarSysroot), nil
}
