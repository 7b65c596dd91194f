package platform

import (
	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/gn"
	"github.com/goplus/skbuild/internal/target"
)

// VarSDKRoot names the Apple SDK used for cross builds.
const VarSDKRoot = "SDKROOT"

// Apple is the policy for macOS and iOS.
type Apple struct {
	env    env.Env
	target target.Target
	host   target.Target
}

func NewApple(e env.Env, t, host target.Target) *Apple {
	return &Apple{env: e, target: t, host: host}
}

func (a *Apple) Name() string { return "apple" }

func (a *Apple) FilterFeatures(useSystemLibraries bool, f features.Set) features.Set {
	return f.Disable(features.X11, features.Wayland, features.EGL, features.D3D, features.EmbedFreeType)
}

func (a *Apple) GNArgs(cfg *config.Build, args *gn.Args) error {
	args.Set("target_os", gnOS(cfg.Target))
	if cfg.Target.IsIOS() {
		args.SetBool("ios_use_simulator", cfg.Target.ABI == "sim" || cfg.Target.Architecture == "x86_64")
	}
	return nil
}

func (a *Apple) CompilerFlags(cfg *config.Build) ([]string, error) {
	if cfg.Target.IsIOS() {
		return nil, nil
	}
	return []string{"-mmacosx-version-min=10.15"}, nil
}

func (a *Apple) LinkLibraries(f features.Set) []string {
	libs := []string{"c++"}
	if a.target.IsIOS() {
		libs = append(libs,
			"framework=MobileCoreServices",
			"framework=CoreFoundation",
			"framework=CoreGraphics",
			"framework=CoreText",
			"framework=ImageIO",
			"framework=UIKit",
		)
		if f.Contains(features.GL) {
			libs = append(libs, "framework=OpenGLES")
		}
	} else {
		libs = append(libs, "framework=ApplicationServices")
		if f.Contains(features.GL) {
			libs = append(libs, "framework=OpenGL")
		}
	}
	if f.Contains(features.Metal) {
		libs = append(libs, "framework=Metal", "framework=Foundation")
	}
	return libs
}

func (a *Apple) BindgenArgs(t target.Target) ([]string, error) {
	args := crossTargetFlags(t, a.host)
	if sdk := env.String(a.env, VarSDKRoot); sdk != "" {
		args = append(args, "-isysroot", sdk)
	}
	return args, nil
}
