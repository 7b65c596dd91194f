package platform

import (
	"path/filepath"

	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/gn"
	"github.com/goplus/skbuild/internal/target"
)

// VarOHOSSDK names the OpenHarmony native SDK directory.
const VarOHOSSDK = "OHOS_SDK_NATIVE"

// OpenHarmony reuses the Unix policy without fontconfig and compiles for
// the musl flavor of the target architecture.
type OpenHarmony struct {
	*Unix
}

func NewOpenHarmony(e env.Env, host target.Target) *OpenHarmony {
	return &OpenHarmony{Unix: NewUnix(e, host, nil)}
}

func (o *OpenHarmony) Name() string { return "ohos" }

// SDK returns the native SDK root.
func (o *OpenHarmony) SDK() (string, error) {
	sdk := env.String(o.env, VarOHOSSDK)
	if sdk == "" {
		return "", config.Missing(VarOHOSSDK, "set it to the OpenHarmony native SDK directory")
	}
	return sdk, nil
}

func (o *OpenHarmony) Sysroot() (string, error) {
	sdk, err := o.SDK()
	if err != nil {
		return "", err
	}
	return filepath.Join(sdk, "sysroot"), nil
}

// muslTriple replaces the ohos triple with the musl one the toolchain expects.
func muslTriple(t target.Target) string {
	return t.Architecture + "-linux-musl"
}

func (o *OpenHarmony) FilterFeatures(useSystemLibraries bool, f features.Set) features.Set {
	return o.Unix.FilterFeatures(useSystemLibraries, f).Disable(features.X11, features.Wayland)
}

func (o *OpenHarmony) GNArgs(cfg *config.Build, args *gn.Args) error {
	sdk, err := o.SDK()
	if err != nil {
		return err
	}
	if err := o.Unix.GNArgs(cfg, args); err != nil {
		return err
	}
	args.SetBool("skia_use_fontconfig", false)
	args.Set("target_os", "linux")
	args.Set("cc", filepath.Join(sdk, "llvm", "bin", "clang"))
	args.Set("cxx", filepath.Join(sdk, "llvm", "bin", "clang++"))
	return nil
}

func (o *OpenHarmony) CompilerFlags(cfg *config.Build) ([]string, error) {
	return o.targetFlags(cfg.Target)
}

func (o *OpenHarmony) targetFlags(t target.Target) ([]string, error) {
	sysroot, err := o.Sysroot()
	if err != nil {
		return nil, err
	}
	return []string{"--target=" + muslTriple(t), "--sysroot=" + sysroot, "-D__MUSL__"}, nil
}

func (o *OpenHarmony) LinkLibraries(f features.Set) []string {
	libs := []string{"c++"}
	if !f.Contains(features.EmbedFreeType) {
		libs = append(libs, "freetype")
	}
	if f.Contains(features.GL) {
		libs = append(libs, "EGL", "GLESv3")
	}
	return libs
}

func (o *OpenHarmony) BindgenArgs(t target.Target) ([]string, error) {
	return o.targetFlags(t)
}
