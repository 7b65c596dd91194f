package platform

import (
	"path/filepath"

	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/gn"
	"github.com/goplus/skbuild/internal/target"
)

// VarEMSDK names the Emscripten SDK root.
const VarEMSDK = "EMSDK"

// Emscripten is the policy for wasm32-unknown-emscripten.
type Emscripten struct {
	env env.Env
}

func NewEmscripten(e env.Env) *Emscripten {
	return &Emscripten{env: e}
}

func (w *Emscripten) Name() string { return "emscripten" }

// SDK returns the EMSDK root.
func (w *Emscripten) SDK() (string, error) {
	sdk := env.String(w.env, VarEMSDK)
	if sdk == "" {
		return "", config.Missing(VarEMSDK, "set it to the Emscripten SDK root (source emsdk_env.sh)")
	}
	return sdk, nil
}

func (w *Emscripten) toolDir() (string, error) {
	sdk, err := w.SDK()
	if err != nil {
		return "", err
	}
	return filepath.Join(sdk, "upstream", "emscripten"), nil
}

func (w *Emscripten) Sysroot() (string, error) {
	dir, err := w.toolDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache", "sysroot"), nil
}

// FilterFeatures always builds FreeType into the library; wasm has no system
// fonts or native GPU backends besides WebGL.
func (w *Emscripten) FilterFeatures(useSystemLibraries bool, f features.Set) features.Set {
	return f.Enable(features.FreeType, features.EmbedFreeType).
		Disable(features.Vulkan, features.Metal, features.D3D, features.X11, features.Wayland, features.EGL)
}

func (w *Emscripten) GNArgs(cfg *config.Build, args *gn.Args) error {
	dir, err := w.toolDir()
	if err != nil {
		return err
	}
	args.Set("target_os", gnOS(cfg.Target))
	args.Set("target_cpu", "wasm")
	args.Set("cc", filepath.Join(dir, "emcc"))
	args.Set("cxx", filepath.Join(dir, "em++"))
	args.Set("ar", filepath.Join(dir, "emar"))

	// The embedded font manager references an external symbol that is
	// undefined on this target.
	args.SetBool("skia_enable_fontmgr_custom_empty", true)
	args.SetBool("skia_enable_fontmgr_custom_embedded", false)
	args.SetBool("skia_use_fontconfig", false)

	gl := cfg.Features.Contains(features.GL)
	args.SetBool("skia_use_webgl", gl)
	if gl {
		args.Set("skia_gl_standard", "webgl")
	}
	for _, lib := range systemLibraries {
		args.SetBool("skia_use_system_"+lib, false)
	}
	args.SetBool("skia_use_system_freetype2", false)
	return nil
}

func (w *Emscripten) CompilerFlags(cfg *config.Build) ([]string, error) {
	flags := []string{"-DSK_FORCE_8_BYTE_ALIGNMENT"}
	if cfg.Debug {
		flags = append(flags, "-g")
	}
	return flags, nil
}

func (w *Emscripten) LinkLibraries(f features.Set) []string {
	if f.Contains(features.GL) {
		return []string{"GL"}
	}
	return nil
}

func (w *Emscripten) BindgenArgs(t target.Target) ([]string, error) {
	sysroot, err := w.Sysroot()
	if err != nil {
		return nil, err
	}
	return []string{"--target=" + t.String(), "--sysroot=" + sysroot, "-fvisibility=default"}, nil
}
