package platform

import (
	"path/filepath"
	"strings"

	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/gn"
	"github.com/goplus/skbuild/internal/target"
	"github.com/qiniu/x/log"
)

const (
	VarWinVC        = "SKIA_WIN_VC"
	VarVCInstallDir = "VCINSTALLDIR"
	VarLLVMHome     = "LLVM_HOME"
)

// DefaultVCRoots are probed in order when no variable names the VC directory.
var DefaultVCRoots = []string{
	`C:\Program Files\Microsoft Visual Studio\2022\Enterprise\VC`,
	`C:\Program Files\Microsoft Visual Studio\2022\Professional\VC`,
	`C:\Program Files\Microsoft Visual Studio\2022\Community\VC`,
	`C:\Program Files\Microsoft Visual Studio\2022\BuildTools\VC`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2022\BuildTools\VC`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2019\Enterprise\VC`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2019\Professional\VC`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2019\Community\VC`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2019\BuildTools\VC`,
}

// DefaultLLVMRoots are probed in order for clang-cl.
var DefaultLLVMRoots = []string{
	`C:\Program Files\LLVM`,
	`C:\LLVM`,
}

// MSVC is the policy for Windows targets using the Microsoft toolchain.
type MSVC struct {
	env       env.Env
	VCRoots   []string
	LLVMRoots []string
}

func NewMSVC(e env.Env) *MSVC {
	return &MSVC{env: e, VCRoots: DefaultVCRoots, LLVMRoots: DefaultLLVMRoots}
}

func (m *MSVC) Name() string { return "msvc" }

func (m *MSVC) FilterFeatures(useSystemLibraries bool, f features.Set) features.Set {
	f = f.Disable(features.X11, features.Wayland, features.EGL, features.Metal)
	return f.Set(features.EmbedICUData, f.Contains(features.TextLayout))
}

// VCRoot returns the VC directory of a Visual Studio installation.
func (m *MSVC) VCRoot() (string, error) {
	if dir, key := env.First(m.env, VarWinVC, VarVCInstallDir); dir != "" {
		log.Debugf("using VC directory %s from %s", dir, key)
		return strings.TrimRight(dir, `\/`), nil
	}
	for _, root := range m.VCRoots {
		if hasCompiler(root) {
			return root, nil
		}
	}
	return "", config.Missing(VarWinVC, "no Visual Studio installation containing cl.exe was found; set "+VarWinVC+" or "+VarVCInstallDir)
}

// LLVMRoot returns the LLVM installation providing clang-cl, or "" if none
// was found. An explicit LLVM_HOME must contain clang-cl.
func (m *MSVC) LLVMRoot() (string, error) {
	if dir := env.String(m.env, VarLLVMHome); dir != "" {
		if !executable(clangCL(dir)) {
			return "", config.Missing(VarLLVMHome, "no bin/clang-cl.exe under "+dir)
		}
		return dir, nil
	}
	for _, root := range m.LLVMRoots {
		if executable(clangCL(root)) {
			return root, nil
		}
	}
	return "", nil
}

func clangCL(root string) string {
	return filepath.Join(root, "bin", "clang-cl.exe")
}

// hasCompiler reports whether root contains Tools/MSVC/<version>/bin/Host<arch>/<arch>/cl.exe.
func hasCompiler(root string) bool {
	matches, _ := filepath.Glob(filepath.Join(root, "Tools", "MSVC", "*", "bin", "Host*", "*", "cl.exe"))
	for _, m := range matches {
		if executable(m) {
			return true
		}
	}
	return false
}

func (m *MSVC) GNArgs(cfg *config.Build, args *gn.Args) error {
	vc, err := m.VCRoot()
	if err != nil {
		return err
	}
	args.Set("win_vc", vc)
	llvm, err := m.LLVMRoot()
	if err != nil {
		return err
	}
	if llvm != "" {
		args.Set("clang_win", llvm)
	} else {
		log.Warnf("clang-cl not found, building with cl.exe")
	}
	args.Set("target_os", gnOS(cfg.Target))
	return nil
}

// CompilerFlags selects the C runtime: /MT for a static runtime, /MD otherwise.
func (m *MSVC) CompilerFlags(cfg *config.Build) ([]string, error) {
	flag := "/MD"
	if cfg.StaticRuntime {
		flag = "/MT"
	}
	if cfg.Debug {
		flag += "d"
	}
	return []string{flag}, nil
}

func (m *MSVC) LinkLibraries(f features.Set) []string {
	libs := []string{"usp10", "ole32", "user32", "gdi32", "fontsub"}
	if f.Contains(features.GL) {
		libs = append(libs, "opengl32")
	}
	if f.Contains(features.D3D) {
		libs = append(libs, "d3d12", "dxgi", "d3dcompiler")
	}
	return libs
}

func (m *MSVC) BindgenArgs(t target.Target) ([]string, error) {
	return []string{"--target=" + t.String(), "-DNOMINMAX"}, nil
}
