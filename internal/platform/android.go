package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/gn"
	"github.com/goplus/skbuild/internal/target"
	"golang.org/x/mod/semver"
)

const (
	VarAndroidNDK     = "ANDROID_NDK"
	VarAndroidNDKHome = "ANDROID_NDK_HOME"
	VarAndroidNDKRoot = "ANDROID_NDK_ROOT"
	VarAndroidAPI     = "SKIA_ANDROID_API"

	defaultAndroidAPI = 26

	// Starting with this NDK major version the sysroot lives in the
	// host-tagged prebuilt toolchain.
	prebuiltSysrootNDK = 22
)

var ndkRevision = regexp.MustCompile(`Pkg\.Revision\s*=\s*(\S+)`)

// Android is the policy for Android NDK builds.
type Android struct {
	env  env.Env
	host target.Target
}

func NewAndroid(e env.Env, host target.Target) *Android {
	return &Android{env: e, host: host}
}

func (a *Android) Name() string { return "android" }

// NDK returns the NDK root directory.
func (a *Android) NDK() (string, error) {
	dir, _ := env.First(a.env, VarAndroidNDK, VarAndroidNDKHome, VarAndroidNDKRoot)
	if dir == "" {
		return "", config.Missing(VarAndroidNDK, "set it (or "+VarAndroidNDKHome+") to the Android NDK root")
	}
	return dir, nil
}

// NDKMajor reads the NDK major version from <ndk>/source.properties.
func NDKMajor(ndk string) (int, error) {
	path := filepath.Join(ndk, "source.properties")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read NDK version: %w", err)
	}
	m := ndkRevision.FindSubmatch(data)
	if m == nil {
		return 0, fmt.Errorf("no Pkg.Revision in %s", path)
	}
	v := "v" + string(m[1])
	if !semver.IsValid(v) {
		return 0, fmt.Errorf("invalid NDK revision %q in %s", m[1], path)
	}
	return strconv.Atoi(strings.TrimPrefix(semver.Major(v), "v"))
}

// Sysroot returns the NDK sysroot for the running host.
func (a *Android) Sysroot() (string, error) {
	ndk, err := a.NDK()
	if err != nil {
		return "", err
	}
	major, err := NDKMajor(ndk)
	if err != nil {
		return "", err
	}
	if major < prebuiltSysrootNDK {
		return filepath.Join(ndk, "sysroot"), nil
	}
	return filepath.Join(ndk, "toolchains", "llvm", "prebuilt", ndkHostTag(a.host), "sysroot"), nil
}

func ndkHostTag(host target.Target) string {
	switch {
	case host.IsWindows():
		return "windows-x86_64"
	case host.IsApple():
		return "darwin-x86_64"
	}
	return "linux-x86_64"
}

// ndkTriple is the include directory name of t inside the sysroot.
func ndkTriple(t target.Target) string {
	switch t.GNCPU() {
	case "arm":
		return "arm-linux-androideabi"
	case "arm64":
		return "aarch64-linux-android"
	case "x86":
		return "i686-linux-android"
	case "x64":
		return "x86_64-linux-android"
	}
	return t.String()
}

// clangTriple is the compiler --target for t.
func clangTriple(t target.Target) string {
	if t.GNCPU() == "arm" {
		return "armv7a-linux-androideabi"
	}
	return ndkTriple(t)
}

func (a *Android) api() int {
	if v := env.String(a.env, VarAndroidAPI); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultAndroidAPI
}

func (a *Android) FilterFeatures(useSystemLibraries bool, f features.Set) features.Set {
	f = f.Enable(features.FreeType).Disable(features.X11, features.Wayland, features.Metal, features.D3D)
	if !useSystemLibraries {
		f = f.Enable(features.EmbedFreeType)
	}
	return f
}

func (a *Android) GNArgs(cfg *config.Build, args *gn.Args) error {
	ndk, err := a.NDK()
	if err != nil {
		return err
	}
	args.Set("ndk", ndk)
	args.SetInt("ndk_api", a.api())
	args.Set("target_os", gnOS(cfg.Target))
	return nil
}

func (a *Android) CompilerFlags(cfg *config.Build) ([]string, error) {
	return []string{"-D__ANDROID_API__=" + strconv.Itoa(a.api())}, nil
}

func (a *Android) LinkLibraries(f features.Set) []string {
	libs := []string{"log", "android"}
	if f.Contains(features.GL) {
		libs = append(libs, "EGL", "GLESv2")
	}
	return append(libs, "c++_static", "c++abi")
}

func (a *Android) BindgenArgs(t target.Target) ([]string, error) {
	sysroot, err := a.Sysroot()
	if err != nil {
		return nil, err
	}
	args := []string{
		"--target=" + clangTriple(t),
		"--sysroot=" + sysroot,
		"-I" + filepath.Join(sysroot, "usr", "include", ndkTriple(t)),
	}
	if t.Is64Bit() {
		args = append(args, "-m64")
	} else {
		args = append(args, "-m32")
	}
	return args, nil
}
