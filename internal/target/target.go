// Package target parses and describes compilation target triples.
package target

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrMalformed is returned by Parse for triples with fewer than three components.
var ErrMalformed = errors.New("malformed target triple")

// Target is an architecture-vendor-system[-abi] triple.
type Target struct {
	Architecture string
	Vendor       string
	System       string
	ABI          string // optional, empty when the triple has three components
}

// Parse splits triple on "-". Components after the third are joined into ABI.
func Parse(triple string) (Target, error) {
	parts := strings.Split(strings.TrimSpace(triple), "-")
	if len(parts) < 3 {
		return Target{}, fmt.Errorf("%w: %q, expected arch-vendor-system[-abi]", ErrMalformed, triple)
	}
	for _, p := range parts {
		if p == "" {
			return Target{}, fmt.Errorf("%w: %q has an empty component", ErrMalformed, triple)
		}
	}
	t := Target{
		Architecture: parts[0],
		Vendor:       parts[1],
		System:       parts[2],
	}
	if len(parts) > 3 {
		t.ABI = strings.Join(parts[3:], "-")
	}
	return t, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(triple string) Target {
	t, err := Parse(triple)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the canonical arch-vendor-system[-abi] form.
func (t Target) String() string {
	s := t.Architecture + "-" + t.Vendor + "-" + t.System
	if t.ABI != "" {
		s += "-" + t.ABI
	}
	return s
}

func (t Target) IsWindows() bool { return t.System == "windows" }

func (t Target) IsMSVC() bool { return t.IsWindows() && t.ABI == "msvc" }

func (t Target) IsAndroid() bool {
	return t.System == "android" || strings.HasPrefix(t.ABI, "android")
}

func (t Target) IsApple() bool {
	return t.Vendor == "apple" || t.System == "darwin" || t.System == "ios"
}

func (t Target) IsIOS() bool { return t.System == "ios" }

func (t Target) IsOpenHarmony() bool { return t.ABI == "ohos" }

func (t Target) IsEmscripten() bool { return t.System == "emscripten" }

// Is64Bit reports whether the architecture uses 64-bit pointers.
func (t Target) Is64Bit() bool {
	switch t.Architecture {
	case "x86_64", "aarch64", "riscv64", "riscv64gc", "powerpc64", "powerpc64le", "s390x", "loongarch64":
		return true
	}
	return false
}

// GNCPU maps the architecture to a gn target_cpu value.
func (t Target) GNCPU() string {
	switch t.Architecture {
	case "x86_64":
		return "x64"
	case "i386", "i586", "i686":
		return "x86"
	case "aarch64", "arm64":
		return "arm64"
	case "wasm32":
		return "wasm"
	case "riscv64", "riscv64gc":
		return "riscv64"
	}
	if strings.HasPrefix(t.Architecture, "arm") || strings.HasPrefix(t.Architecture, "thumb") {
		return "arm"
	}
	return t.Architecture
}

// Host returns the triple of the machine running this process.
func Host() Target {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	case "arm":
		arch = "armv7"
	}
	switch runtime.GOOS {
	case "darwin":
		return Target{Architecture: arch, Vendor: "apple", System: "darwin"}
	case "windows":
		return Target{Architecture: arch, Vendor: "pc", System: "windows", ABI: "msvc"}
	case "linux":
		return Target{Architecture: arch, Vendor: "unknown", System: "linux", ABI: "gnu"}
	default:
		return Target{Architecture: arch, Vendor: "unknown", System: runtime.GOOS}
	}
}
