package target

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		triple string
		want   Target
	}{
		{"x86_64-unknown-linux-gnu", Target{"x86_64", "unknown", "linux", "gnu"}},
		{"aarch64-linux-android", Target{"aarch64", "linux", "android", ""}},
		{"aarch64-apple-ios-sim", Target{"aarch64", "apple", "ios", "sim"}},
		{"wasm32-unknown-emscripten", Target{"wasm32", "unknown", "emscripten", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.triple, func(t *testing.T) {
			got, err := Parse(tt.triple)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.triple, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.triple, got, tt.want)
			}
			if got.String() != tt.triple {
				t.Errorf("String() = %q, want %q", got.String(), tt.triple)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, triple := range []string{"", "x86_64", "x86_64-linux", "x86_64--linux"} {
		if _, err := Parse(triple); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformed", triple, err)
		}
	}
}

func TestPredicates(t *testing.T) {
	if !MustParse("x86_64-pc-windows-msvc").IsMSVC() {
		t.Error("windows-msvc should be MSVC")
	}
	if MustParse("x86_64-pc-windows-gnu").IsMSVC() {
		t.Error("windows-gnu should not be MSVC")
	}
	if !MustParse("armv7-linux-androideabi").IsAndroid() {
		t.Error("androideabi should be Android")
	}
	if !MustParse("aarch64-unknown-linux-ohos").IsOpenHarmony() {
		t.Error("linux-ohos should be OpenHarmony")
	}
	if !MustParse("aarch64-apple-darwin").IsApple() {
		t.Error("darwin should be Apple")
	}
}

func TestGNCPU(t *testing.T) {
	for triple, want := range map[string]string{
		"x86_64-unknown-linux-gnu":  "x64",
		"i686-pc-windows-msvc":      "x86",
		"aarch64-linux-android":     "arm64",
		"armv7-linux-androideabi":   "arm",
		"wasm32-unknown-emscripten": "wasm",
		"riscv64gc-unknown-linux-gnu": "riscv64",
	} {
		if got := MustParse(triple).GNCPU(); got != want {
			t.Errorf("GNCPU(%s) = %q, want %q", triple, got, want)
		}
	}
}

func TestHostParses(t *testing.T) {
	h := Host()
	if _, err := Parse(h.String()); err != nil {
		t.Errorf("Host() = %q does not round-trip: %v", h, err)
	}
}
