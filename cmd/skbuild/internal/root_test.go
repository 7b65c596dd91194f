package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/goplus/skbuild/internal/binaries"
	"github.com/goplus/skbuild/internal/binarycache"
	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/deps"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("skbuild %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestKeyCommand(t *testing.T) {
	got := execute(t, "key",
		"--hash", "abcdef0",
		"--target", "x86_64-unknown-none",
		"--features", "svg,gl",
		"--package-dir", t.TempDir(),
	)
	if want := "abcdef0-x86_64-unknown-none-gl-svg\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPlanCommand(t *testing.T) {
	t.Setenv(config.VarBindgenCommand, "")
	pkg := t.TempDir()
	out := filepath.Join(pkg, "out")
	got := execute(t, "plan",
		"--target", "x86_64-unknown-none",
		"--features", "svg",
		"--package-dir", pkg,
		"--out-dir", out,
		"--force-build",
	)
	var bp buildPlan
	if err := yaml.Unmarshal([]byte(got), &bp); err != nil {
		t.Fatalf("invalid plan %s: %v", got, err)
	}
	if bp.Decision != "built-from-source" || bp.Platform != "generic" || bp.OutDir != out {
		t.Errorf("got %+v", bp)
	}
	if bp.SourceDir != filepath.Join(pkg, "skia") {
		t.Errorf("source_dir = %q", bp.SourceDir)
	}
	found := false
	for _, a := range bp.GNArgs {
		if a == `target_cpu="x64"` {
			found = true
		}
	}
	if !found {
		t.Errorf("target_cpu missing from %v", bp.GNArgs)
	}
	for _, f := range bp.Files {
		if f == binaries.BindingsFile {
			t.Errorf("%s listed without a binding generator", f)
		}
	}
}

func TestPackCommand(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, binarycache.TagFile), []byte("0.1.0"), 0o644)
	os.WriteFile(filepath.Join(dir, binarycache.KeyFile), []byte("k"), 0o644)
	os.WriteFile(filepath.Join(dir, "libskia.a"), []byte("lib"), 0o644)

	outDir := t.TempDir()
	got := strings.TrimSpace(execute(t, "pack", dir, "--output", outDir))
	if want := filepath.Join(outDir, "skia-binaries-k.tar.gz"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	f, err := os.Open(got)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dest := t.TempDir()
	if err := binarycache.Unpack(f, dest, 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, key, _ := binarycache.ReadMetadata(dest); key != "k" {
		t.Errorf("key = %q", key)
	}
}

func TestDepsList(t *testing.T) {
	t.Cleanup(func() { depsList = false })
	got := execute(t, "deps", "--list", "skia")
	if !strings.Contains(got, "repo: rust-skia/skia") || strings.Contains(got, "depot_tools") {
		t.Errorf("got %s", got)
	}
}

func TestDepsLock(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	t.Cleanup(func() { depsLock = false })
	pkg := t.TempDir()
	git := filepath.Join(t.TempDir(), "git")
	script := "#!/bin/sh\nprintf '160000 commit 0123abc\\t%s\\n' \"$4\"\n"
	if err := os.WriteFile(git, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.VarGitCommand, git)

	got := strings.TrimSpace(execute(t, "deps", "--lock", "--package-dir", pkg, "skia"))
	if want := filepath.Join(pkg, deps.LockFile); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	commits, err := deps.ReadLock(pkg)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 1 || commits["skia"] != "0123abc" {
		t.Errorf("commits = %v", commits)
	}
}
