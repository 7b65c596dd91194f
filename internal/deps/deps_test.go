package deps

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/goplus/skbuild/internal/binarycache"
	"github.com/goplus/skbuild/internal/config"
)

func TestPins(t *testing.T) {
	pins, err := Pins()
	if err != nil {
		t.Fatalf("Pins failed: %v", err)
	}
	skia, err := Find(pins, "skia")
	if err != nil {
		t.Fatal(err)
	}
	if skia.Repo != "rust-skia/skia" || skia.Path != "skia" || skia.Commit != "" {
		t.Errorf("got %+v", skia)
	}
	if _, err := Find(pins, "depot_tools"); err != nil {
		t.Error(err)
	}
}

func TestParsePinsInvalid(t *testing.T) {
	tests := []string{
		"dependencies: [",
		"dependencies:\n  - name: skia\n    repo: a/b\n",
	}
	for _, data := range tests {
		if _, err := ParsePins([]byte(data)); err == nil {
			t.Errorf("ParsePins(%q): expected error, got nil", data)
		}
	}
}

func TestArchiveURL(t *testing.T) {
	d := Dependency{Repo: "rust-skia/skia", Commit: "abc"}
	if got := d.ArchiveURL(DefaultArchiveBase + "/"); got != "https://codeload.github.com/rust-skia/skia/tar.gz/abc" {
		t.Errorf("got %q", got)
	}
}

func TestFilter(t *testing.T) {
	f := Dependency{Exclude: []string{"infra", "platform_tools/android/apps/"}}.Filter()
	tests := map[string]bool{
		"infra":                           false,
		"infra/bots/x":                    false,
		"infrastructure":                  true,
		"platform_tools/android/apps/a":   false,
		"platform_tools/android/BUILD.gn": true,
		"src/core/SkCanvas.cpp":           true,
	}
	for rel, want := range tests {
		if got := f(rel); got != want {
			t.Errorf("filter(%q) = %v, want %v", rel, got, want)
		}
	}
}

// archiveServer serves a snapshot of one file tree for every request.
func archiveServer(t *testing.T, files map[string]string) *httptest.Server {
	srv, _ := recordingArchiveServer(t, files)
	return srv
}

// recordingArchiveServer is archiveServer that also records the requested
// paths.
func recordingArchiveServer(t *testing.T, files map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	src := t.TempDir()
	for name, body := range files {
		p := filepath.Join(src, filepath.FromSlash(name))
		os.MkdirAll(filepath.Dir(p), 0o755)
		os.WriteFile(p, []byte(body), 0o644)
	}
	var buf bytes.Buffer
	if err := binarycache.Pack(src, "snapshot", &buf); err != nil {
		t.Fatal(err)
	}
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func newTestResolver(srv *httptest.Server, vcs VCS) *Resolver {
	return &Resolver{
		Deps: []Dependency{
			{Name: "skia", Repo: "rust-skia/skia", Commit: "abc", Path: "skia", Exclude: []string{"infra"}},
		},
		VCS:         vcs,
		Downloader:  &binarycache.Downloader{Client: srv.Client()},
		ArchiveBase: srv.URL,
	}
}

func TestResolvePopulated(t *testing.T) {
	pkg := t.TempDir()
	os.MkdirAll(filepath.Join(pkg, "skia"), 0o755)
	os.WriteFile(filepath.Join(pkg, "skia", "BUILD.gn"), nil, 0o644)

	vcs := &mockVCS{}
	r := &Resolver{Deps: []Dependency{{Name: "skia", Repo: "r", Commit: "c", Path: "skia"}}, VCS: vcs}
	if err := r.Resolve(context.Background(), pkg, false); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(vcs.calls) != 0 {
		t.Errorf("populated directory must not be fetched, got %v", vcs.calls)
	}
}

func TestResolveSubmodule(t *testing.T) {
	pkg := t.TempDir()
	vcs := &mockVCS{}
	srv := archiveServer(t, map[string]string{"BUILD.gn": "x"})
	r := newTestResolver(srv, vcs)
	if err := r.Resolve(context.Background(), pkg, false); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := [][]string{{"skia"}}; !reflect.DeepEqual(vcs.calls, want) {
		t.Errorf("calls = %v, want %v", vcs.calls, want)
	}
	if _, err := os.Stat(filepath.Join(pkg, "skia", "BUILD.gn")); !os.IsNotExist(err) {
		t.Error("archive must not be used when submodules succeed")
	}
}

func TestResolveFallsBackToArchive(t *testing.T) {
	pkg := t.TempDir()
	os.MkdirAll(filepath.Join(pkg, "skia"), 0o755) // empty submodule directory
	vcs := &mockVCS{
		submoduleUpdateFunc: func(ctx context.Context, dir string, paths ...string) error {
			return errors.New("not a git repository")
		},
	}
	srv := archiveServer(t, map[string]string{
		"BUILD.gn":     "gn",
		"infra/bots/x": "x",
	})
	r := newTestResolver(srv, vcs)
	if err := r.Resolve(context.Background(), pkg, false); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(pkg, "skia", "BUILD.gn"))
	if err != nil || string(data) != "gn" {
		t.Errorf("BUILD.gn = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(pkg, "skia", "infra")); !os.IsNotExist(err) {
		t.Error("excluded subtree was extracted")
	}
}

func TestResolvePackagedSkipsGit(t *testing.T) {
	pkg := t.TempDir()
	vcs := &mockVCS{}
	srv := archiveServer(t, map[string]string{"BUILD.gn": "gn"})
	r := newTestResolver(srv, vcs)
	if err := r.Resolve(context.Background(), pkg, true); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(vcs.calls) != 0 {
		t.Errorf("packaged resolve must not call git, got %v", vcs.calls)
	}
	if !populated(filepath.Join(pkg, "skia")) {
		t.Error("skia was not populated")
	}
	matches, _ := filepath.Glob(filepath.Join(pkg, ".skia-*"))
	if len(matches) != 0 {
		t.Errorf("staging directories left behind: %v", matches)
	}
}

func TestResolveArchiveFailure(t *testing.T) {
	pkg := t.TempDir()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	r := newTestResolver(srv, &mockVCS{})
	err := r.Resolve(context.Background(), pkg, true)
	var de *binarycache.DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DownloadError, got %v", err)
	}
	if populated(filepath.Join(pkg, "skia")) {
		t.Error("failed download must not populate the target")
	}
}

func unpinnedResolver(srv *httptest.Server, vcs VCS) *Resolver {
	r := newTestResolver(srv, vcs)
	r.Deps[0].Commit = ""
	return r
}

func TestResolveCommitFromLock(t *testing.T) {
	pkg := t.TempDir()
	if err := WriteLock(pkg, []Dependency{{Name: "skia", Repo: "rust-skia/skia", Commit: "fedcba9", Path: "skia"}}); err != nil {
		t.Fatal(err)
	}
	srv, paths := recordingArchiveServer(t, map[string]string{"BUILD.gn": "gn"})
	r := unpinnedResolver(srv, &mockVCS{})
	if err := r.Resolve(context.Background(), pkg, true); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := []string{"/rust-skia/skia/tar.gz/fedcba9"}; !reflect.DeepEqual(*paths, want) {
		t.Errorf("requests = %v, want %v", *paths, want)
	}
}

func TestResolveCommitFromCheckout(t *testing.T) {
	pkg := t.TempDir()
	vcs := &mockVCS{commits: map[string]string{"skia": "0123abc"}}
	vcs.submoduleUpdateFunc = func(ctx context.Context, dir string, paths ...string) error {
		return errors.New("network unreachable")
	}
	srv, paths := recordingArchiveServer(t, map[string]string{"BUILD.gn": "gn"})
	r := unpinnedResolver(srv, vcs)
	if err := r.Resolve(context.Background(), pkg, false); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := []string{"/rust-skia/skia/tar.gz/0123abc"}; !reflect.DeepEqual(*paths, want) {
		t.Errorf("requests = %v, want %v", *paths, want)
	}
}

func TestResolveWithoutCommit(t *testing.T) {
	srv, paths := recordingArchiveServer(t, map[string]string{"BUILD.gn": "gn"})
	r := unpinnedResolver(srv, &mockVCS{})
	err := r.Resolve(context.Background(), t.TempDir(), true)
	var me *config.MissingError
	if !errors.As(err, &me) || me.Name != LockFile {
		t.Fatalf("expected missing %s, got %v", LockFile, err)
	}
	if len(*paths) != 0 {
		t.Errorf("requests = %v, want none", *paths)
	}
}

func TestLock(t *testing.T) {
	pkg := t.TempDir()
	r := &Resolver{
		Deps: []Dependency{
			{Name: "skia", Repo: "rust-skia/skia", Path: "skia"},
			{Name: "depot_tools", Repo: "rust-skia/depot_tools", Commit: "pinned", Path: "depot_tools"},
		},
		VCS: &mockVCS{commits: map[string]string{"skia": "0123abc"}},
	}
	locked, err := r.Lock(context.Background(), pkg)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := WriteLock(pkg, locked); err != nil {
		t.Fatal(err)
	}
	commits, err := ReadLock(pkg)
	if err != nil {
		t.Fatalf("ReadLock failed: %v", err)
	}
	if want := map[string]string{"skia": "0123abc", "depot_tools": "pinned"}; !reflect.DeepEqual(commits, want) {
		t.Errorf("got %v, want %v", commits, want)
	}
	if r.Deps[0].Commit != "" {
		t.Error("Lock must not modify the resolver pins")
	}
}

func TestLockOutsideCheckout(t *testing.T) {
	r := &Resolver{
		Deps: []Dependency{{Name: "skia", Repo: "rust-skia/skia", Path: "skia"}},
		VCS:  &mockVCS{},
	}
	if _, err := r.Lock(context.Background(), t.TempDir()); err == nil {
		t.Error("expected error without a recorded submodule commit")
	}
}
