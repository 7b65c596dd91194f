package binarycache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownloadAndUnpackFileURL(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := os.WriteFile(archive, tarGz(t, entry{name: "root/libskia.a", body: "lib"}), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "out")
	os.MkdirAll(dest, 0o755)
	os.WriteFile(filepath.Join(dest, "stale"), []byte("old"), 0o644)

	d := NewDownloader("")
	if err := d.DownloadAndUnpack(context.Background(), "file://"+filepath.ToSlash(archive), dest); err != nil {
		t.Fatalf("DownloadAndUnpack failed: %v", err)
	}
	if got := readFile(t, filepath.Join(dest, "libskia.a")); got != "lib" {
		t.Errorf("libskia.a = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dest, "stale")); !os.IsNotExist(err) {
		t.Error("destination was not cleared before unpacking")
	}
}

func TestDownloadAndUnpackHTTP(t *testing.T) {
	data := tarGz(t, entry{name: "root/libskia.a", body: "lib"})
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/bundle", http.StatusFound)
			return
		}
		auth = r.Header.Get("Authorization")
		w.Write(data)
	}))
	defer srv.Close()

	dest := t.TempDir()
	d := &Downloader{Client: srv.Client(), Token: "secret"}
	if err := d.DownloadAndUnpack(context.Background(), srv.URL+"/redirect", dest); err != nil {
		t.Fatalf("DownloadAndUnpack failed: %v", err)
	}
	if got := readFile(t, filepath.Join(dest, "libskia.a")); got != "lib" {
		t.Errorf("libskia.a = %q", got)
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer secret")
	}
}

func TestDownloadAndUnpackStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out")
	d := &Downloader{Client: srv.Client()}
	err := d.DownloadAndUnpack(context.Background(), srv.URL+"/missing.tar.gz", dest)
	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DownloadError, got %v", err)
	}
	if de.URL != srv.URL+"/missing.tar.gz" {
		t.Errorf("URL = %q", de.URL)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("partial destination left behind")
	}
}

func TestDownloadAndUnpackCorrupt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x1f, 0x8b, 0, 0})
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out")
	d := &Downloader{Client: srv.Client()}
	if err := d.DownloadAndUnpack(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected error for corrupt archive, got nil")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("partial destination left behind")
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"file:///tmp/a.tar.gz", filepath.FromSlash("/tmp/a.tar.gz"), true},
		{"https://example.com/a.tar.gz", "", false},
		{"file:///C:/b/a.tar.gz", filepath.FromSlash("C:/b/a.tar.gz"), true},
	}
	for _, tt := range tests {
		got, ok := localPath(tt.url)
		if got != tt.want || ok != tt.ok {
			t.Errorf("localPath(%q) = %q, %v, want %q, %v", tt.url, got, ok, tt.want, tt.ok)
		}
	}
}
