package binarycache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qiniu/x/log"
)

// DownloadError reports a failed fetch or unpack. It is recoverable unless
// the download was forced.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Downloader fetches bundles over HTTP(S) or from file:// URLs.
type Downloader struct {
	Client *http.Client
	Token  string // optional bearer token
}

// NewDownloader returns a Downloader with a default client. Redirects are
// followed by the client.
func NewDownloader(token string) *Downloader {
	return &Downloader{
		Client: &http.Client{Timeout: 10 * time.Minute},
		Token:  token,
	}
}

// Open returns the content at rawURL.
func (d *Downloader) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if p, ok := localPath(rawURL); ok {
		return os.Open(p)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if d.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Token)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

// DownloadAndUnpack fetches the bundle at rawURL and extracts it into dest,
// stripping its top-level directory. dest is recreated; on failure it is
// removed again.
func (d *Downloader) DownloadAndUnpack(ctx context.Context, rawURL, dest string) error {
	log.Infof("downloading %s", rawURL)
	if err := os.RemoveAll(dest); err != nil {
		return err
	}
	err := d.unpackTo(ctx, rawURL, dest, 1, nil)
	if err != nil {
		os.RemoveAll(dest)
		return &DownloadError{URL: rawURL, Err: err}
	}
	return nil
}

func (d *Downloader) unpackTo(ctx context.Context, rawURL, dest string, strip int, filter Filter) error {
	rc, err := d.Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer rc.Close()
	return Unpack(rc, dest, strip, filter)
}

// UnpackURL extracts the archive at rawURL into dest without clearing it.
func (d *Downloader) UnpackURL(ctx context.Context, rawURL, dest string, strip int, filter Filter) error {
	if err := d.unpackTo(ctx, rawURL, dest, strip, filter); err != nil {
		return &DownloadError{URL: rawURL, Err: err}
	}
	return nil
}

// localPath returns the file system path of file:// URLs.
func localPath(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, "file://") {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return strings.TrimPrefix(rawURL, "file://"), true
	}
	p := u.Path
	// file:///C:/dir on Windows
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), true
}
