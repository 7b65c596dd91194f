package binarycache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/skbuild/internal/binaries"
	"github.com/qiniu/x/log"
)

// Metadata files at the top of a bundle.
const (
	TagFile = "tag.txt"
	KeyFile = "key.txt"
)

// CopyError reports a failed copy during export.
type CopyError struct {
	Src string
	Dst string
	Err error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.Src, e.Dst, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// Export copies the files of c into a fresh stagingDir/skia-binaries-<key>
// directory and writes tag.txt and key.txt next to them. It returns the
// export directory, ready to be archived.
func Export(c *binaries.Configuration, tag, key, stagingDir string) (string, error) {
	dir := filepath.Join(stagingDir, ArchiveRoot(key))
	if err := os.RemoveAll(dir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	for _, f := range c.Files() {
		src := filepath.Join(c.OutputDirectory, f)
		dst := filepath.Join(dir, f)
		if err := copyFile(src, dst); err != nil {
			return "", &CopyError{Src: src, Dst: dst, Err: err}
		}
	}
	for name, content := range map[string]string{TagFile: tag, KeyFile: key} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	log.Infof("exported %s", dir)
	return dir, nil
}

// ReadMetadata returns the tag and key recorded in a bundle directory.
func ReadMetadata(dir string) (tag, key string, err error) {
	t, err := os.ReadFile(filepath.Join(dir, TagFile))
	if err != nil {
		return "", "", err
	}
	k, err := os.ReadFile(filepath.Join(dir, KeyFile))
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(string(t)), strings.TrimSpace(string(k)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if dfi, err := os.Stat(dst); err == nil && os.SameFile(fi, dfi) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyFiles copies files (relative names) from srcDir to dstDir.
func CopyFiles(srcDir, dstDir string, files []string) error {
	for _, f := range files {
		src := filepath.Join(srcDir, f)
		dst := filepath.Join(dstDir, f)
		if err := copyFile(src, dst); err != nil {
			return &CopyError{Src: src, Dst: dst, Err: err}
		}
	}
	return nil
}
