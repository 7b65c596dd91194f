package binarycache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// VCSInfoFile is written into published packages and records the commit the
// package was built from. Its presence marks a packaged consumer.
const VCSInfoFile = ".vcs_info.json"

// ShortHashLen is the length of the repository hash used in keys.
const ShortHashLen = 7

// ErrNotPackaged is returned by PackagedHash outside a published package.
var ErrNotPackaged = errors.New("not a packaged build")

type vcsInfo struct {
	Git struct {
		SHA1 string `json:"sha1"`
	} `json:"git"`
	PathInVCS string `json:"path_in_vcs,omitempty"`
}

// PackagedHash returns the short commit hash recorded in pkgDir/.vcs_info.json.
func PackagedHash(pkgDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(pkgDir, VCSInfoFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotPackaged
		}
		return "", err
	}
	var info vcsInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("parse %s: %w", VCSInfoFile, err)
	}
	return shorten(info.Git.SHA1)
}

// WritePackagedHash records sha1 in pkgDir/.vcs_info.json.
func WritePackagedHash(pkgDir, sha1 string) error {
	var info vcsInfo
	info.Git.SHA1 = sha1
	data, err := json.MarshalIndent(&info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(pkgDir, VCSInfoFile), data, 0o644)
}

// CheckoutHash returns the short HEAD hash of the git checkout containing dir.
func CheckoutHash(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git rev-parse: %s", msg)
		}
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return shorten(strings.TrimSpace(stdout.String()))
}

func shorten(sha1 string) (string, error) {
	if len(sha1) < ShortHashLen {
		return "", fmt.Errorf("invalid commit hash %q", sha1)
	}
	return sha1[:ShortHashLen], nil
}
