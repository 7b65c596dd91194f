package binarycache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goplus/skbuild/internal/config"
	"github.com/qiniu/x/log"
)

// Plan describes one download attempt.
type Plan struct {
	Tag  string
	Key  string
	URL  string
	Hash string
}

// ArchiveRoot is the single top-level directory of a bundle.
func ArchiveRoot(key string) string {
	return "skia-binaries-" + key
}

// ArchiveName is the file name of a bundle.
func ArchiveName(key string) string {
	return ArchiveRoot(key) + ".tar.gz"
}

// BuildKey computes the cache key of cfg for repository hash.
func BuildKey(hash string, cfg *config.Build) string {
	return Key(hash, cfg.Target, cfg.Features.IDs(), cfg.StaticRuntime, cfg.Debug)
}

// ExpandURL substitutes {tag} and {key} in template.
func ExpandURL(template, tag, key string) string {
	return strings.NewReplacer("{tag}", tag, "{key}", key).Replace(template)
}

// HashFunc returns the repository hash of dir.
type HashFunc func(ctx context.Context, dir string) (string, error)

// ShouldAttemptDownload returns a plan when a download is forced or when
// running as a packaged consumer. Builds from a plain checkout return nil.
// A forced download outside a package keys the bundle with checkout, or with
// CheckoutHash when checkout is nil.
func ShouldAttemptDownload(ctx context.Context, cfg *config.Build, opts *config.Options, force bool, checkout HashFunc) (*Plan, error) {
	hash, err := PackagedHash(opts.PackageDir)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotPackaged):
		if !force {
			log.Debugf("%s not found, not a packaged build; no download", VCSInfoFile)
			return nil, nil
		}
		if checkout == nil {
			checkout = CheckoutHash
		}
		if hash, err = checkout(ctx, opts.PackageDir); err != nil {
			return nil, fmt.Errorf("forced download needs a repository hash: %w", err)
		}
	default:
		return nil, err
	}
	key := BuildKey(hash, cfg)
	tag := config.PackageVersion
	return &Plan{
		Tag:  tag,
		Key:  key,
		URL:  ExpandURL(opts.BinariesURL, tag, key),
		Hash: hash,
	}, nil
}
