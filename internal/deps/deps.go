// Package deps makes the native sources available: the skia tree and the
// tools its build needs.
package deps

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/skbuild/internal/binarycache"
	"github.com/goplus/skbuild/internal/config"
	"github.com/qiniu/x/log"
	"gopkg.in/yaml.v3"
)

// DefaultArchiveBase serves tar.gz snapshots of GitHub repositories.
const DefaultArchiveBase = "https://codeload.github.com"

// LockFile records the dependency commits of a published package.
const LockFile = "deps.lock.yaml"

//go:embed deps.yaml
var pinsYAML []byte

// Dependency is one pinned source tree.
type Dependency struct {
	Name    string   `yaml:"name"`
	Repo    string   `yaml:"repo"`
	Commit  string   `yaml:"commit,omitempty"`
	Path    string   `yaml:"path"`
	Exclude []string `yaml:"exclude"`
}

type pinFile struct {
	Dependencies []Dependency `yaml:"dependencies"`
}

// Pins returns the dependencies pinned by this package.
func Pins() ([]Dependency, error) {
	return ParsePins(pinsYAML)
}

// ParsePins parses a pin file. Commits are optional.
func ParsePins(data []byte) ([]Dependency, error) {
	var f pinFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pins: %w", err)
	}
	for i, d := range f.Dependencies {
		if d.Name == "" || d.Repo == "" || d.Path == "" {
			return nil, fmt.Errorf("pin %d: name, repo and path are required", i)
		}
	}
	return f.Dependencies, nil
}

// ReadLock returns the commits recorded in the lock file of pkgDir by
// dependency name. A missing lock file yields an empty map.
func ReadLock(pkgDir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(pkgDir, LockFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	locked, err := ParsePins(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LockFile, err)
	}
	commits := make(map[string]string, len(locked))
	for _, d := range locked {
		if d.Commit != "" {
			commits[d.Name] = d.Commit
		}
	}
	return commits, nil
}

// WriteLock writes deps into the lock file of pkgDir.
func WriteLock(pkgDir string, deps []Dependency) error {
	data, err := yaml.Marshal(&pinFile{Dependencies: deps})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(pkgDir, LockFile), data, 0o644)
}

// ArchiveURL returns the snapshot URL of d under base.
func (d Dependency) ArchiveURL(base string) string {
	return strings.TrimSuffix(base, "/") + "/" + d.Repo + "/tar.gz/" + d.Commit
}

// Filter drops the excluded subtrees of d.
func (d Dependency) Filter() binarycache.Filter {
	return func(rel string) bool {
		for _, ex := range d.Exclude {
			ex = strings.Trim(ex, "/")
			if rel == ex || strings.HasPrefix(rel, ex+"/") {
				return false
			}
		}
		return true
	}
}

// Resolver populates dependency directories below a package directory.
type Resolver struct {
	Deps        []Dependency
	VCS         VCS
	Downloader  *binarycache.Downloader
	ArchiveBase string
}

// NewResolver returns a resolver for the embedded pins.
func NewResolver(opts ...GitOption) (*Resolver, error) {
	pins, err := Pins()
	if err != nil {
		return nil, err
	}
	return &Resolver{
		Deps:        pins,
		VCS:         NewGitVCS(opts...),
		Downloader:  binarycache.NewDownloader(""),
		ArchiveBase: DefaultArchiveBase,
	}, nil
}

// Resolve makes every dependency directory below pkgDir available.
// Populated directories are left alone. A packaged consumer has no git
// metadata and always downloads archives; a checkout tries the submodules
// first and falls back to archives.
func (r *Resolver) Resolve(ctx context.Context, pkgDir string, packaged bool) error {
	var pending []Dependency
	for _, d := range r.Deps {
		if populated(filepath.Join(pkgDir, d.Path)) {
			log.Debugf("%s: %s already populated", d.Name, d.Path)
			continue
		}
		pending = append(pending, d)
	}
	if len(pending) == 0 {
		return nil
	}

	if !packaged {
		paths := make([]string, len(pending))
		for i, d := range pending {
			paths[i] = d.Path
		}
		err := r.VCS.SubmoduleUpdate(ctx, pkgDir, paths...)
		if err == nil {
			return nil
		}
		log.Warnf("%v; downloading archives instead", err)
	}

	lock, err := ReadLock(pkgDir)
	if err != nil {
		return err
	}
	for _, d := range pending {
		if populated(filepath.Join(pkgDir, d.Path)) {
			continue
		}
		if d.Commit, err = r.commit(ctx, pkgDir, d, lock, packaged); err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		if err := r.fetchArchive(ctx, pkgDir, d); err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
	}
	return nil
}

// Lock returns the dependencies with the commits the checkout at pkgDir
// records for them.
func (r *Resolver) Lock(ctx context.Context, pkgDir string) ([]Dependency, error) {
	locked := make([]Dependency, len(r.Deps))
	for i, d := range r.Deps {
		if d.Commit == "" {
			c, err := r.VCS.SubmoduleCommit(ctx, pkgDir, d.Path)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", d.Name, err)
			}
			d.Commit = c
		}
		locked[i] = d
	}
	return locked, nil
}

// commit picks the archive commit of d: its own pin, the lock file, then the
// gitlink of a checkout.
func (r *Resolver) commit(ctx context.Context, pkgDir string, d Dependency, lock map[string]string, packaged bool) (string, error) {
	if d.Commit != "" {
		return d.Commit, nil
	}
	if c := lock[d.Name]; c != "" {
		return c, nil
	}
	if !packaged {
		c, err := r.VCS.SubmoduleCommit(ctx, pkgDir, d.Path)
		if err == nil {
			return c, nil
		}
		log.Debugf("%s: %v", d.Name, err)
	}
	return "", config.Missing(LockFile, "no commit recorded for "+d.Name+"; run skbuild deps --lock in a checkout")
}

// fetchArchive unpacks the snapshot of d into a staging directory next to
// its target and renames it into place.
func (r *Resolver) fetchArchive(ctx context.Context, pkgDir string, d Dependency) error {
	dir := filepath.Join(pkgDir, d.Path)
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(filepath.Dir(dir), "."+filepath.Base(dir)+"-*")
	if err != nil {
		return err
	}
	base := r.ArchiveBase
	if base == "" {
		base = DefaultArchiveBase
	}
	url := d.ArchiveURL(base)
	log.Infof("%s: downloading %s", d.Name, url)
	if err := r.downloader().UnpackURL(ctx, url, staging, 1, d.Filter()); err != nil {
		os.RemoveAll(staging)
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		os.RemoveAll(staging)
		return err
	}
	if err := os.Rename(staging, dir); err != nil {
		os.RemoveAll(staging)
		return err
	}
	return nil
}

func (r *Resolver) downloader() *binarycache.Downloader {
	if r.Downloader != nil {
		return r.Downloader
	}
	return binarycache.NewDownloader("")
}

// populated reports whether dir exists and holds anything. Uninitialized
// submodules leave an empty directory behind.
func populated(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// Find returns the pin named name.
func Find(pins []Dependency, name string) (Dependency, error) {
	for _, d := range pins {
		if d.Name == name {
			return d, nil
		}
	}
	return Dependency{}, errors.New("no pinned dependency " + name)
}
