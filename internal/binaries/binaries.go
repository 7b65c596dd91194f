// Package binaries describes the artifacts a build produces and the link
// directives handed to the host build system.
package binaries

import (
	"path/filepath"
	"strings"

	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/platform"
	"github.com/goplus/skbuild/internal/target"
)

const (
	// CoreLibrary is always built.
	CoreLibrary = "skia"

	// BindingsFile is the foreign-declaration file produced by the binding generator.
	BindingsFile = "bindings.go"

	// ICUDataFile is shipped next to the libraries when ICU data is not compiled in.
	ICUDataFile = "icudtl.dat"
)

// Configuration is the output-facing view of a build.
type Configuration struct {
	FeatureIDs      []string
	OutputDirectory string
	LinkLibraries   []string
	BuiltLibraries  []string
	BindingFiles    []string
	AdditionalFiles []string
	Debug           bool

	target target.Target
}

// New derives the binaries configuration of cfg for policy p.
func New(cfg *config.Build, p platform.Policy, outDir string) *Configuration {
	f := cfg.Features
	c := &Configuration{
		FeatureIDs:      f.IDs(),
		OutputDirectory: outDir,
		LinkLibraries:   p.LinkLibraries(f),
		BuiltLibraries:  BuiltLibraries(f),
		BindingFiles:    []string{BindingsFile},
		Debug:           cfg.Debug,
		target:          cfg.Target,
	}
	if f.Contains(features.EmbedICUData) {
		c.AdditionalFiles = append(c.AdditionalFiles, ICUDataFile)
	}
	return c
}

// BuiltLibraries returns the native libraries built for f, core first.
func BuiltLibraries(f features.Set) []string {
	libs := []string{CoreLibrary}
	if f.Contains(features.TextLayout) {
		libs = append(libs, "skshaper", "skparagraph", "skunicode_core", "skunicode_icu")
	}
	if f.Contains(features.SVG) {
		libs = append(libs, "svg", "skresources")
	}
	return libs
}

// StaticLibName returns the platform file name of static library name.
func StaticLibName(t target.Target, name string) string {
	if t.IsMSVC() {
		return name + ".lib"
	}
	return "lib" + name + ".a"
}

// LibraryFiles returns the file names of the built libraries.
func (c *Configuration) LibraryFiles() []string {
	files := make([]string, len(c.BuiltLibraries))
	for i, name := range c.BuiltLibraries {
		files[i] = StaticLibName(c.target, name)
	}
	return files
}

// Files returns every file the output directory is expected to hold,
// relative to it.
func (c *Configuration) Files() []string {
	files := c.LibraryFiles()
	files = append(files, c.BindingFiles...)
	return append(files, c.AdditionalFiles...)
}

// Directives returns the host build directives: the search path, then the
// built static libraries, then system libraries. The order matters to
// single-pass linkers.
func (c *Configuration) Directives() []string {
	ds := []string{"link-search=native=" + filepath.Clean(c.OutputDirectory)}
	for _, lib := range c.BuiltLibraries {
		ds = append(ds, "link-lib=static="+lib)
	}
	for _, lib := range c.LinkLibraries {
		ds = append(ds, "link-lib="+systemLibKind(lib))
	}
	return ds
}

// LDFlags returns the directives as linker flags, e.g. for #cgo LDFLAGS.
func (c *Configuration) LDFlags() []string {
	flags := []string{"-L" + filepath.Clean(c.OutputDirectory)}
	for _, lib := range c.BuiltLibraries {
		flags = append(flags, "-l"+lib)
	}
	for _, lib := range c.LinkLibraries {
		kind, name, ok := strings.Cut(lib, "=")
		switch {
		case ok && kind == "framework":
			flags = append(flags, "-framework", name)
		case ok:
			flags = append(flags, "-l"+name)
		default:
			flags = append(flags, "-l"+lib)
		}
	}
	return flags
}

// systemLibKind keeps explicit kinds ("framework=Metal", "static=c++_static")
// and marks the rest as dynamic.
func systemLibKind(lib string) string {
	if strings.Contains(lib, "=") {
		return lib
	}
	return "dylib=" + lib
}
