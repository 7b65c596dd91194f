package platform

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// LibProber resolves pkg-config package names to linker library names.
type LibProber interface {
	Libs(pkgs ...string) ([]string, error)
}

// PkgConfig probes libraries with "pkg-config --libs-only-l".
type PkgConfig struct {
	Command string // defaults to "pkg-config"
}

func (p PkgConfig) Libs(pkgs ...string) ([]string, error) {
	name := p.Command
	if name == "" {
		name = "pkg-config"
	}
	cmd := exec.Command(name, append([]string{"--libs-only-l"}, pkgs...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %s", name, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return parseLibs(stdout.String()), nil
}

// parseLibs extracts library names from "-lfoo -lbar" output.
func parseLibs(out string) []string {
	var libs []string
	seen := make(map[string]bool)
	for _, f := range strings.Fields(out) {
		lib, ok := strings.CutPrefix(f, "-l")
		if !ok || lib == "" || seen[lib] {
			continue
		}
		seen[lib] = true
		libs = append(libs, lib)
	}
	return libs
}
