// Package gn drives the gn meta-build generator and the ninja executor.
package gn

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/qiniu/x/log"
)

// Args collects gn build arguments. Rendering is sorted by key so identical
// configurations produce identical command lines.
type Args struct {
	values map[string]string
}

// NewArgs returns an empty argument set.
func NewArgs() *Args {
	return &Args{values: make(map[string]string)}
}

// Set adds key="value".
func (a *Args) Set(key, value string) { a.values[key] = quote(value) }

// SetBool adds key=true/false.
func (a *Args) SetBool(key string, value bool) { a.values[key] = strconv.FormatBool(value) }

// SetInt adds key=value.
func (a *Args) SetInt(key string, value int) { a.values[key] = strconv.Itoa(value) }

// SetList adds key=["v1","v2"].
func (a *Args) SetList(key string, values ...string) {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	a.values[key] = "[" + strings.Join(quoted, ",") + "]"
}

// AppendList appends to a list previously set with SetList.
func (a *Args) AppendList(key string, values ...string) {
	if len(values) == 0 {
		return
	}
	cur, ok := a.values[key]
	if !ok || cur == "[]" {
		a.SetList(key, values...)
		return
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	a.values[key] = strings.TrimSuffix(cur, "]") + "," + strings.Join(quoted, ",") + "]"
}

// SetRaw adds key=value without quoting.
func (a *Args) SetRaw(key, value string) { a.values[key] = value }

// Get returns the rendered value of key.
func (a *Args) Get(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

// ParseOverrides applies "k=v;k=v" pairs verbatim. Empty segments are ignored.
func (a *Args) ParseOverrides(s string) error {
	for _, kv := range strings.Split(s, ";") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("invalid gn argument %q, expected key=value", kv)
		}
		a.SetRaw(k, strings.TrimSpace(v))
	}
	return nil
}

// List returns the arguments as sorted key=value strings.
func (a *Args) List() []string {
	if len(a.values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(a.values))
	for k := range a.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, k+"="+a.values[k])
	}
	return args
}

// String renders the arguments the way gn --args expects them.
func (a *Args) String() string {
	return strings.Join(a.List(), " ")
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, `$`, `\$`)
	return `"` + s + `"`
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands with os/exec, forwarding output to the process.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	log.Debugf("run (in %s): %s %s", dir, name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Tool invokes gn and ninja for one output directory.
type Tool struct {
	GN     string
	Ninja  string
	Runner Runner
}

// Generate runs "gn gen <outDir> --args=<args>" in sourceDir.
func (t *Tool) Generate(ctx context.Context, sourceDir, outDir string, args *Args) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	return t.runner().Run(ctx, sourceDir, t.gn(), "gen", outDir, "--args="+args.String())
}

// Build runs "ninja -C <outDir> <targets...>".
func (t *Tool) Build(ctx context.Context, sourceDir, outDir string, targets ...string) error {
	ninjaArgs := append([]string{"-C", outDir}, targets...)
	return t.runner().Run(ctx, sourceDir, t.ninja(), ninjaArgs...)
}

func (t *Tool) gn() string {
	if t.GN != "" {
		return t.GN
	}
	return "gn"
}

func (t *Tool) ninja() string {
	if t.Ninja != "" {
		return t.Ninja
	}
	return "ninja"
}

func (t *Tool) runner() Runner {
	if t.Runner != nil {
		return t.Runner
	}
	return ExecRunner{}
}
