package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/goplus/skbuild/internal/binaries"
	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/platform"
	"github.com/qiniu/x/log"
)

// BindingRequest is what the binding generator is told about a build.
type BindingRequest struct {
	Target    string   `json:"target"`
	Features  []string `json:"features"`
	Debug     bool     `json:"debug"`
	OutDir    string   `json:"out_dir"`
	Output    string   `json:"output"`
	SourceDir string   `json:"source_dir,omitempty"`
	Sysroot   string   `json:"sysroot,omitempty"`
	Args      []string `json:"args,omitempty"`
}

// BindingGenerator produces the foreign declarations of a build.
type BindingGenerator interface {
	Generate(ctx context.Context, req *BindingRequest) error
}

// CommandGenerator runs an external command and passes the request as JSON
// on its standard input. Command is the executable path and is not split.
type CommandGenerator struct {
	Command string
	Args    []string
}

func (g *CommandGenerator) Generate(ctx context.Context, req *BindingRequest) error {
	if strings.TrimSpace(g.Command) == "" {
		return config.Missing(config.VarBindgenCommand, "binding generator command is empty")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, g.Command, g.Args...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	log.Debugf("%s %s < %s", g.Command, strings.Join(g.Args, " "), data)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("binding generator: %w", err)
	}
	return nil
}

func (e *Engine) generateBindings(ctx context.Context, cfg *config.Build, p platform.Policy, bc *binaries.Configuration, srcDir string) error {
	if e.Bindings == nil {
		log.Debugf("no binding generator configured")
		return nil
	}
	args, err := p.BindgenArgs(cfg.Target)
	if err != nil {
		return err
	}
	req := &BindingRequest{
		Target:    cfg.Target.String(),
		Features:  cfg.Features.IDs(),
		Debug:     cfg.Debug,
		OutDir:    bc.OutputDirectory,
		Output:    filepath.Join(bc.OutputDirectory, binaries.BindingsFile),
		SourceDir: srcDir,
		Args:      args,
	}
	if s, ok := p.(platform.Sysrooter); ok {
		if req.Sysroot, err = s.Sysroot(); err != nil {
			return err
		}
	}
	return e.Bindings.Generate(ctx, req)
}
