package platform

import (
	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/features"
	"github.com/goplus/skbuild/internal/gn"
	"github.com/goplus/skbuild/internal/target"
)

// Generic is the fallback policy for targets without a dedicated one.
type Generic struct {
	host target.Target
}

func NewGeneric(host target.Target) *Generic {
	return &Generic{host: host}
}

func (g *Generic) Name() string { return "generic" }

func (g *Generic) FilterFeatures(useSystemLibraries bool, f features.Set) features.Set {
	return f
}

func (g *Generic) GNArgs(cfg *config.Build, args *gn.Args) error {
	if cfg.CrossCompiling() {
		args.Set("target_os", gnOS(cfg.Target))
	}
	return nil
}

func (g *Generic) CompilerFlags(cfg *config.Build) ([]string, error) {
	return crossTargetFlags(cfg.Target, g.host), nil
}

func (g *Generic) LinkLibraries(f features.Set) []string {
	return []string{"stdc++"}
}

func (g *Generic) BindgenArgs(t target.Target) ([]string, error) {
	return crossTargetFlags(t, g.host), nil
}
