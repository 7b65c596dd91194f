package internal

import (
	"context"

	"github.com/goplus/skbuild/internal/binaries"
	"github.com/goplus/skbuild/internal/binarycache"
	"github.com/goplus/skbuild/internal/engine"
	"github.com/goplus/skbuild/internal/platform"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what build would do, without doing it",
	Long: `Plan prints the resolved build configuration, the branch the build would
take and the gn arguments of a from-source build as YAML.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	addBuildFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

type buildPlan struct {
	Target     string   `yaml:"target"`
	Host       string   `yaml:"host"`
	Platform   string   `yaml:"platform"`
	Features   []string `yaml:"features"`
	Debug      bool     `yaml:"debug"`
	Decision   string   `yaml:"decision"`
	Key        string   `yaml:"key,omitempty"`
	URL        string   `yaml:"url,omitempty"`
	SourceDir  string   `yaml:"source_dir,omitempty"`
	OutDir     string   `yaml:"out_dir"`
	Files      []string `yaml:"files"`
	GNArgs     []string `yaml:"gn_args,omitempty"`
	Directives []string `yaml:"directives"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	e, cfg, opts, err := load(cmd, buildOverrides(cmd))
	if err != nil {
		return err
	}
	p := platform.For(cfg, e)
	platform.Prepare(cfg, p)
	bc := binaries.New(cfg, p, opts.OutDir)
	if opts.BindgenCommand == "" {
		bc.BindingFiles = nil
	}

	bp := &buildPlan{
		Target:     cfg.Target.String(),
		Host:       cfg.Host.String(),
		Platform:   p.Name(),
		Features:   cfg.Features.IDs(),
		Debug:      cfg.Debug,
		OutDir:     opts.OutDir,
		Files:      bc.Files(),
		Directives: bc.Directives(),
	}
	switch {
	case opts.LibrarySearchPath != "":
		bp.Decision = engine.BindExternal.String()
	case opts.SourceDir != "":
		bp.Decision = engine.BuildFromSourceOffline.String()
		bp.SourceDir = opts.SourceDir
	default:
		bp.Decision = engine.BuiltFromSource.String()
		bp.SourceDir = engine.SourceDir(opts)
		if !opts.ForceBuild {
			plan, err := binarycache.ShouldAttemptDownload(context.Background(), cfg, opts, opts.ForceDownload, nil)
			if err != nil {
				return err
			}
			if plan != nil {
				bp.Decision = engine.Downloaded.String()
				bp.Key, bp.URL = plan.Key, plan.URL
			}
		}
	}
	if bp.Decision != engine.BindExternal.String() {
		a, err := platform.GNArgs(cfg, p, platform.Overrides{CC: opts.CC, CXX: opts.CXX, GNArgs: opts.GNArgs})
		if err != nil {
			return err
		}
		bp.GNArgs = a.List()
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(bp); err != nil {
		return err
	}
	return enc.Close()
}
