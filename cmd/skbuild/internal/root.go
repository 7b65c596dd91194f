package internal

import (
	"strings"

	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/features"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	flagTarget   string
	flagFeatures []string
	flagDebug    bool
	flagOutDir   string
	flagPkgDir   string
)

var rootCmd = &cobra.Command{
	Use:   "skbuild",
	Short: "skbuild builds or fetches the native skia libraries",
	Long: `skbuild builds the native skia libraries for a target, or downloads a
prebuilt bundle matching the build configuration, and prints the link
directives for the host build system.

Configuration is read from the environment (TARGET, SKIA_FEATURES, OUT_DIR,
...); flags take precedence over it.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetOutputLevel(log.Ldebug)
		} else {
			log.SetOutputLevel(log.Linfo)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringVarP(&flagTarget, "target", "t", "", "Target triple (overrides "+config.VarTarget+")")
	pf.StringSliceVarP(&flagFeatures, "features", "f", nil, "Features to enable (overrides "+features.ListVar+")")
	pf.BoolVar(&flagDebug, "debug", false, "Debug build (overrides "+config.VarDebug+")")
	pf.StringVarP(&flagOutDir, "out-dir", "o", "", "Output directory (overrides "+config.VarOutDir+")")
	pf.StringVar(&flagPkgDir, "package-dir", "", "Package directory (overrides "+config.VarPackageDir+")")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}

// environment returns the process environment with extra and the flags set
// on cmd layered on top.
func environment(cmd *cobra.Command, extra env.Map) env.Env {
	over := env.Map{}
	for k, v := range extra {
		over[k] = v
	}
	flags := cmd.Flags()
	if flags.Changed("target") {
		over[config.VarTarget] = flagTarget
	}
	if flags.Changed("features") {
		over[features.ListVar] = strings.Join(flagFeatures, ",")
	}
	if flags.Changed("debug") {
		over[config.VarDebug] = "0"
		if flagDebug {
			over[config.VarDebug] = "1"
		}
	}
	if flags.Changed("out-dir") {
		over[config.VarOutDir] = flagOutDir
	}
	if flags.Changed("package-dir") {
		over[config.VarPackageDir] = flagPkgDir
	}
	return env.Overlay(env.OS(), over)
}

// load reads the build configuration and decision inputs of cmd.
func load(cmd *cobra.Command, extra env.Map) (env.Env, *config.Build, *config.Options, error) {
	e := environment(cmd, extra)
	cfg, err := config.FromEnvironment(e)
	if err != nil {
		return nil, nil, nil, err
	}
	opts, err := config.OptionsFromEnvironment(e, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return e, cfg, opts, nil
}
