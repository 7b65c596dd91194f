package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/engine"
	"github.com/goplus/skbuild/internal/env"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var (
	buildForce         bool
	buildForceDownload bool
	buildSourceDir     string
	buildLibraryPath   string
	buildStaging       string
	buildLDFlags       bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or download the native libraries",
	Long: `Build binds prebuilt libraries from a search path, builds from a source
directory, or downloads the bundle matching the build configuration and
falls back to a from-source build when the download fails.

The link directives are printed to standard output, one per line.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	addBuildFlags(buildCmd)
	buildCmd.Flags().BoolVar(&buildLDFlags, "ldflags", false, "Print linker flags instead of directives")
	rootCmd.AddCommand(buildCmd)
}

// addBuildFlags registers the decision inputs shared by build and plan.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&buildForce, "force-build", false, "Always build from source ("+config.VarForceBuild+")")
	cmd.Flags().BoolVar(&buildForceDownload, "force-download", false, "Fail instead of building when the download fails ("+config.VarForceDownload+")")
	cmd.Flags().StringVar(&buildSourceDir, "source-dir", "", "Build offline from this source tree ("+config.VarSourceDir+")")
	cmd.Flags().StringVarP(&buildLibraryPath, "library-path", "L", "", "Bind prebuilt libraries from this directory ("+config.VarLibrarySearchPath+")")
	cmd.Flags().StringVar(&buildStaging, "staging", "", "Export the artifacts below this directory ("+config.VarStagingPath+")")
}

func buildOverrides(cmd *cobra.Command) env.Map {
	m := env.Map{}
	flags := cmd.Flags()
	if flags.Changed("force-build") {
		m[config.VarForceBuild] = fmt.Sprint(buildForce)
	}
	if flags.Changed("force-download") {
		m[config.VarForceDownload] = fmt.Sprint(buildForceDownload)
	}
	if flags.Changed("source-dir") {
		m[config.VarSourceDir] = buildSourceDir
	}
	if flags.Changed("library-path") {
		m[config.VarLibrarySearchPath] = buildLibraryPath
	}
	if flags.Changed("staging") {
		m[config.VarStagingPath] = buildStaging
	}
	return m
}

func runBuild(cmd *cobra.Command, args []string) error {
	e, cfg, opts, err := load(cmd, buildOverrides(cmd))
	if err != nil {
		return err
	}

	ctx := context.Background()

	eng, err := engine.New(e, opts)
	if err != nil {
		return err
	}
	res, err := eng.Run(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to build: %w", err)
	}
	if res.ExportDir != "" {
		log.Infof("artifacts exported to %s", res.ExportDir)
	}

	out := cmd.OutOrStdout()
	if buildLDFlags {
		fmt.Fprintln(out, strings.Join(res.Binaries.LDFlags(), " "))
		return nil
	}
	for _, d := range res.Binaries.Directives() {
		fmt.Fprintln(out, d)
	}
	return nil
}
