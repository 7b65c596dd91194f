package internal

import (
	"context"
	"fmt"

	"github.com/goplus/skbuild/internal/binaries"
	"github.com/goplus/skbuild/internal/binarycache"
	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/platform"
	"github.com/spf13/cobra"
)

var exportHash string

var exportCmd = &cobra.Command{
	Use:   "export <staging-dir>",
	Short: "Export the artifacts of the output directory",
	Long: `Export copies the libraries, the bindings and the additional files of the
output directory into <staging-dir>/skia-binaries-<key>, next to tag.txt and
key.txt, ready to be packed.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportHash, "hash", "", "Repository hash (default: from the package or checkout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	e, cfg, opts, err := load(cmd, nil)
	if err != nil {
		return err
	}
	key, err := cacheKey(context.Background(), e, cfg, opts, exportHash)
	if err != nil {
		return err
	}
	bc := binaries.New(cfg, platform.For(cfg, e), opts.OutDir)
	dir, err := binarycache.Export(bc, config.PackageVersion, key, args[0])
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), dir)
	return nil
}
