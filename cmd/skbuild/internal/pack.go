package internal

import (
	"fmt"
	"path/filepath"

	"github.com/goplus/skbuild/internal/binarycache"
	"github.com/goplus/skbuild/internal/env"
	"github.com/spf13/cobra"
)

var packOutput string

var packCmd = &cobra.Command{
	Use:   "pack <export-dir>",
	Short: "Pack an exported directory into a bundle",
	Long: `Pack archives a directory written by export as
skia-binaries-<key>.tar.gz. The key is read from its key.txt.`,
	Args: cobra.ExactArgs(1),
	RunE: runPack,
}

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "O", "", "Directory receiving the bundle (default: <cache>/.skbuild/bundles/<tag>)")
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	dir := args[0]
	tag, key, err := binarycache.ReadMetadata(dir)
	if err != nil {
		return fmt.Errorf("%s is not an exported directory: %w", dir, err)
	}
	outDir := packOutput
	if outDir == "" {
		workDir, err := env.WorkDir()
		if err != nil {
			return err
		}
		outDir = filepath.Join(workDir, "bundles", tag)
	}
	archive := filepath.Join(outDir, binarycache.ArchiveName(key))
	if err := binarycache.PackFile(dir, binarycache.ArchiveRoot(key), archive); err != nil {
		return fmt.Errorf("failed to pack: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), archive)
	return nil
}
