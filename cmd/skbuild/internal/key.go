package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/goplus/skbuild/internal/binarycache"
	"github.com/goplus/skbuild/internal/config"
	"github.com/goplus/skbuild/internal/env"
	"github.com/goplus/skbuild/internal/platform"
	"github.com/spf13/cobra"
)

var keyHash string

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Print the cache key of the build configuration",
	Args:  cobra.NoArgs,
	RunE:  runKey,
}

func init() {
	keyCmd.Flags().StringVar(&keyHash, "hash", "", "Repository hash (default: from the package or checkout)")
	rootCmd.AddCommand(keyCmd)
}

func runKey(cmd *cobra.Command, args []string) error {
	e, cfg, opts, err := load(cmd, nil)
	if err != nil {
		return err
	}
	key, err := cacheKey(context.Background(), e, cfg, opts, keyHash)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}

// repositoryHash returns hash if set, else the hash of the package, else the
// hash of the checkout.
func repositoryHash(ctx context.Context, opts *config.Options, hash string) (string, error) {
	if hash != "" {
		return hash, nil
	}
	hash, err := binarycache.PackagedHash(opts.PackageDir)
	if errors.Is(err, binarycache.ErrNotPackaged) {
		return binarycache.CheckoutHash(ctx, opts.PackageDir)
	}
	return hash, err
}

// cacheKey filters the features of cfg for its platform and derives the key.
func cacheKey(ctx context.Context, e env.Env, cfg *config.Build, opts *config.Options, hash string) (string, error) {
	hash, err := repositoryHash(ctx, opts, hash)
	if err != nil {
		return "", err
	}
	platform.Prepare(cfg, platform.For(cfg, e))
	return binarycache.BuildKey(hash, cfg), nil
}
