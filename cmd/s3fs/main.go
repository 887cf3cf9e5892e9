package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/s3fs"
	"github.com/sagarc03/s3fs/config"
	"github.com/sagarc03/s3fs/filesystem"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "s3fs",
	Short:   "S3-style object store on the local file system",
	Long: `s3fs stores objects as plain files below a root directory, one
directory per bucket, with an etag and content type kept next to
each object in a .meta file.

Objects can be managed directly with the object commands or served
over HTTP with 's3fs serve'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, merged left to right (default: ./s3fs.yaml)")
	rootCmd.PersistentFlags().String("root", "", "root directory holding the buckets (default: .s3fs, env: S3FS_STORAGE_ROOT_DIR)")
	rootCmd.PersistentFlags().StringP("bucket", "b", "", "bucket for object commands (default: default, env: S3FS_STORAGE_BUCKET)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: S3FS_LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON instead of text")
}

// storeOptions maps the storage configuration onto filesystem options.
func storeOptions(cfg *config.Config) filesystem.Options {
	return filesystem.Options{
		RootDir:        cfg.Storage.RootDir,
		CleanupTimeout: time.Duration(cfg.Storage.CleanupTimeout) * time.Second,
	}
}

// openStore opens the configured bucket. The caller must Close the store.
func openStore(cmd *cobra.Command) (*s3fs.Store, error) {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return nil, err
	}

	store, err := filesystem.OpenStore(cfg.Storage.Bucket, storeOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", cfg.Storage.Bucket, err)
	}

	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
