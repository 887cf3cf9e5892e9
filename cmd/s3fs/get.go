package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/s3fs"
)

var getCmd = &cobra.Command{
	Use:   "get [flags] <key>",
	Short: "Read an object",
	Long: `Write the content of an object to stdout or to the file given with -o.

With --if-match the read fails unless the object still has the given etag.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var (
	getIfMatch string
	getOutput  string
)

func init() {
	getCmd.Flags().StringVar(&getIfMatch, "if-match", "", "read the object only if its etag matches")
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "-", `output file ("-" for stdout)`)
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := args[0]

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var obj *s3fs.Object
	if getIfMatch != "" {
		obj, err = store.GetObjectIfMatch(ctx, key, getIfMatch)
	} else {
		obj, err = store.GetObject(ctx, key)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}

	slog.Debug("read object", "bucket", store.Bucket(), "key", key, "etag", obj.Etag, "content_type", obj.ContentType)

	if getOutput == "" || getOutput == "-" {
		_, err = cmd.OutOrStdout().Write(obj.Bytes())
		return err
	}

	if err := os.WriteFile(getOutput, obj.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", getOutput, err)
	}

	slog.Info("downloaded", "key", key, "file", getOutput, "size", obj.Size())
	return nil
}
