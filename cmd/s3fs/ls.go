package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagarc03/s3fs"
)

var lsCmd = &cobra.Command{
	Use:   "ls [prefix]",
	Short: "List objects",
	Long: `List the objects of the configured bucket whose key starts with the
given path prefix. A prefix naming a single object lists that object.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var lsJSON bool

func init() {
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "output JSON")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var entries []s3fs.ListEntry
	for batch, listErr := range store.List(ctx, prefix) {
		if listErr != nil {
			return fmt.Errorf("list %s: %w", prefix, listErr)
		}
		entries = append(entries, batch...)
	}

	return newFormatter(lsJSON, false).FormatList(cmd.OutOrStdout(), store.Bucket(), prefix, entries)
}
