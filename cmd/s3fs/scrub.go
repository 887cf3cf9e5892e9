package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var scrubCmd = &cobra.Command{
	Use:   "scrub",
	Short: "Check objects against their metadata",
	Long: `Check every object of the configured bucket against its .meta file.

Reported problems:
  missing_meta   the object has no readable metadata
  etag_mismatch  the stored etag does not match the content
  orphan_meta    a .meta file exists without an object

With --repair, metadata is rewritten from the content and orphan
.meta files are removed.`,
	Args: cobra.NoArgs,
	RunE: runScrub,
}

var (
	scrubRepair bool
	scrubJSON   bool
)

func init() {
	scrubCmd.Flags().BoolVar(&scrubRepair, "repair", false, "fix the problems found")
	scrubCmd.Flags().BoolVar(&scrubJSON, "json", false, "output JSON")
	rootCmd.AddCommand(scrubCmd)
}

func runScrub(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	slog.Info("starting scrub", "bucket", store.Bucket(), "repair", scrubRepair)

	report, err := store.Scrub(cmd.Context(), scrubRepair)
	if err != nil {
		return fmt.Errorf("scrub %s: %w", store.Bucket(), err)
	}

	slog.Info("scrub complete", "checked", report.Checked, "issues", len(report.Issues))

	return newFormatter(scrubJSON, false).FormatScrub(cmd.OutOrStdout(), report, scrubRepair)
}
