package main

import (
	"errors"
	"fmt"

	"github.com/fishy/errbatch"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm [flags] <key1> [key2] ...",
	Short: "Remove objects",
	Long: `Remove objects and their metadata from the configured bucket.

Removing a key that does not exist is not an error. With --if-match
a single key is removed only if its etag matches.

Examples:
  # Remove two objects without confirmation
  s3fs rm -y a.json b.json

  # Remove an object only if nobody changed it
  s3fs rm --if-match '"5d41402abc4b2a76b9719d911017c592"' a.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var (
	rmIfMatch string
	rmYes     bool
	rmJSON    bool
	rmQuiet   bool
)

func init() {
	rmCmd.Flags().StringVar(&rmIfMatch, "if-match", "", "remove the object only if its etag matches")
	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "do not ask for confirmation")
	rmCmd.Flags().BoolVar(&rmJSON, "json", false, "output JSON")
	rmCmd.Flags().BoolVarP(&rmQuiet, "quiet", "q", false, "suppress per-object output")
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if rmIfMatch != "" && len(args) > 1 {
		return errors.New("--if-match takes a single key")
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if !rmYes {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Remove %d object(s) from %s", len(args), store.Bucket()),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	results := make([]deleteOutcome, 0, len(args))
	var failures errbatch.ErrBatch

	for _, key := range args {
		if rmIfMatch != "" {
			_, err = store.DeleteObjectIfMatch(ctx, key, rmIfMatch)
		} else {
			_, err = store.DeleteObject(ctx, key)
		}
		if err != nil {
			failures.Add(fmt.Errorf("remove %s: %w", key, err))
		}
		results = append(results, deleteOutcome{Key: key, Err: err})
	}

	if err := newFormatter(rmJSON, rmQuiet).FormatDelete(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	return failures.Compile()
}
