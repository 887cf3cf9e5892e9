package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sagarc03/s3fs"
)

// putOutcome is the result of storing one object.
type putOutcome struct {
	Key  string `json:"key"`
	Etag string `json:"etag"`
	Size int64  `json:"size_bytes"`
}

// deleteOutcome is the result of removing one object.
type deleteOutcome struct {
	Key string
	Err error
}

// Formatter formats command results for output.
type Formatter interface {
	FormatPut(w io.Writer, result putOutcome) error
	FormatDelete(w io.Writer, results []deleteOutcome) error
	FormatList(w io.Writer, bucket, prefix string, entries []s3fs.ListEntry) error
	FormatScrub(w io.Writer, report s3fs.ScrubReport, repair bool) error
}

// newFormatter returns the appropriate formatter based on flags.
func newFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &jsonFormatter{}
	}
	return &humanFormatter{quiet: quiet}
}

// humanFormatter outputs human-readable text.
type humanFormatter struct {
	quiet bool
}

func (f *humanFormatter) FormatPut(w io.Writer, result putOutcome) error {
	if f.quiet {
		_, _ = fmt.Fprintln(w, result.Etag)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Stored: %s (%s)\n", result.Key, formatSize(result.Size))
	_, _ = fmt.Fprintf(w, "  ETag: %s\n", result.Etag)
	return nil
}

func (f *humanFormatter) FormatDelete(w io.Writer, results []deleteOutcome) error {
	for i := range results {
		r := &results[i]
		switch {
		case r.Err != nil:
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.Key, r.Err)
		case f.quiet:
		default:
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", r.Key)
		}
	}
	return nil
}

func (f *humanFormatter) FormatList(w io.Writer, bucket, prefix string, entries []s3fs.ListEntry) error {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No objects found")
		return nil
	}

	maxKeyLen := 3 // "KEY"
	for i := range entries {
		if len(entries[i].Key) > maxKeyLen {
			maxKeyLen = len(entries[i].Key)
		}
	}
	if maxKeyLen > 60 {
		maxKeyLen = 60
	}

	_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n", maxKeyLen, "KEY", "SIZE", "MODIFIED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", maxKeyLen), strings.Repeat("-", 10), strings.Repeat("-", 19))

	var total int64
	for i := range entries {
		entry := &entries[i]
		key := entry.Key
		if len(key) > maxKeyLen {
			key = key[:maxKeyLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n",
			maxKeyLen,
			key,
			formatSize(entry.Size),
			entry.LastModified.Local().Format("2006-01-02 15:04:05"),
		)
		total += entry.Size
	}

	_, _ = fmt.Fprintf(w, "\n%d object(s) in %s/%s (%s total)\n", len(entries), bucket, prefix, formatSize(total))
	return nil
}

func (f *humanFormatter) FormatScrub(w io.Writer, report s3fs.ScrubReport, repair bool) error {
	for _, issue := range report.Issues {
		status := "found"
		if issue.Repaired {
			status = "repaired"
		}
		_, _ = fmt.Fprintf(w, "%-8s  %-16s  %s\n", status, issue.Problem, issue.Key)
	}

	_, _ = fmt.Fprintf(w, "%d object(s) checked, %d issue(s)\n", report.Checked, len(report.Issues))
	if !repair && len(report.Issues) > 0 {
		_, _ = fmt.Fprintln(w, "Run with --repair to fix them")
	}
	return nil
}

// jsonFormatter outputs JSON.
type jsonFormatter struct{}

func (f *jsonFormatter) FormatPut(w io.Writer, result putOutcome) error {
	return writeJSON(w, result)
}

func (f *jsonFormatter) FormatDelete(w io.Writer, results []deleteOutcome) error {
	type jsonResult struct {
		Key     string `json:"key"`
		Deleted bool   `json:"deleted"`
		Error   string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{
			Key:     r.Key,
			Deleted: r.Err == nil,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

func (f *jsonFormatter) FormatList(w io.Writer, bucket, prefix string, entries []s3fs.ListEntry) error {
	if entries == nil {
		entries = []s3fs.ListEntry{}
	}
	return writeJSON(w, struct {
		Bucket   string           `json:"bucket"`
		Prefix   string           `json:"prefix"`
		Contents []s3fs.ListEntry `json:"contents"`
	}{bucket, prefix, entries})
}

func (f *jsonFormatter) FormatScrub(w io.Writer, report s3fs.ScrubReport, repair bool) error {
	if report.Issues == nil {
		report.Issues = []s3fs.ScrubIssue{}
	}
	return writeJSON(w, report)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
