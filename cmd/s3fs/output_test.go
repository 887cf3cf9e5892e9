package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/s3fs"
)

func TestNewFormatter(t *testing.T) {
	assert.IsType(t, &jsonFormatter{}, newFormatter(true, false))
	assert.IsType(t, &humanFormatter{}, newFormatter(false, false))
}

func TestHumanFormatter_FormatPut(t *testing.T) {
	var buf bytes.Buffer
	err := newFormatter(false, false).FormatPut(&buf, putOutcome{Key: "a/b", Etag: `"e1"`, Size: 2048})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Stored: a/b (2.0 KB)")
	assert.Contains(t, buf.String(), `ETag: "e1"`)

	buf.Reset()
	err = newFormatter(false, true).FormatPut(&buf, putOutcome{Key: "a/b", Etag: `"e1"`})
	require.NoError(t, err)
	assert.Equal(t, "\"e1\"\n", buf.String())
}

func TestHumanFormatter_FormatDelete(t *testing.T) {
	results := []deleteOutcome{
		{Key: "gone"},
		{Key: "stale", Err: s3fs.ErrStale},
	}

	var buf bytes.Buffer
	require.NoError(t, newFormatter(false, false).FormatDelete(&buf, results))

	out := buf.String()
	assert.Contains(t, out, "Deleted: gone")
	assert.Contains(t, out, "Error: stale")

	buf.Reset()
	require.NoError(t, newFormatter(false, true).FormatDelete(&buf, results))
	assert.NotContains(t, buf.String(), "Deleted")
	assert.Contains(t, buf.String(), "Error: stale")
}

func TestHumanFormatter_FormatList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newFormatter(false, false).FormatList(&buf, "b", "", nil))
	assert.Equal(t, "No objects found\n", buf.String())

	buf.Reset()
	entries := []s3fs.ListEntry{
		{Key: "docs/a.txt", Size: 10, LastModified: time.Now()},
		{Key: "docs/b.txt", Size: 2 << 20, LastModified: time.Now()},
	}
	require.NoError(t, newFormatter(false, false).FormatList(&buf, "b", "docs/", entries))

	out := buf.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "docs/a.txt")
	assert.Contains(t, out, "2.0 MB")
	assert.Contains(t, out, "2 object(s) in b/docs/")
}

func TestHumanFormatter_FormatScrub(t *testing.T) {
	report := s3fs.ScrubReport{
		Checked: 3,
		Issues: []s3fs.ScrubIssue{
			{Key: "a", Problem: s3fs.ProblemMissingMeta},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, newFormatter(false, false).FormatScrub(&buf, report, false))

	out := buf.String()
	assert.Contains(t, out, "missing_meta")
	assert.Contains(t, out, "3 object(s) checked, 1 issue(s)")
	assert.Contains(t, out, "--repair")
}

func TestJSONFormatter_FormatDelete(t *testing.T) {
	results := []deleteOutcome{
		{Key: "gone"},
		{Key: "broken", Err: errors.New("boom")},
	}

	var buf bytes.Buffer
	require.NoError(t, newFormatter(true, false).FormatDelete(&buf, results))

	var out struct {
		Results []struct {
			Key     string `json:"key"`
			Deleted bool   `json:"deleted"`
			Error   string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Results, 2)

	assert.True(t, out.Results[0].Deleted)
	assert.False(t, out.Results[1].Deleted)
	assert.Equal(t, "boom", out.Results[1].Error)
}

func TestJSONFormatter_FormatList_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newFormatter(true, false).FormatList(&buf, "b", "p", nil))

	assert.JSONEq(t, `{"bucket":"b","prefix":"p","contents":[]}`, buf.String())
}

func TestJSONFormatter_FormatScrub_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newFormatter(true, false).FormatScrub(&buf, s3fs.ScrubReport{Checked: 2}, false))

	assert.JSONEq(t, `{"checked":2,"issues":[]}`, buf.String())
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1 << 20, "1.0 MB"},
		{1 << 30, "1.0 GB"},
		{1 << 40, "1.0 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.bytes))
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/json", detectContentType("a/b.json"))
	assert.Equal(t, s3fs.UnknownContentType, detectContentType("noext"))
	assert.Equal(t, s3fs.UnknownContentType, detectContentType("file.unknownext123"))
}
