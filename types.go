package s3fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const (
	// DefaultContentType is stored when a write does not name a content type.
	DefaultContentType = "application/json"
	// UnknownContentType is reported for objects whose metadata is missing.
	UnknownContentType = "application/octet-stream"
)

// Meta is the metadata record persisted alongside each object.
type Meta struct {
	Etag        string `json:"etag"`
	ContentType string `json:"contentType"`
}

// PutResult is returned by operations that write an object.
type PutResult struct {
	Etag string `json:"etag"`
}

// DeleteResult is returned by delete operations. Etag is always nil; the
// field exists so delete responses share a shape with PutResult.
type DeleteResult struct {
	Etag *string `json:"etag"`
}

// ListEntry describes one object found by List.
type ListEntry struct {
	Key          string    `json:"Key"`
	LastModified time.Time `json:"LastModified"`
	Size         int64     `json:"Size"`
}

// Object is the result of a read. The content is held in memory.
type Object struct {
	Key         string
	ContentType string
	// Etag is empty when the object has no readable metadata.
	Etag    string
	content []byte
}

// NewObject returns an Object holding content.
func NewObject(key string, content []byte, meta Meta) *Object {
	return &Object{
		Key:         key,
		ContentType: meta.ContentType,
		Etag:        meta.Etag,
		content:     content,
	}
}

// String returns the content as a string.
func (o *Object) String() string {
	return string(o.content)
}

// Bytes returns the content. The returned slice must not be modified.
func (o *Object) Bytes() []byte {
	return o.content
}

// Size returns the content length in bytes.
func (o *Object) Size() int64 {
	return int64(len(o.content))
}

// Reader returns a fresh stream over the content.
func (o *Object) Reader() io.ReadSeeker {
	return bytes.NewReader(o.content)
}

// DecodeJSON parses the content as JSON into v.
func (o *Object) DecodeJSON(v any) error {
	if err := json.Unmarshal(o.content, v); err != nil {
		return fmt.Errorf("decode object %s: %w", o.Key, err)
	}
	return nil
}

// ScrubProblem names what Scrub found wrong with a key.
type ScrubProblem string

const (
	ProblemMissingMeta  ScrubProblem = "missing_meta"
	ProblemEtagMismatch ScrubProblem = "etag_mismatch"
	ProblemOrphanMeta   ScrubProblem = "orphan_meta"
)

// ScrubIssue is a single inconsistency found by Scrub.
type ScrubIssue struct {
	Key      string       `json:"key"`
	Problem  ScrubProblem `json:"problem"`
	Repaired bool         `json:"repaired"`
}

// ScrubReport summarises a Scrub run.
type ScrubReport struct {
	Checked int          `json:"checked"`
	Issues  []ScrubIssue `json:"issues"`
}
