package s3fs

import (
	"crypto/md5" //nolint:gosec // etags mirror S3, not a security boundary
	"encoding/hex"
	"hash"
)

// ComputeEtag returns the etag for content: the lowercase hex MD5 digest
// wrapped in double quotes.
func ComputeEtag(content []byte) string {
	sum := md5.Sum(content) //nolint:gosec // see import
	return quote(hex.EncodeToString(sum[:]))
}

// EtagHash computes an etag incrementally. It is used when content is
// streamed to storage instead of held in memory.
type EtagHash struct {
	h hash.Hash
}

// NewEtagHash returns an empty EtagHash.
func NewEtagHash() *EtagHash {
	return &EtagHash{h: md5.New()} //nolint:gosec // see import
}

// Write adds p to the running digest. It never returns an error.
func (e *EtagHash) Write(p []byte) (int, error) {
	return e.h.Write(p)
}

// Etag returns the etag of everything written so far.
func (e *EtagHash) Etag() string {
	return quote(hex.EncodeToString(e.h.Sum(nil)))
}

func quote(s string) string {
	return `"` + s + `"`
}
