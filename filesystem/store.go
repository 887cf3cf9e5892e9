// Package filesystem provides the local file system backend for s3fs.
// It maps every object to a data file and a JSON sidecar metadata file,
// writes both atomically using temp files, and lists objects by walking
// the bucket directory.
package filesystem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sagarc03/s3fs"
)

// Permissions for files and directories created by the backend.
var (
	FileModeForFiles os.FileMode = 0o644
	FileModeForDirs  os.FileMode = 0o755
)

// Backend stores the objects of one bucket below a root directory.
//
// Every path handed to the operating system goes through an os.Root opened on
// the root directory, so no key can reach outside it.
type Backend struct {
	root     *os.Root
	bucket   string
	location string
	// shared is set when the root belongs to a Buckets and outlives the backend.
	shared bool
}

var _ s3fs.Backend = (*Backend)(nil)

// NewBackend creates a Backend for bucket inside root. The bucket directory
// is created on the first write. The Backend takes ownership of root and
// closes it on Close.
func NewBackend(root *os.Root, bucket string) *Backend {
	location, err := filepath.Abs(root.Name())
	if err != nil {
		location = root.Name()
	}
	return &Backend{
		root:     root,
		bucket:   bucket,
		location: filepath.Join(location, bucket),
	}
}

// Location returns the absolute path of the bucket directory.
func (b *Backend) Location() string {
	return b.location
}

// Close closes the underlying root unless it is shared.
func (b *Backend) Close() error {
	if b.shared {
		return nil
	}
	return b.root.Close()
}

// dataPath returns the slash-separated path of the data file of key,
// relative to the root.
func (b *Backend) dataPath(key string) string {
	return b.bucket + "/" + key
}

func (b *Backend) metaPath(key string) string {
	return b.dataPath(key) + s3fs.MetaSuffix
}

// Exists reports whether anything is stored at the data path of key.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := b.root.Lstat(filepath.FromSlash(b.dataPath(key)))
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat file: %w", err)
}

// ReadData returns the content of key. Returns s3fs.ErrNotFound if no regular
// file exists at the data path.
func (b *Backend) ReadData(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := b.root.Open(filepath.FromSlash(b.dataPath(key)))
	if err != nil {
		if isNotExist(err) {
			return nil, s3fs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "key", key, "err", closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, s3fs.ErrNotFound
	}

	content, err := io.ReadAll(&ctxReader{ctx: ctx, r: f})
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return content, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// WriteData atomically writes content to the data path of key and returns a
// SaveResult containing the number of bytes written and the etag of the
// content. The operation respects context cancellation while copying.
func (b *Backend) WriteData(ctx context.Context, key string, content io.Reader) (s3fs.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return s3fs.SaveResult{}, err
	}

	h := s3fs.NewEtagHash()
	n, err := b.writeAtomic(ctx, b.dataPath(key), io.TeeReader(content, h))
	if err != nil {
		return s3fs.SaveResult{}, err
	}

	return s3fs.SaveResult{BytesWritten: n, Etag: h.Etag()}, nil
}

// writeAtomic writes content to a temp file next to p and renames it over p,
// creating intermediate directories as needed.
func (b *Backend) writeAtomic(ctx context.Context, p string, content io.Reader) (int64, error) {
	destDir := path.Dir(p)
	if err := b.root.MkdirAll(filepath.FromSlash(destDir), FileModeForDirs); err != nil {
		return 0, fmt.Errorf("could not create intermediate directories: %w", err)
	}

	tmpFile := filepath.FromSlash(path.Join(destDir, tmpFileName()))
	t, createErr := b.root.OpenFile(tmpFile, os.O_RDWR|os.O_CREATE|os.O_EXCL, FileModeForFiles)
	if createErr != nil {
		return 0, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := b.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	n, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return 0, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err = t.Sync(); err != nil {
		return 0, fmt.Errorf("could not sync written file: %w", err)
	}

	if err = t.Close(); err != nil {
		return 0, fmt.Errorf("could not close written file: %w", err)
	}

	if renameErr := b.root.Rename(tmpFile, filepath.FromSlash(p)); renameErr != nil {
		return 0, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true
	return n, nil
}

// RemoveData removes the data file of key. Returns s3fs.ErrNotFound if no
// regular file exists at the data path; directories are never removed.
func (b *Backend) RemoveData(ctx context.Context, key string) error {
	return b.removeFile(ctx, b.dataPath(key))
}

// ReadMeta reads the sidecar metadata of key. A missing, unparsable or
// etag-less sidecar is reported with ok set to false.
func (b *Backend) ReadMeta(ctx context.Context, key string) (s3fs.Meta, bool, error) {
	if err := ctx.Err(); err != nil {
		return s3fs.Meta{}, false, err
	}

	data, err := b.root.ReadFile(filepath.FromSlash(b.metaPath(key)))
	if err != nil {
		if isNotExist(err) || errors.Is(err, syscall.EISDIR) {
			return s3fs.Meta{}, false, nil
		}
		return s3fs.Meta{}, false, fmt.Errorf("read metadata: %w", err)
	}

	var meta s3fs.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		slog.Warn("ignoring unparsable metadata", "bucket", b.bucket, "key", key, "err", err)
		return s3fs.Meta{}, false, nil
	}

	if meta.Etag == "" {
		slog.Warn("ignoring metadata without etag", "bucket", b.bucket, "key", key)
		return s3fs.Meta{}, false, nil
	}

	return meta, true, nil
}

// WriteMeta atomically replaces the sidecar metadata of key.
func (b *Backend) WriteMeta(ctx context.Context, key string, meta s3fs.Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeMeta(meta)
	if err != nil {
		return err
	}

	if _, err := b.writeAtomic(ctx, b.metaPath(key), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	return nil
}

// RemoveMeta removes the sidecar metadata of key. Returns s3fs.ErrNotFound if
// it does not exist.
func (b *Backend) RemoveMeta(ctx context.Context, key string) error {
	return b.removeFile(ctx, b.metaPath(key))
}

func (b *Backend) removeFile(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	osPath := filepath.FromSlash(p)

	info, err := b.root.Lstat(osPath)
	if err != nil {
		if isNotExist(err) {
			return s3fs.ErrNotFound
		}
		return fmt.Errorf("could not stat file: %w", err)
	}
	if info.IsDir() {
		return s3fs.ErrNotFound
	}

	if err := b.root.Remove(osPath); err != nil {
		if isNotExist(err) {
			return s3fs.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// EncodeMeta serialises meta in the sidecar format:
// {"etag":"\"<hex>\"","contentType":"<type>"}.
func EncodeMeta(meta s3fs.Meta) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Walk recursively walks the directory named by prefix and returns every
// object found, in lexical order within each directory. Sidecar metadata,
// temp files and anything that is not a regular file are skipped. A prefix
// naming a single object returns that object.
func (b *Backend) Walk(ctx context.Context, prefix string) ([]s3fs.ListEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := b.bucket
	if p := strings.TrimSuffix(prefix, "/"); p != "" {
		start = b.dataPath(p)
	}

	info, err := b.root.Lstat(filepath.FromSlash(start))
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var entries []s3fs.ListEntry

	if !info.IsDir() {
		if isObjectFile(info.Name(), info.Mode()) {
			entries = append(entries, b.listEntry(start, info))
		}
		return entries, nil
	}

	err = b.walkDir(ctx, start, func(p string, info fs.FileInfo) {
		if isObjectFile(info.Name(), info.Mode()) {
			entries = append(entries, b.listEntry(p, info))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return entries, nil
}

// WalkMeta returns the keys of every sidecar metadata file in the bucket.
func (b *Backend) WalkMeta(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := b.root.Lstat(b.bucket); err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	var keys []string
	err := b.walkDir(ctx, b.bucket, func(p string, info fs.FileInfo) {
		name := info.Name()
		if info.Mode().IsRegular() && strings.HasSuffix(name, s3fs.MetaSuffix) && !strings.HasPrefix(name, s3fs.TempPrefix) {
			keys = append(keys, strings.TrimSuffix(b.keyOf(p), s3fs.MetaSuffix))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	return keys, nil
}

func (b *Backend) walkDir(ctx context.Context, p string, visit func(p string, info fs.FileInfo)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(b.root.FS(), p)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := path.Join(p, entry.Name())

		if entry.IsDir() {
			if err := b.walkDir(ctx, entryPath, visit); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if isNotExist(err) {
				// Removed since the directory was read
				continue
			}
			return fmt.Errorf("walk dir: %w", err)
		}

		visit(entryPath, info)
	}

	return nil
}

func (b *Backend) listEntry(p string, info fs.FileInfo) s3fs.ListEntry {
	return s3fs.ListEntry{
		Key:          b.keyOf(p),
		LastModified: info.ModTime(),
		Size:         info.Size(),
	}
}

// keyOf converts a slash-separated path relative to the root into a key.
func (b *Backend) keyOf(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(p), b.bucket+"/")
}

func isObjectFile(name string, mode fs.FileMode) bool {
	return mode.IsRegular() &&
		!strings.HasSuffix(name, s3fs.MetaSuffix) &&
		!strings.HasPrefix(name, s3fs.TempPrefix)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func tmpFileName() string {
	return s3fs.TempPrefix + uuid.New().String()
}
