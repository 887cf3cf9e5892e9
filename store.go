package s3fs

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"iter"
	"time"

	"github.com/fishy/rowlock"
)

// Backend defines the interface for persisting the two artifacts of every
// object: its raw content and its metadata record.
//
// All methods accept a context for cancellation. Keys passed to a Backend have
// already been validated with IsValidKey. Implementations are not required to
// serialise access to a key; Store does that.
type Backend interface {
	// Location returns an identifier of the physical bucket location that is
	// unique within the process. Stores sharing a location share key locks.
	Location() string

	// Exists reports whether anything occupies the data artifact path of key.
	Exists(ctx context.Context, key string) (bool, error)

	// ReadData returns the content of key.
	//
	// Returns ErrNotFound if no regular file holds the content.
	ReadData(ctx context.Context, key string) ([]byte, error)

	// WriteData replaces the content of key with everything read from content.
	// It creates parent directories as needed and returns the number of bytes
	// written and the etag of the content.
	//
	// Implementations should write atomically (temp file then rename) so a
	// concurrent reader never sees a partially written artifact.
	WriteData(ctx context.Context, key string, content io.Reader) (SaveResult, error)

	// RemoveData removes the content of key.
	//
	// Returns ErrNotFound if it does not exist.
	RemoveData(ctx context.Context, key string) error

	// ReadMeta returns the metadata of key. ok is false when the record is
	// missing or cannot be parsed; err is reserved for other failures.
	ReadMeta(ctx context.Context, key string) (meta Meta, ok bool, err error)

	// WriteMeta replaces the metadata of key, creating parent directories as
	// needed. Reading it back must return an equal Meta.
	WriteMeta(ctx context.Context, key string, meta Meta) error

	// RemoveMeta removes the metadata of key.
	//
	// Returns ErrNotFound if it does not exist.
	RemoveMeta(ctx context.Context, key string) error

	// Walk returns every object under prefix in traversal order. Metadata
	// artifacts and temp files are never included. A prefix that does not
	// exist yields an empty slice and no error.
	Walk(ctx context.Context, prefix string) ([]ListEntry, error)

	// WalkMeta returns the keys of every metadata artifact in the bucket,
	// whether or not the matching content exists.
	WalkMeta(ctx context.Context) ([]string, error)

	// Close releases resources held by the backend.
	Close() error
}

// SaveResult is returned by Backend.WriteData.
type SaveResult struct {
	BytesWritten int64
	Etag         string
}

// LockStripes is the number of rows in a key lock set. Keys are hashed onto
// the stripes, so the set never grows beyond this many mutexes; keys that
// share a stripe are serialised together.
const LockStripes = 1024

// keyLocks is shared by every Store in the process so that two Stores opened
// on the same bucket still serialise access to a key.
var keyLocks = rowlock.NewRowLock(rowlock.MutexNewLocker)

// Store is the object store engine for one bucket.
type Store struct {
	bucket         string
	backend        Backend
	locks          *rowlock.RowLock
	cleanupTimeout time.Duration
}

// StoreConfig holds configuration options for Store.
type StoreConfig struct {
	CleanupTimeout time.Duration    // Timeout for removing content after a failed create (default: 30s)
	Locks          *rowlock.RowLock // Key locks, indexed by LockStripe (default: shared process-wide set)
}

// NewStore creates a Store for bucket on top of backend.
func NewStore(bucket string, backend Backend, cfg StoreConfig) (*Store, error) {
	if !IsValidBucketName(bucket) {
		return nil, fmt.Errorf("new store: %w: invalid bucket name %q", ErrInvalidInput, bucket)
	}
	if backend == nil {
		return nil, fmt.Errorf("new store: %w: backend cannot be nil", ErrInvalidInput)
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	locks := cfg.Locks
	if locks == nil {
		locks = keyLocks
	}

	return &Store{
		bucket:         bucket,
		backend:        backend,
		locks:          locks,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// Bucket returns the name of the bucket the store serves.
func (s *Store) Bucket() string {
	return s.bucket
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// CreateObject stores a new object under key.
//
// The method performs the following steps:
//  1. Validates the key (ErrInvalidInput)
//  2. Locks the key
//  3. Fails with ErrKeyExists if content already exists for the key
//  4. Writes the content and computes its etag
//  5. Writes the metadata record
//  6. On metadata failure, removes the content written in step 4
//
// An empty contentType is stored as DefaultContentType.
func (s *Store) CreateObject(ctx context.Context, key string, body io.Reader, contentType string) (PutResult, error) {
	if err := ctx.Err(); err != nil {
		return PutResult{}, fmt.Errorf("create object: %w", err)
	}

	if !IsValidKey(key) {
		return PutResult{}, fmt.Errorf("create object %q: %w", key, ErrInvalidInput)
	}

	if contentType == "" {
		contentType = DefaultContentType
	}

	unlock := s.lock(key)
	defer unlock()

	exists, err := s.backend.Exists(ctx, key)
	if err != nil {
		return PutResult{}, fmt.Errorf("create object %s: %w", key, err)
	}
	if exists {
		return PutResult{}, fmt.Errorf("create object %s: %w: choose another key or update the object", key, ErrKeyExists)
	}

	saveResult, err := s.backend.WriteData(ctx, key, body)
	if err != nil {
		return PutResult{}, fmt.Errorf("create object %s: write failed: %w", key, err)
	}

	metaErr := s.backend.WriteMeta(ctx, key, Meta{Etag: saveResult.Etag, ContentType: contentType})
	if metaErr != nil {
		// Use background context for cleanup since original context may be cancelled
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if delErr := s.backend.RemoveData(cleanupCtx, key); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			return PutResult{}, fmt.Errorf("create object %s: metadata write failed (%w) and cleanup failed: %w", key, metaErr, delErr)
		}
		return PutResult{}, fmt.Errorf("create object %s: metadata write failed: %w", key, metaErr)
	}

	return PutResult{Etag: saveResult.Etag}, nil
}

// PutObjectIfMatch replaces the content of key provided the stored etag
// equals etag. Nothing is written when the etags differ or the object has no
// metadata; ErrStale is returned instead.
//
// An empty contentType is stored as DefaultContentType.
func (s *Store) PutObjectIfMatch(ctx context.Context, key string, body io.Reader, etag, contentType string) (PutResult, error) {
	if err := ctx.Err(); err != nil {
		return PutResult{}, fmt.Errorf("put object: %w", err)
	}

	if !IsValidKey(key) {
		return PutResult{}, fmt.Errorf("put object %q: %w", key, ErrInvalidInput)
	}

	if contentType == "" {
		contentType = DefaultContentType
	}

	unlock := s.lock(key)
	defer unlock()

	if err := s.checkEtag(ctx, "put object", key, etag); err != nil {
		return PutResult{}, err
	}

	saveResult, err := s.backend.WriteData(ctx, key, body)
	if err != nil {
		return PutResult{}, fmt.Errorf("put object %s: write failed: %w", key, err)
	}

	if err := s.backend.WriteMeta(ctx, key, Meta{Etag: saveResult.Etag, ContentType: contentType}); err != nil {
		return PutResult{}, fmt.Errorf("put object %s: metadata write failed: %w", key, err)
	}

	return PutResult{Etag: saveResult.Etag}, nil
}

// GetObject reads the object stored under key.
//
// Returns ErrNotFound if there is no content. Missing metadata is tolerated:
// the object is returned with an empty Etag and UnknownContentType.
func (s *Store) GetObject(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	if !IsValidKey(key) {
		return nil, fmt.Errorf("get object %q: %w", key, ErrInvalidInput)
	}

	unlock := s.lock(key)
	defer unlock()

	return s.get(ctx, "get object", key)
}

// GetObjectIfMatch reads the object stored under key provided the stored etag
// equals etag. A missing object fails with ErrNotFound, checked before the
// etag comparison; a mismatch fails with ErrStale.
func (s *Store) GetObjectIfMatch(ctx context.Context, key, etag string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	if !IsValidKey(key) {
		return nil, fmt.Errorf("get object %q: %w", key, ErrInvalidInput)
	}

	unlock := s.lock(key)
	defer unlock()

	exists, err := s.backend.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	if !exists {
		return nil, fmt.Errorf("get object %s: %w", key, ErrNotFound)
	}

	if err := s.checkEtag(ctx, "get object", key, etag); err != nil {
		return nil, err
	}

	return s.get(ctx, "get object", key)
}

func (s *Store) get(ctx context.Context, op, key string) (*Object, error) {
	content, err := s.backend.ReadData(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, key, err)
	}

	meta, ok, err := s.backend.ReadMeta(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, key, err)
	}
	if !ok {
		meta = Meta{ContentType: UnknownContentType}
	}

	return NewObject(key, content, meta), nil
}

// DeleteObject removes the object stored under key. Deleting a key that does
// not exist succeeds.
func (s *Store) DeleteObject(ctx context.Context, key string) (DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return DeleteResult{}, fmt.Errorf("delete object: %w", err)
	}

	if !IsValidKey(key) {
		return DeleteResult{}, fmt.Errorf("delete object %q: %w", key, ErrInvalidInput)
	}

	unlock := s.lock(key)
	defer unlock()

	return s.remove(ctx, key)
}

// DeleteObjectIfMatch removes the object stored under key provided the stored
// etag equals etag. A missing object has no etag, so it fails with ErrStale.
func (s *Store) DeleteObjectIfMatch(ctx context.Context, key, etag string) (DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return DeleteResult{}, fmt.Errorf("delete object: %w", err)
	}

	if !IsValidKey(key) {
		return DeleteResult{}, fmt.Errorf("delete object %q: %w", key, ErrInvalidInput)
	}

	unlock := s.lock(key)
	defer unlock()

	if err := s.checkEtag(ctx, "delete object", key, etag); err != nil {
		return DeleteResult{}, err
	}

	return s.remove(ctx, key)
}

func (s *Store) remove(ctx context.Context, key string) (DeleteResult, error) {
	// Ignore ErrNotFound - delete is idempotent
	if err := s.backend.RemoveData(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return DeleteResult{}, fmt.Errorf("delete object %s: %w", key, err)
	}

	if err := s.backend.RemoveMeta(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return DeleteResult{}, fmt.Errorf("delete object %s: %w", key, err)
	}

	return DeleteResult{}, nil
}

// List returns a sequence of batches of the objects under prefix.
//
// The whole subtree is traversed when the sequence is consumed and every
// object found is yielded in a single batch; an empty or missing prefix
// yields no batch at all. Each iteration performs a fresh traversal, so the
// sequence can be ranged over more than once. Entries are in traversal order.
//
// A prefix is a path below the bucket root, not an arbitrary string prefix:
// "docs" lists "docs/a" but not "docs2/a".
func (s *Store) List(ctx context.Context, prefix string) iter.Seq2[[]ListEntry, error] {
	return func(yield func([]ListEntry, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, fmt.Errorf("list objects: %w", err))
			return
		}

		if !IsValidPrefix(prefix) {
			yield(nil, fmt.Errorf("list objects %q: %w", prefix, ErrInvalidInput))
			return
		}

		entries, err := s.backend.Walk(ctx, prefix)
		if err != nil {
			yield(nil, fmt.Errorf("list objects %q: %w", prefix, err))
			return
		}

		if len(entries) == 0 {
			return
		}

		yield(entries, nil)
	}
}

// ListAll collects every batch of List into one slice.
func (s *Store) ListAll(ctx context.Context, prefix string) ([]ListEntry, error) {
	var all []ListEntry
	for batch, err := range s.List(ctx, prefix) {
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

// Scrub checks that every object has metadata whose etag matches its content
// and that every metadata record belongs to an object.
//
// With repair set, missing or wrong records are rewritten from the content
// (keeping the stored content type when there is one) and orphan records are
// removed. Scrub stops at the first I/O error.
func (s *Store) Scrub(ctx context.Context, repair bool) (ScrubReport, error) {
	if err := ctx.Err(); err != nil {
		return ScrubReport{}, fmt.Errorf("scrub: %w", err)
	}

	var report ScrubReport

	entries, err := s.backend.Walk(ctx, "")
	if err != nil {
		return report, fmt.Errorf("scrub: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("scrub: %w", err)
		}

		issue, err := s.scrubObject(ctx, entry.Key, repair)
		if err != nil {
			return report, fmt.Errorf("scrub '%s': %w", entry.Key, err)
		}
		report.Checked++
		if issue != nil {
			report.Issues = append(report.Issues, *issue)
		}
	}

	metaKeys, err := s.backend.WalkMeta(ctx)
	if err != nil {
		return report, fmt.Errorf("scrub: %w", err)
	}

	for _, key := range metaKeys {
		issue, err := s.scrubOrphan(ctx, key, repair)
		if err != nil {
			return report, fmt.Errorf("scrub '%s': %w", key, err)
		}
		if issue != nil {
			report.Issues = append(report.Issues, *issue)
		}
	}

	return report, nil
}

func (s *Store) scrubObject(ctx context.Context, key string, repair bool) (*ScrubIssue, error) {
	unlock := s.lock(key)
	defer unlock()

	content, err := s.backend.ReadData(ctx, key)
	if errors.Is(err, ErrNotFound) {
		// Removed since the walk
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	etag := ComputeEtag(content)
	meta, ok, err := s.backend.ReadMeta(ctx, key)
	if err != nil {
		return nil, err
	}

	var issue ScrubIssue
	switch {
	case !ok:
		issue = ScrubIssue{Key: key, Problem: ProblemMissingMeta}
		meta = Meta{ContentType: UnknownContentType}
	case meta.Etag != etag:
		issue = ScrubIssue{Key: key, Problem: ProblemEtagMismatch}
	default:
		return nil, nil
	}

	if repair {
		meta.Etag = etag
		if err := s.backend.WriteMeta(ctx, key, meta); err != nil {
			return nil, err
		}
		issue.Repaired = true
	}

	return &issue, nil
}

func (s *Store) scrubOrphan(ctx context.Context, key string, repair bool) (*ScrubIssue, error) {
	unlock := s.lock(key)
	defer unlock()

	exists, err := s.backend.Exists(ctx, key)
	if err != nil || exists {
		return nil, err
	}

	issue := ScrubIssue{Key: key, Problem: ProblemOrphanMeta}
	if repair {
		if err := s.backend.RemoveMeta(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		issue.Repaired = true
	}

	return &issue, nil
}

// checkEtag fails with ErrStale unless key has metadata whose etag equals
// expected. It must run with the key locked and before any side effect.
func (s *Store) checkEtag(ctx context.Context, op, key, expected string) error {
	meta, ok, err := s.backend.ReadMeta(ctx, key)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}

	if !ok || meta.Etag != expected {
		return fmt.Errorf("%s %s: %w: object was modified or removed, reload it and retry", op, key, ErrStale)
	}

	return nil
}

func (s *Store) lock(key string) (unlock func()) {
	row := LockStripe(s.backend.Location(), key)
	s.locks.Lock(row)
	return func() { s.locks.Unlock(row) }
}

// LockStripe returns the row of a key lock set guarding key at location.
// A Store holds at most one row at a time, so sharing rows cannot deadlock.
func LockStripe(location, key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(location))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key))
	return h.Sum32() % LockStripes
}
