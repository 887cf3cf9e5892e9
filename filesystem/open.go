package filesystem

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sagarc03/s3fs"
)

// DefaultRootDir is the root directory used when Options.RootDir is empty,
// relative to the working directory of the process.
const DefaultRootDir = ".s3fs"

// Options configures OpenStore and Buckets.
type Options struct {
	// RootDir holds one directory per bucket. Defaults to DefaultRootDir.
	RootDir string
	// CleanupTimeout bounds the removal of content after a failed create.
	CleanupTimeout time.Duration
}

func (o Options) rootDir() string {
	if o.RootDir == "" {
		return DefaultRootDir
	}
	return o.RootDir
}

// OpenStore opens the store for bucket below opts.RootDir, creating the root
// directory if it does not exist. The caller must Close the store.
func OpenStore(bucket string, opts Options) (*s3fs.Store, error) {
	if !s3fs.IsValidBucketName(bucket) {
		return nil, fmt.Errorf("open store: %w: invalid bucket name %q", s3fs.ErrInvalidInput, bucket)
	}

	rootDir := opts.rootDir()
	if err := os.MkdirAll(rootDir, FileModeForDirs); err != nil {
		return nil, fmt.Errorf("create root directory: %w", err)
	}

	root, err := os.OpenRoot(rootDir)
	if err != nil {
		return nil, fmt.Errorf("open root directory: %w", err)
	}

	store, err := s3fs.NewStore(bucket, NewBackend(root, bucket), s3fs.StoreConfig{CleanupTimeout: opts.CleanupTimeout})
	if err != nil {
		_ = root.Close()
		return nil, err
	}

	return store, nil
}

// Buckets hands out stores for every bucket below one root directory.
//
// All stores share a single os.Root opened on first use, so asking for any
// number of bucket names costs no file descriptors beyond that one. Stores
// are cheap and are not cached; closing one is a no-op. It is safe for
// concurrent use.
type Buckets struct {
	opts Options

	mu   sync.Mutex
	root *os.Root
}

// NewBuckets creates a Buckets serving every bucket below opts.RootDir.
func NewBuckets(opts Options) *Buckets {
	return &Buckets{opts: opts}
}

// Get returns a store for bucket. The bucket directory is not created until
// the first write.
func (b *Buckets) Get(bucket string) (*s3fs.Store, error) {
	if !s3fs.IsValidBucketName(bucket) {
		return nil, fmt.Errorf("open store: %w: invalid bucket name %q", s3fs.ErrInvalidInput, bucket)
	}

	root, err := b.openRoot()
	if err != nil {
		return nil, err
	}

	backend := NewBackend(root, bucket)
	backend.shared = true

	return s3fs.NewStore(bucket, backend, s3fs.StoreConfig{CleanupTimeout: b.opts.CleanupTimeout})
}

func (b *Buckets) openRoot() (*os.Root, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.root != nil {
		return b.root, nil
	}

	rootDir := b.opts.rootDir()
	if err := os.MkdirAll(rootDir, FileModeForDirs); err != nil {
		return nil, fmt.Errorf("create root directory: %w", err)
	}

	root, err := os.OpenRoot(rootDir)
	if err != nil {
		return nil, fmt.Errorf("open root directory: %w", err)
	}
	b.root = root

	return root, nil
}

// Close closes the shared root. Stores handed out earlier stop working; a
// later Get opens the root again.
func (b *Buckets) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.root == nil {
		return nil
	}

	err := b.root.Close()
	b.root = nil
	if err != nil {
		return fmt.Errorf("close root directory: %w", err)
	}
	return nil
}
