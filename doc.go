// Package s3fs provides a single-node object store with an S3-like API
// backed by a local hierarchical file system.
//
// Objects are byte blobs addressed by a key within a named bucket. Every
// object carries an etag (a quoted MD5 hex digest of its content) that callers
// use for optimistic concurrency: updates, conditional reads and conditional
// deletes take the etag the caller last saw and fail with ErrStale when the
// stored object has moved on.
//
// # Key Components
//
//   - Store: the object store engine, one per bucket
//   - Backend: interface for artifact persistence (see the filesystem package)
//   - ComputeEtag / EtagHash: content fingerprinting
//   - KindOf: classification of returned errors
//
// # On-disk Layout
//
// The filesystem backend keeps two artifacts per object:
//
//	<root>/<bucket>/<key>        raw object bytes
//	<root>/<bucket>/<key>.meta   {"etag":"\"<hex>\"","contentType":"<type>"}
//
// # Example Usage
//
//	store, err := filesystem.OpenStore("photos", filesystem.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	res, err := store.CreateObject(ctx, "a/b", strings.NewReader("hello"), "text/plain")
//
//	obj, err := store.GetObjectIfMatch(ctx, "a/b", res.Etag)
//	fmt.Println(obj.String())
//
// See the jsonstore package for a typed JSON wrapper and the http package for
// the REST API.
package s3fs
