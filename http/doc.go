// Package http exposes s3fs buckets over a small S3-flavoured REST API.
//
// # Routes
//
//   - GET /{bucket}?prefix=p lists the objects under p
//   - GET|HEAD /{bucket}/{key} reads an object
//   - PUT /{bucket}/{key} creates an object, or replaces it when If-Match is set
//   - DELETE /{bucket}/{key} removes an object, guarded by If-Match when set
//
// Creating and deleting buckets is not supported and answers 501.
//
// # Conditional Requests
//
// If-Match carries the etag a client last saw. A mismatch answers
// 412 Precondition Failed. Only a single etag is accepted; "If-Match: *"
// and etag lists answer 400. A plain PUT never overwrites: an existing key
// answers 409 Conflict, which makes "If-None-Match: *" the implied default.
//
// # Usage
//
//	buckets := filesystem.NewBuckets(filesystem.Options{RootDir: ".s3fs"})
//	defer buckets.Close()
//
//	handler := http.NewHandler(&http.HandlerConfig{MaxUploadSize: 10 << 20},
//	    func(bucket string) (http.Service, error) {
//	        return buckets.Get(bucket)
//	    })
//	http.ListenAndServe(":5708", handler.Router())
//
// Errors are written as JSON bodies of the form
// {"error":"not_found","message":"Object not found"}.
package http
