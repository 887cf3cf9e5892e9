package s3fs

import "errors"

var (
	// ErrNotFound is returned when no object exists for a key
	ErrNotFound = errors.New("not found")
	// ErrKeyExists is returned when creating an object whose key is already taken
	ErrKeyExists = errors.New("key exists")
	// ErrStale is returned when the supplied etag does not match the stored one
	ErrStale = errors.New("stale etag")
	// ErrUnsupported is returned for operations with no local equivalent
	ErrUnsupported = errors.New("unsupported operation")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

// Kind classifies an error returned by the store.
type Kind int

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	KindNotFound
	KindKeyExists
	KindStale
	KindUnsupported
	KindInvalidInput
	// KindIO covers every failure not classified above, typically
	// file-system errors propagated from the backend.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindKeyExists:
		return "key_exists"
	case KindStale:
		return "stale"
	case KindUnsupported:
		return "unsupported_operation"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "io_failure"
	}
}

// KindOf returns the classification of err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrKeyExists):
		return KindKeyExists
	case errors.Is(err, ErrStale):
		return KindStale
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindIO
	}
}
