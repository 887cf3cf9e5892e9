package s3fs

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MetaSuffix is appended to a key to name its metadata artifact.
	MetaSuffix = ".meta"
	// TempPrefix starts the name of every in-flight temp file.
	TempPrefix = ".s3fs-tmp-"
)

// IsValidKey validates that a key can be stored without escaping its bucket
// or colliding with internal files. It checks that the key:
//   - is not empty, ".", or "/"
//   - is relative (does not start with "/")
//   - does not end with "/"
//   - does not contain ".." (path traversal)
//   - does not contain "//" (empty segments)
//   - does not contain invalid characters: \ ? # ~
//   - is valid UTF-8
//   - does not contain "." segments (/., /./, or ending with /.)
//   - does not contain null bytes, control characters (< 0x20), DEL (0x7f), or whitespace
//   - has no segment ending with MetaSuffix
//   - has no segment starting with TempPrefix
func IsValidKey(key string) bool {
	return isValidPath(key) && !hasReservedSegment(key)
}

// IsValidPrefix reports whether prefix can be used for listing. The empty
// prefix lists the whole bucket and a single trailing slash is allowed.
func IsValidPrefix(prefix string) bool {
	if prefix == "" {
		return true
	}
	trimmed := strings.TrimSuffix(prefix, "/")
	return isValidPath(trimmed) && !hasReservedSegment(trimmed)
}

// hasReservedSegment reports whether a segment of p could collide with a
// metadata artifact or a temp file of some other key.
func hasReservedSegment(p string) bool {
	for _, segment := range strings.Split(p, "/") {
		if strings.HasSuffix(segment, MetaSuffix) || strings.HasPrefix(segment, TempPrefix) {
			return true
		}
	}
	return false
}

func isValidPath(key string) bool {
	if key == "" || key == "/" || key == "." {
		return false
	}

	if key[0] == '/' {
		return false
	}

	if strings.HasSuffix(key, "/") {
		return false
	}

	if strings.Contains(key, "..") {
		return false
	}

	if strings.Contains(key, "//") {
		return false
	}

	if strings.ContainsAny(key, `\?#~`) {
		return false
	}

	if !utf8.ValidString(key) {
		return false
	}

	if strings.HasPrefix(key, "./") || strings.Contains(key, "/./") || strings.HasSuffix(key, "/.") {
		return false
	}

	for _, r := range key {
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

var validBucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// IsValidBucketName checks a bucket name against S3 naming rules: 3-63
// characters of lowercase letters, digits, dots and hyphens, beginning and
// ending with a letter or digit, with no ".." sequence.
func IsValidBucketName(name string) bool {
	return validBucketNameRegex.MatchString(name) && !strings.Contains(name, "..")
}
