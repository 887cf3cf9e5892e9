// Package jsonstore stores Go values as JSON objects in an s3fs bucket.
//
// It is a thin layer over *s3fs.Store: values are marshalled before writes and
// unmarshalled after reads, and every other behaviour (etags, conflicts,
// errors) is the store's.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/sagarc03/s3fs"
)

// ContentType is stored with every object written by a Store.
const ContentType = "application/json"

// Store reads and writes values of type T.
type Store[T any] struct {
	store *s3fs.Store
}

// New returns a Store of T backed by store.
func New[T any](store *s3fs.Store) *Store[T] {
	return &Store[T]{store: store}
}

// Bucket returns the bucket of the underlying store.
func (s *Store[T]) Bucket() string {
	return s.store.Bucket()
}

// Create stores v under a new key and returns its etag.
func (s *Store[T]) Create(ctx context.Context, key string, v T) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("create json %s: %w", key, err)
	}

	res, err := s.store.CreateObject(ctx, key, bytes.NewReader(body), ContentType)
	if err != nil {
		return "", err
	}
	return res.Etag, nil
}

// PutIfMatch replaces the value under key if its etag is still etag and
// returns the new etag.
func (s *Store[T]) PutIfMatch(ctx context.Context, key string, v T, etag string) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("put json %s: %w", key, err)
	}

	res, err := s.store.PutObjectIfMatch(ctx, key, bytes.NewReader(body), etag, ContentType)
	if err != nil {
		return "", err
	}
	return res.Etag, nil
}

// Get returns the value under key together with its etag.
func (s *Store[T]) Get(ctx context.Context, key string) (T, string, error) {
	var v T

	obj, err := s.store.GetObject(ctx, key)
	if err != nil {
		return v, "", err
	}

	if err := obj.DecodeJSON(&v); err != nil {
		return v, "", err
	}
	return v, obj.Etag, nil
}

// GetIfMatch returns the value under key if its etag is still etag.
func (s *Store[T]) GetIfMatch(ctx context.Context, key, etag string) (T, error) {
	var v T

	obj, err := s.store.GetObjectIfMatch(ctx, key, etag)
	if err != nil {
		return v, err
	}

	if err := obj.DecodeJSON(&v); err != nil {
		return v, err
	}
	return v, nil
}

// Delete removes the value under key. Missing keys are not an error.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	_, err := s.store.DeleteObject(ctx, key)
	return err
}

// DeleteIfMatch removes the value under key if its etag is still etag.
func (s *Store[T]) DeleteIfMatch(ctx context.Context, key, etag string) error {
	_, err := s.store.DeleteObjectIfMatch(ctx, key, etag)
	return err
}
