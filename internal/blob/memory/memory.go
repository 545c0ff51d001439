// Package memory provides an in-memory attachment store for dev and tests.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"syndic/internal/blob"
)

type object struct {
	data        []byte
	contentType string
}

type Store struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]object
}

// New creates a store whose public URLs are derived from baseURL.
func New(baseURL string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]object),
	}
}

var _ blob.Store = (*Store)(nil)

func key(bucket blob.Bucket, path string) string {
	return string(bucket) + "/" + path
}

func (s *Store) Upload(_ context.Context, bucket blob.Bucket, path string, data []byte, contentType string) (blob.Ref, error) {
	if strings.TrimSpace(path) == "" {
		return "", &blob.StorageError{Op: "upload", Path: path, Err: errors.New("empty path")}
	}
	k := key(bucket, path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[k]; exists {
		return "", &blob.StorageError{Op: "upload", Path: path, Err: blob.ErrPathExists}
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[k] = object{data: stored, contentType: contentType}
	return blob.Ref(k), nil
}

func (s *Store) PublicURL(ref blob.Ref) string {
	return s.baseURL + "/" + string(ref)
}

func (s *Store) Remove(_ context.Context, ref blob.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[string(ref)]; !exists {
		return &blob.StorageError{Op: "remove", Path: string(ref), Err: blob.ErrObjectMissing}
	}
	delete(s.objects, string(ref))
	return nil
}

// Get returns a stored object, for assertions in tests.
func (s *Store) Get(ref blob.Ref) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[string(ref)]
	return o.data, o.contentType, ok
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
