package memory

import (
	"context"
	"errors"
	"io"
	"sync"

	"deskhub/internal/infra/storage/s3"
)

var ErrObjectNotFound = errors.New("memory: object not found")

// FileStore is an in-memory blob store standing in for the S3 bucket in
// tests and local dev.
type FileStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewFileStore() *FileStore {
	return &FileStore{objects: make(map[string][]byte)}
}

func (s *FileStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if reader == nil {
		return errors.New("memory: reader is required")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *FileStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

// Has reports whether a blob is stored under key.
func (s *FileStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

var _ s3.Store = (*FileStore)(nil)
