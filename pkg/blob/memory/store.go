// Package memory provides an in-memory blob.Store for tests and local
// development. Presigned URLs are fake but stable, so handler tests can
// assert on them without a running object store.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/blob"
)

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Store is an in-memory blob.Store. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object

	// FailDelete makes Delete return an error, for janitor retry tests.
	FailDelete bool
	// FailPresign makes the presign methods fail, simulating upstream outage.
	FailPresign bool
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{objects: make(map[string]object)}
}

var _ blob.Store = (*Store)(nil)

// PresignPut returns a fake upload URL embedding the key.
func (s *Store) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if s.FailPresign {
		return "", fmt.Errorf("memory: presign unavailable")
	}
	return fmt.Sprintf("https://blob.invalid/put/%s?ct=%s&ttl=%d",
		url.PathEscape(key), url.QueryEscape(contentType), int(ttl.Seconds())), nil
}

// PresignGet returns a fake download URL embedding the key.
func (s *Store) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.FailPresign {
		return "", fmt.Errorf("memory: presign unavailable")
	}
	return fmt.Sprintf("https://blob.invalid/get/%s?ttl=%d",
		url.PathEscape(key), int(ttl.Seconds())), nil
}

// Put stores the body under key.
func (s *Store) Put(_ context.Context, key, contentType string, size int64, body io.Reader) error {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, body)
	if err != nil {
		return err
	}
	if size >= 0 && n != size {
		return fmt.Errorf("memory: body length %d does not match declared size %d", n, size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: buf.Bytes(), contentType: contentType, modified: time.Now()}
	return nil
}

// Delete removes an object. Absence is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	if s.FailDelete {
		return fmt.Errorf("memory: delete unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Head returns object metadata, or (nil, nil) when absent.
func (s *Store) Head(_ context.Context, key string) (*blob.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, nil
	}
	return &blob.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
	}, nil
}

// Get returns stored bytes, for test assertions.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return obj.data, true
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
