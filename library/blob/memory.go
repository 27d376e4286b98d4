package blob

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"
)

// MemoryStore keeps blobs in process memory for local runs.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	objects map[string]memoryObject
}

type memoryObject struct {
	data         []byte
	lastModified time.Time
}

// NewMemoryStore creates an empty store. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, objects: make(map[string]memoryObject)}
}

// Put reads r fully and stores it under a fresh id.
func (s *MemoryStore) Put(_ context.Context, name, _ string, r io.Reader, size int64) (Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, errors.Wrap(err, "read blob")
	}
	if size >= 0 && int64(len(data)) != size {
		return Object{}, errors.Errorf("blob %q: read %d bytes, expected %d", name, len(data), size)
	}

	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.objects[id] = memoryObject{data: data, lastModified: now}

	return Object{ID: id, Size: int64(len(data)), LastModified: now}, nil
}

// Delete removes the blob.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		return errors.Wrapf(ErrNotFound, "object %q", id)
	}
	delete(s.objects, id)
	return nil
}

// List visits blobs in id order.
func (s *MemoryStore) List(_ context.Context, fn func(Object) error) error {
	s.mu.Lock()
	objs := make([]Object, 0, len(s.objects))
	for id, obj := range s.objects {
		objs = append(objs, Object{ID: id, Size: int64(len(obj.data)), LastModified: obj.lastModified})
	}
	s.mu.Unlock()

	sort.Slice(objs, func(i, j int) bool { return objs[i].ID < objs[j].ID })
	for _, obj := range objs {
		if err := fn(obj); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Has reports whether id is stored.
func (s *MemoryStore) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[id]
	return ok
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
