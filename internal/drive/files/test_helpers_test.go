package files

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-cloud-drive/library/blob"
)

const (
	testUserID = "user-1"
	testEmail  = "owner@example.com"
)

// testClock returns a clock starting at a fixed instant that advances one second per call.
func testClock() Clock {
	var mu sync.Mutex
	now := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// faultyRepository wraps a MemoryRepository, fails Create on demand and
// runs afterQuery once, right after the next Query has read its records.
type faultyRepository struct {
	*MemoryRepository
	createErr  error
	afterQuery func()
}

// Query delegates, then runs and clears afterQuery.
func (r *faultyRepository) Query(ctx context.Context, q Query) ([]*FileRecord, error) {
	records, err := r.MemoryRepository.Query(ctx, q)
	if hook := r.afterQuery; hook != nil {
		r.afterQuery = nil
		hook()
	}
	return records, err
}

// Create fails with createErr when set.
func (r *faultyRepository) Create(ctx context.Context, rec *FileRecord) (*FileRecord, error) {
	if r.createErr != nil {
		return nil, storeWriteError("create file record", r.createErr)
	}
	return r.MemoryRepository.Create(ctx, rec)
}

// countingBlobStore wraps a MemoryStore, counts calls and injects failures.
type countingBlobStore struct {
	*blob.MemoryStore
	puts      atomic.Int32
	deletes   atomic.Int32
	putErr    error
	deleteErr error
}

// Put records the call and delegates unless putErr is set.
func (b *countingBlobStore) Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (blob.Object, error) {
	b.puts.Add(1)
	if b.putErr != nil {
		return blob.Object{}, b.putErr
	}
	return b.MemoryStore.Put(ctx, name, contentType, r, size)
}

// Delete records the call and delegates unless deleteErr is set or ctx is done.
func (b *countingBlobStore) Delete(ctx context.Context, id string) error {
	b.deletes.Add(1)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.MemoryStore.Delete(ctx, id)
}

// memoryListingCache is an in-memory generational ListingCache that records invalidations.
type memoryListingCache struct {
	mu          sync.Mutex
	gens        map[string]int64
	entries     map[string][]byte
	invalidated []string
}

func memoryCacheKey(path string, gen int64, key string) string {
	return fmt.Sprintf("%s|%d|%s", path, gen, key)
}

// Load returns a payload stored under the current generation of path.
func (c *memoryListingCache) Load(_ context.Context, path, key string) ([]byte, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.gens[path]
	payload, ok := c.entries[memoryCacheKey(path, gen, key)]
	return payload, gen, ok, nil
}

// Store keeps a payload under generation gen.
func (c *memoryListingCache) Store(_ context.Context, path, key string, gen int64, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]byte)
	}
	c.entries[memoryCacheKey(path, gen, key)] = payload
	return nil
}

// Invalidate moves path to a new generation.
func (c *memoryListingCache) Invalidate(_ context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens == nil {
		c.gens = make(map[string]int64)
	}
	c.gens[path]++
	c.invalidated = append(c.invalidated, path)
	return nil
}

// invalidations returns a copy of the invalidated paths.
func (c *memoryListingCache) invalidations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.invalidated...)
}

// testEnv bundles a service with its fakes.
type testEnv struct {
	svc   *Service
	repo  *faultyRepository
	blobs *countingBlobStore
	cache *memoryListingCache
}

// newTestService builds a service over in-memory fakes. mutate may adjust settings.
func newTestService(t *testing.T, mutate func(*Settings)) *testEnv {
	t.Helper()

	clock := testClock()
	settings := DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}

	env := &testEnv{
		repo:  &faultyRepository{MemoryRepository: NewMemoryRepository(clock)},
		blobs: &countingBlobStore{MemoryStore: blob.NewMemoryStore(clock)},
		cache: &memoryListingCache{},
	}
	svc, err := NewService(env.repo, env.blobs, env.cache, settings, nil, clock)
	require.NoError(t, err)
	env.svc = svc
	return env
}

// ownerCtx returns a context authenticated as the default test user.
func ownerCtx() context.Context {
	return WithIdentity(context.Background(), Identity{UserID: testUserID, Email: testEmail, AccountID: "acct-1"})
}

// userCtx returns a context authenticated as an arbitrary user.
func userCtx(userID, email string) context.Context {
	return WithIdentity(context.Background(), Identity{UserID: userID, Email: email})
}

// uploadBytes uploads size zero bytes named name as the context's caller.
func uploadBytes(t *testing.T, env *testEnv, ctx context.Context, name string, size int) *FileRecord {
	t.Helper()
	rec, err := env.svc.Upload(ctx, UploadRequest{
		Name: name,
		Size: int64(size),
		Body: strings.NewReader(strings.Repeat("x", size)),
	})
	require.NoError(t, err)
	return rec
}
