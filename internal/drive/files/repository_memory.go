package files

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository keeps records in process memory.
// It backs local development (settings.drive.metadata.backend: memory) and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	clock   Clock
	seq     int64
	records map[primitive.ObjectID]*memoryRecord
}

type memoryRecord struct {
	seq int64
	rec FileRecord
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository(clock Clock) *MemoryRepository {
	if clock == nil {
		clock = defaultClock
	}
	return &MemoryRepository{
		clock:   clock,
		records: make(map[primitive.ObjectID]*memoryRecord),
	}
}

// Create stores a copy of rec.
func (r *MemoryRepository) Create(_ context.Context, rec *FileRecord) (*FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	doc := cloneRecord(rec)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.Revision = 1

	r.seq++
	r.records[doc.ID] = &memoryRecord{seq: r.seq, rec: *doc}
	return cloneRecord(doc), nil
}

// Get returns a copy of the stored record.
func (r *MemoryRepository) Get(_ context.Context, id string) (*FileRecord, error) {
	oid, err := parseRecordID(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.records[oid]
	if !ok {
		return nil, notFoundError(id)
	}
	return cloneRecord(&stored.rec), nil
}

// Query filters, sorts by the requested key then insertion order, and limits.
func (r *MemoryRepository) Query(_ context.Context, q Query) ([]*FileRecord, error) {
	r.mu.RLock()
	matched := make([]*memoryRecord, 0, len(r.records))
	for _, stored := range r.records {
		if q.Matches(&stored.rec) {
			copied := *stored
			copied.rec = *cloneRecord(&stored.rec)
			matched = append(matched, &copied)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if c := compareBySort(&matched[i].rec, &matched[j].rec, q.Sort.Field); c != 0 {
			if q.Sort.Desc {
				return c > 0
			}
			return c < 0
		}
		return matched[i].seq < matched[j].seq
	})

	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]*FileRecord, 0, len(matched))
	for _, m := range matched {
		rec := m.rec
		out = append(out, &rec)
	}
	return out, nil
}

// Update merges patch into the stored record.
func (r *MemoryRepository) Update(_ context.Context, id string, patch FilePatch) (*FileRecord, error) {
	oid, err := parseRecordID(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[oid]
	if !ok {
		return nil, notFoundError(id)
	}
	if patch.ExpectedRevision > 0 && stored.rec.Revision != patch.ExpectedRevision {
		return nil, conflictError(id, patch.ExpectedRevision)
	}

	if patch.Name != nil {
		stored.rec.Name = *patch.Name
	}
	if patch.ReplaceShares {
		stored.rec.SharedWith = append([]string{}, patch.SharedWith...)
	}
	stored.rec.Revision++
	stored.rec.UpdatedAt = r.clock()

	return cloneRecord(&stored.rec), nil
}

// Delete removes the record.
func (r *MemoryRepository) Delete(_ context.Context, id string) (*FileRecord, error) {
	oid, err := parseRecordID(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[oid]
	if !ok {
		return nil, notFoundError(id)
	}
	delete(r.records, oid)
	return cloneRecord(&stored.rec), nil
}

// ExistingBlobIDs reports which of blobIDs still have a record.
func (r *MemoryRepository) ExistingBlobIDs(_ context.Context, blobIDs []string) (map[string]struct{}, error) {
	wanted := make(map[string]struct{}, len(blobIDs))
	for _, id := range blobIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	found := make(map[string]struct{})
	for _, stored := range r.records {
		if _, ok := wanted[stored.rec.BlobID]; ok {
			found[stored.rec.BlobID] = struct{}{}
		}
	}
	return found, nil
}

// compareBySort orders two records by a sort field.
func compareBySort(a, b *FileRecord, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "size":
		return compareInt64(a.Size, b.Size)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cloneRecord(rec *FileRecord) *FileRecord {
	doc := *rec
	doc.SharedWith = append([]string{}, rec.SharedWith...)
	return &doc
}
