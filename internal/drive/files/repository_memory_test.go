package files

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// seedRecords inserts owned records in order.
func seedRecords(t *testing.T, repo *MemoryRepository, recs ...FileRecord) []*FileRecord {
	t.Helper()
	out := make([]*FileRecord, 0, len(recs))
	for i := range recs {
		rec := recs[i]
		if rec.Owner == "" {
			rec.Owner = "u1"
		}
		created, err := repo.Create(context.Background(), &rec)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

// TestMemoryRepositorySizeAscending verifies size-asc results are non-decreasing.
func TestMemoryRepositorySizeAscending(t *testing.T) {
	repo := NewMemoryRepository(testClock())
	seedRecords(t, repo,
		FileRecord{Name: "c", Size: 30},
		FileRecord{Name: "a", Size: 10},
		FileRecord{Name: "b", Size: 20},
		FileRecord{Name: "d", Size: 10},
	)

	got, err := repo.Query(context.Background(), BuildQuery(ListRequest{OwnerID: "u1", Sort: "size-asc"}))
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].Size, got[i].Size)
	}
}

// TestMemoryRepositoryNameDescTies verifies equal names keep insertion order.
func TestMemoryRepositoryNameDescTies(t *testing.T) {
	repo := NewMemoryRepository(testClock())
	seeded := seedRecords(t, repo,
		FileRecord{Name: "same", BlobID: "first"},
		FileRecord{Name: "alpha", BlobID: "alpha"},
		FileRecord{Name: "same", BlobID: "second"},
		FileRecord{Name: "zulu", BlobID: "zulu"},
		FileRecord{Name: "same", BlobID: "third"},
	)
	require.Len(t, seeded, 5)

	got, err := repo.Query(context.Background(), BuildQuery(ListRequest{OwnerID: "u1", Sort: "name-desc"}))
	require.NoError(t, err)

	blobs := make([]string, 0, len(got))
	for _, rec := range got {
		blobs = append(blobs, rec.BlobID)
	}
	require.Equal(t, []string{"zulu", "first", "second", "third", "alpha"}, blobs)
}

// TestMemoryRepositoryLimit verifies the limit is honored exactly.
func TestMemoryRepositoryLimit(t *testing.T) {
	repo := NewMemoryRepository(testClock())
	seedRecords(t, repo, FileRecord{Name: "a"}, FileRecord{Name: "b"}, FileRecord{Name: "c"})

	got, err := repo.Query(context.Background(), BuildQuery(ListRequest{OwnerID: "u1", Limit: 2}))
	require.NoError(t, err)
	require.Len(t, got, 2)
	// createdAt-desc by default
	require.Equal(t, "c", got[0].Name)
	require.Equal(t, "b", got[1].Name)
}

// TestMemoryRepositoryUpdate verifies partial merge, updatedAt refresh and revision checks.
func TestMemoryRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(testClock())
	rec := seedRecords(t, repo, FileRecord{Name: "a.txt", Extension: "txt", SharedWith: []string{"x@y"}})[0]
	require.Equal(t, int64(1), rec.Revision)

	name := "b.txt"
	updated, err := repo.Update(ctx, rec.ID.Hex(), FilePatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "b.txt", updated.Name)
	require.Equal(t, []string{"x@y"}, updated.SharedWith)
	require.Equal(t, int64(2), updated.Revision)
	require.True(t, updated.UpdatedAt.After(rec.UpdatedAt))
	require.Equal(t, rec.CreatedAt, updated.CreatedAt)

	_, err = repo.Update(ctx, rec.ID.Hex(), FilePatch{ReplaceShares: true, ExpectedRevision: 1})
	require.True(t, IsCode(err, ErrCodeConflict))

	updated, err = repo.Update(ctx, rec.ID.Hex(), FilePatch{ReplaceShares: true, ExpectedRevision: 2})
	require.NoError(t, err)
	require.Empty(t, updated.SharedWith)
}

// TestMemoryRepositoryDeleteTwice verifies the second delete reports NOT_FOUND.
func TestMemoryRepositoryDeleteTwice(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(testClock())
	rec := seedRecords(t, repo, FileRecord{Name: "a", BlobID: "b1"})[0]

	deleted, err := repo.Delete(ctx, rec.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "b1", deleted.BlobID)

	_, err = repo.Delete(ctx, rec.ID.Hex())
	require.True(t, IsCode(err, ErrCodeNotFound))

	_, err = repo.Get(ctx, "not-an-object-id")
	require.True(t, IsCode(err, ErrCodeNotFound))
}

// TestMemoryRepositoryExistingBlobIDs verifies referenced blobs are reported.
func TestMemoryRepositoryExistingBlobIDs(t *testing.T) {
	repo := NewMemoryRepository(testClock())
	seedRecords(t, repo, FileRecord{BlobID: "b1"}, FileRecord{BlobID: "b2"})

	found, err := repo.ExistingBlobIDs(context.Background(), []string{"b1", "b3"})
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"b1": {}}, found)
}
