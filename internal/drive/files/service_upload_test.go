package files

import (
	"context"
	"fmt"
	"strings"
	"testing"

	errors "github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-cloud-drive/library/blob"
)

// TestUploadDerivesType verifies the record type and extension come from the name.
func TestUploadDerivesType(t *testing.T) {
	env := newTestService(t, nil)

	cases := map[string]FileType{
		"report.pdf": FileTypeDocument,
		"song.flac":  FileTypeAudio,
		"data.xyz":   FileTypeOther,
	}
	for name, typ := range cases {
		rec := uploadBytes(t, env, ownerCtx(), name, 4)
		require.Equal(t, typ, rec.Type, name)
		require.Equal(t, name, rec.Name)
		require.Equal(t, int64(4), rec.Size)
		require.Equal(t, testUserID, rec.Owner)
		require.Equal(t, "acct-1", rec.AccountID)
		require.Empty(t, rec.SharedWith)
		require.True(t, env.blobs.Has(rec.BlobID))
	}
}

// TestUploadCompensatesOnRecordFailure verifies the blob is removed and the original error returned.
func TestUploadCompensatesOnRecordFailure(t *testing.T) {
	env := newTestService(t, nil)
	env.repo.createErr = errors.New("metadata store unavailable")

	out := env.svc.upload(ownerCtx(), UploadRequest{Name: "a.pdf", Size: 3, Body: strings.NewReader("abc")})
	require.Error(t, out.Err)
	require.True(t, IsCode(out.Err, ErrCodeStoreWrite))
	require.Contains(t, out.Err.Error(), "metadata store unavailable")
	require.Equal(t, UploadStageCompensated, out.Stage)
	require.NotEmpty(t, out.BlobID)
	require.False(t, env.blobs.Has(out.BlobID))
	require.Equal(t, 0, env.blobs.Len())
	require.Equal(t, int32(1), env.blobs.deletes.Load())
	require.Empty(t, env.cache.invalidations())
}

// TestUploadReportsCompensationFailure verifies both failures are surfaced.
func TestUploadReportsCompensationFailure(t *testing.T) {
	env := newTestService(t, nil)
	createErr := errors.New("metadata store unavailable")
	deleteErr := errors.New("blob store unavailable")
	env.repo.createErr = createErr
	env.blobs.deleteErr = deleteErr

	out := env.svc.upload(ownerCtx(), UploadRequest{Name: "a.pdf", Size: 3, Body: strings.NewReader("abc")})
	require.Equal(t, UploadStageCompensationFailed, out.Stage)
	require.True(t, IsCode(out.Err, ErrCodeCompensationFailure))
	require.ErrorIs(t, out.Err, createErr)
	require.ErrorIs(t, out.Err, deleteErr)

	var comp *CompensationError
	require.ErrorAs(t, out.Err, &comp)
	require.Equal(t, out.BlobID, comp.BlobID)
	require.True(t, env.blobs.Has(out.BlobID))
}

// TestUploadRetryAfterFailure verifies a failed upload can simply be retried.
func TestUploadRetryAfterFailure(t *testing.T) {
	env := newTestService(t, nil)
	env.repo.createErr = errors.New("transient")

	_, err := env.svc.Upload(ownerCtx(), UploadRequest{Name: "a.pdf", Size: 1, Body: strings.NewReader("a")})
	require.Error(t, err)

	env.repo.createErr = nil
	rec := uploadBytes(t, env, ownerCtx(), "a.pdf", 1)
	require.Equal(t, 1, env.blobs.Len())
	require.True(t, env.blobs.Has(rec.BlobID))
}

// TestUploadRejectsOversizeBeforeStore verifies no store call happens for an oversized file.
func TestUploadRejectsOversizeBeforeStore(t *testing.T) {
	env := newTestService(t, func(s *Settings) { s.MaxUploadBytes = 8 })

	_, err := env.svc.Upload(ownerCtx(), UploadRequest{Name: "big.mp4", Size: 9, Body: strings.NewReader("123456789")})
	require.True(t, IsCode(err, ErrCodeValidation))
	require.Equal(t, int32(0), env.blobs.puts.Load())
}

// TestUploadRejectsWhenQuotaExceeded verifies quota enforcement when enabled.
func TestUploadRejectsWhenQuotaExceeded(t *testing.T) {
	env := newTestService(t, func(s *Settings) {
		s.EnforceQuota = true
		s.QuotaCapBytes = 10
	})
	uploadBytes(t, env, ownerCtx(), "a.txt", 6)

	_, err := env.svc.Upload(ownerCtx(), UploadRequest{Name: "b.txt", Size: 5, Body: strings.NewReader("12345")})
	require.True(t, IsCode(err, ErrCodeValidation))
	require.Equal(t, int32(1), env.blobs.puts.Load())
}

// TestUploadRequiresIdentity verifies anonymous uploads fail.
func TestUploadRequiresIdentity(t *testing.T) {
	env := newTestService(t, nil)

	_, err := env.svc.Upload(context.Background(), UploadRequest{Name: "a.pdf", Size: 1, Body: strings.NewReader("a")})
	require.True(t, IsCode(err, ErrCodeNotAuthenticated))

	_, err = env.svc.Upload(ownerCtx(), UploadRequest{Name: "a.pdf", Size: 1, Body: strings.NewReader("a"), OwnerID: "someone-else"})
	require.True(t, IsCode(err, ErrCodePermissionDenied))
	require.Equal(t, int32(0), env.blobs.puts.Load())
}

// TestUploadBlobFailure verifies a failed put creates no record.
func TestUploadBlobFailure(t *testing.T) {
	env := newTestService(t, nil)
	env.blobs.putErr = errors.New("bucket gone")

	out := env.svc.upload(ownerCtx(), UploadRequest{Name: "a.pdf", Size: 1, Body: strings.NewReader("a")})
	require.Equal(t, UploadStageBlobFailed, out.Stage)
	require.True(t, IsCode(out.Err, ErrCodeStoreWrite))

	got, err := env.svc.ListFiles(ownerCtx(), ListFilesRequest{})
	require.NoError(t, err)
	require.Empty(t, got.Files)
}

// TestUploadInvalidatesPath verifies a successful upload drops the cached listing.
func TestUploadInvalidatesPath(t *testing.T) {
	env := newTestService(t, nil)

	_, err := env.svc.Upload(ownerCtx(), UploadRequest{
		Name:             "a.pdf",
		Size:             1,
		Body:             strings.NewReader("a"),
		InvalidationPath: "/documents",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"/documents"}, env.cache.invalidations())
}

// TestUploadManyConcurrent verifies every file gets its own outcome in request order.
func TestUploadManyConcurrent(t *testing.T) {
	env := newTestService(t, func(s *Settings) { s.MaxUploadBytes = 10 })

	reqs := make([]UploadRequest, 0, 6)
	for i := 0; i < 5; i++ {
		reqs = append(reqs, UploadRequest{
			Name: fmt.Sprintf("f%d.png", i),
			Size: 2,
			Body: strings.NewReader("ab"),
		})
	}
	reqs = append(reqs, UploadRequest{Name: "huge.mov", Size: 11, Body: strings.NewReader(strings.Repeat("x", 11))})

	outcomes, err := env.svc.UploadMany(ownerCtx(), reqs)
	require.NoError(t, err)
	require.Len(t, outcomes, 6)
	for i := 0; i < 5; i++ {
		require.NoError(t, outcomes[i].Err)
		require.Equal(t, UploadStageCompleted, outcomes[i].Stage)
		require.Equal(t, fmt.Sprintf("f%d.png", i), outcomes[i].Record.Name)
	}
	require.True(t, IsCode(outcomes[5].Err, ErrCodeValidation))
	require.Equal(t, UploadStageRejected, outcomes[5].Stage)
	require.Equal(t, 5, env.blobs.Len())
}

// TestUploadManyLimits verifies batch-level validation.
func TestUploadManyLimits(t *testing.T) {
	env := newTestService(t, func(s *Settings) { s.MaxUploadFiles = 1 })

	_, err := env.svc.UploadMany(ownerCtx(), nil)
	require.True(t, IsCode(err, ErrCodeValidation))

	_, err = env.svc.UploadMany(ownerCtx(), []UploadRequest{{Name: "a"}, {Name: "b"}})
	require.True(t, IsCode(err, ErrCodeValidation))

	_, err = env.svc.UploadMany(context.Background(), []UploadRequest{{Name: "a"}})
	require.True(t, IsCode(err, ErrCodeNotAuthenticated))
}

// TestNewServiceNormalizesSettings verifies hand-built settings get the same
// floors as loaded ones, so concurrent uploads still make progress.
func TestNewServiceNormalizesSettings(t *testing.T) {
	clock := testClock()
	svc, err := NewService(NewMemoryRepository(clock), blob.NewMemoryStore(clock), nil, Settings{MaxUploadFiles: 5}, nil, clock)
	require.NoError(t, err)

	got := svc.Settings()
	require.Equal(t, 5, got.MaxUploadFiles)
	require.Equal(t, 4, got.UploadConcurrency)
	require.Equal(t, DefaultMaxUploadBytes, got.MaxUploadBytes)
	require.Equal(t, int64(1000), got.ListLimitMax)

	outcomes, err := svc.UploadMany(ownerCtx(), []UploadRequest{
		{Name: "a.txt", Size: 1, Body: strings.NewReader("a")},
		{Name: "b.txt", Size: 1, Body: strings.NewReader("b")},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, out := range outcomes {
		require.NoError(t, out.Err)
	}
}
