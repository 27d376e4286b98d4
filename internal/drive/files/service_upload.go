package files

import (
	"context"
	"io"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/laisky-cloud-drive/library/blob"
)

// UploadRequest describes one file to store.
type UploadRequest struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
	// OwnerID defaults to the caller and must match it when set.
	OwnerID string
	// AccountID defaults to the caller's account.
	AccountID        string
	InvalidationPath string
}

// UploadStage is how far an upload got.
type UploadStage string

const (
	UploadStageRejected           UploadStage = "rejected"
	UploadStageBlobFailed         UploadStage = "blob_failed"
	UploadStageCompensated        UploadStage = "compensated"
	UploadStageCompensationFailed UploadStage = "compensation_failed"
	UploadStageCompleted          UploadStage = "completed"
)

// UploadOutcome is the typed result of one upload saga.
// BlobID is set whenever a blob was written, including when it is now orphaned.
type UploadOutcome struct {
	Name   string
	Stage  UploadStage
	BlobID string
	Record *FileRecord
	Err    error
}

// Upload stores the blob, then its record. When the record cannot be
// created the blob is deleted again and the record error is returned; if
// that delete fails too, a *CompensationError carrying both is returned.
// Calling Upload again after any failure is safe.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*FileRecord, error) {
	out := s.upload(ctx, req)
	return out.Record, out.Err
}

// UploadMany runs one upload saga per request concurrently and waits for all.
// Per-file failures are reported in the outcomes, in request order.
func (s *Service) UploadMany(ctx context.Context, reqs []UploadRequest) ([]UploadOutcome, error) {
	if _, err := requireIdentity(ctx); err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, NewError(ErrCodeValidation, "no files to upload", false)
	}
	if len(reqs) > s.settings.MaxUploadFiles {
		return nil, NewError(ErrCodeValidation, "too many files in one upload", false)
	}

	outcomes := make([]UploadOutcome, len(reqs))
	var pool errgroup.Group
	pool.SetLimit(s.settings.UploadConcurrency)
	for i := range reqs {
		pool.Go(func() error {
			outcomes[i] = s.upload(ctx, reqs[i])
			return nil
		})
	}
	_ = pool.Wait()

	return outcomes, nil
}

func (s *Service) upload(ctx context.Context, req UploadRequest) UploadOutcome {
	out := UploadOutcome{Name: req.Name, Stage: UploadStageRejected}

	id, err := requireIdentity(ctx)
	if err != nil {
		out.Err = err
		return out
	}
	if err = s.validateUpload(ctx, id, &req); err != nil {
		out.Err = err
		return out
	}
	logger := s.LoggerFromContext(ctx)

	obj, err := s.blobs.Put(ctx, req.Name, req.ContentType, req.Body, req.Size)
	if err != nil {
		out.Stage = UploadStageBlobFailed
		out.Err = storeWriteError("store blob", err)
		return out
	}
	out.BlobID = obj.ID
	if obj.Size != req.Size {
		logger.Warn("blob store reported a different size",
			zap.String("blob_id", obj.ID),
			zap.Int64("requested", req.Size),
			zap.Int64("reported", obj.Size))
	}

	fileType, ext := FileTypeOf(req.Name)
	rec, err := s.repo.Create(ctx, &FileRecord{
		BlobID:     obj.ID,
		Name:       req.Name,
		Type:       fileType,
		Extension:  ext,
		Size:       obj.Size,
		Owner:      req.OwnerID,
		AccountID:  req.AccountID,
		SharedWith: []string{},
	})
	if err != nil {
		return s.compensateUpload(ctx, out, err)
	}

	out.Stage = UploadStageCompleted
	out.Record = rec
	s.invalidate(ctx, req.InvalidationPath)
	logger.Info("file uploaded",
		zap.String("file_id", rec.ID.Hex()),
		zap.String("blob_id", obj.ID),
		zap.String("name", req.Name),
		zap.Int64("size", rec.Size))
	return out
}

// compensateUpload removes the blob written for a failed record create.
func (s *Service) compensateUpload(ctx context.Context, out UploadOutcome, createErr error) UploadOutcome {
	logger := s.LoggerFromContext(ctx)

	// the rollback must run even if the caller has gone away
	cerr := s.blobs.Delete(context.WithoutCancel(ctx), out.BlobID)
	if cerr != nil && !errors.Is(cerr, blob.ErrNotFound) {
		logger.Error("compensating blob delete failed, blob is orphaned",
			zap.String("blob_id", out.BlobID), zap.Error(cerr), zap.NamedError("cause", createErr))
		out.Stage = UploadStageCompensationFailed
		out.Err = &CompensationError{Original: createErr, Compensation: cerr, BlobID: out.BlobID}
		return out
	}

	logger.Warn("file record create failed, blob removed",
		zap.String("blob_id", out.BlobID), zap.Error(createErr))
	out.Stage = UploadStageCompensated
	out.Err = errors.WithStack(createErr)
	return out
}

// validateUpload checks the request before any store is touched and fills defaults.
func (s *Service) validateUpload(ctx context.Context, id Identity, req *UploadRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Name == "":
		return NewError(ErrCodeValidation, "file name is required", false)
	case strings.ContainsAny(req.Name, "/\\"):
		return NewError(ErrCodeValidation, "file name must not contain path separators", false)
	case req.Body == nil:
		return NewError(ErrCodeValidation, "file body is required", false)
	case req.Size < 0:
		return NewError(ErrCodeValidation, "file size must not be negative", false)
	case req.Size > s.settings.MaxUploadBytes:
		return NewError(ErrCodeValidation, "file exceeds the maximum upload size", false)
	}

	if req.OwnerID == "" {
		req.OwnerID = id.UserID
	}
	if req.OwnerID != id.UserID {
		return NewError(ErrCodePermissionDenied, "cannot upload on behalf of another user", false)
	}
	if req.AccountID == "" {
		req.AccountID = id.AccountID
	}

	if s.settings.EnforceQuota {
		usage, err := s.aggregateFor(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		if usage.Used+req.Size > usage.Cap {
			return NewError(ErrCodeValidation, "storage quota exceeded", false)
		}
	}

	return nil
}
