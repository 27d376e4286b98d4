package files

import (
	"context"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-cloud-drive/library/blob"
)

// RenameRequest changes a file's display name, keeping its extension.
type RenameRequest struct {
	FileID      string
	NewBaseName string
	// ExpectedRevision, when non-zero, rejects the rename if the file changed meanwhile.
	ExpectedRevision int64
	InvalidationPath string
}

// Rename sets the name to "{NewBaseName}.{extension}". Renaming twice with
// the same base name yields the same name.
func (s *Service) Rename(ctx context.Context, req RenameRequest) (*FileRecord, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSpace(req.NewBaseName)
	switch {
	case base == "":
		return nil, NewError(ErrCodeValidation, "new name is required", false)
	case strings.ContainsAny(base, "/\\"):
		return nil, NewError(ErrCodeValidation, "new name must not contain path separators", false)
	}

	rec, err := s.loadOwned(ctx, id, req.FileID)
	if err != nil {
		return nil, err
	}

	name := base
	if rec.Extension != "" {
		name = base + "." + rec.Extension
	}
	updated, err := s.repo.Update(ctx, req.FileID, FilePatch{
		Name:             &name,
		ExpectedRevision: req.ExpectedRevision,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.invalidate(ctx, req.InvalidationPath)
	s.LoggerFromContext(ctx).Info("file renamed",
		zap.String("file_id", req.FileID), zap.String("name", name))
	return updated, nil
}

// ShareRequest replaces the set of emails a file is shared with.
type ShareRequest struct {
	FileID           string
	Emails           []string
	ExpectedRevision int64
	InvalidationPath string
}

// Share replaces sharedWith wholesale. An empty list unshares the file.
func (s *Service) Share(ctx context.Context, req ShareRequest) (*FileRecord, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	emails, err := normalizeShareEmails(req.Emails)
	if err != nil {
		return nil, err
	}
	if _, err = s.loadOwned(ctx, id, req.FileID); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, req.FileID, FilePatch{
		SharedWith:       emails,
		ReplaceShares:    true,
		ExpectedRevision: req.ExpectedRevision,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.invalidate(ctx, req.InvalidationPath)
	s.LoggerFromContext(ctx).Info("file shares replaced",
		zap.String("file_id", req.FileID), zap.Int("recipients", len(emails)))
	return updated, nil
}

// normalizeShareEmails trims, lower-cases and de-duplicates emails, keeping first-seen order.
func normalizeShareEmails(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, email := range raw {
		email = normalizeEmail(email)
		if email == "" {
			continue
		}
		at := strings.Index(email, "@")
		if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 || strings.ContainsAny(email, " \t") {
			return nil, NewError(ErrCodeValidation, "invalid email "+email, false)
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out, nil
}

// DeleteRequest removes a file and its blob.
type DeleteRequest struct {
	FileID string
	// BlobID is optional; the stored record's blob id is authoritative.
	BlobID           string
	InvalidationPath string
}

// DeleteResult reports what Delete removed.
// OrphanBlob is set when the record is gone but its blob could not be removed.
type DeleteResult struct {
	Record     *FileRecord
	OrphanBlob bool
}

// Delete removes the record first, then the blob. A blob failure leaves an
// orphan for the reconcile sweep and does not fail the call. An unknown id
// fails with NOT_FOUND before the blob store is touched.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) (*DeleteResult, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if _, err = s.loadOwned(ctx, id, req.FileID); err != nil {
		return nil, err
	}

	rec, err := s.repo.Delete(ctx, req.FileID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger := s.LoggerFromContext(ctx)
	if req.BlobID != "" && req.BlobID != rec.BlobID {
		logger.Warn("delete request blob id does not match record",
			zap.String("file_id", req.FileID),
			zap.String("requested_blob_id", req.BlobID),
			zap.String("blob_id", rec.BlobID))
	}

	// the record is already gone, a caller hanging up now must not orphan the blob
	result := &DeleteResult{Record: rec}
	if err = s.blobs.Delete(context.WithoutCancel(ctx), rec.BlobID); err != nil && !errors.Is(err, blob.ErrNotFound) {
		result.OrphanBlob = true
		logger.Warn("file record deleted but blob delete failed, blob is orphaned",
			zap.String("file_id", req.FileID),
			zap.String("blob_id", rec.BlobID),
			zap.Error(err))
	}

	s.invalidate(ctx, req.InvalidationPath)
	logger.Info("file deleted", zap.String("file_id", req.FileID), zap.String("blob_id", rec.BlobID))
	return result, nil
}
