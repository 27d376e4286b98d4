// Package files manages file records, their blobs, and per-user storage accounting.
package files

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/ctxkeys"
	"github.com/Laisky/laisky-cloud-drive/library/log"
)

// Service coordinates the metadata repository, the blob store and the listing cache.
// It holds no per-record locks; each call is an independent unit of work.
type Service struct {
	repo     Repository
	blobs    BlobStore
	cache    ListingCache
	settings Settings
	logger   logSDK.Logger
	clock    Clock
}

// NewService constructs a drive file service.
func NewService(repo Repository, blobs BlobStore, cache ListingCache, settings Settings, logger logSDK.Logger, clock Clock) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if cache == nil {
		cache = NopListingCache{}
	}
	if logger == nil {
		logger = log.Logger.Named("drive_files_service")
	}
	if clock == nil {
		clock = defaultClock
	}

	return &Service{
		repo:     repo,
		blobs:    blobs,
		cache:    cache,
		settings: settings.normalized(),
		logger:   logger,
		clock:    clock,
	}, nil
}

// Settings returns the effective settings.
func (s *Service) Settings() Settings {
	return s.settings
}

// LoggerFromContext returns the request-scoped logger when available.
func (s *Service) LoggerFromContext(ctx context.Context) logSDK.Logger {
	if ctx != nil {
		if ctxLogger := gmw.GetLogger(ctx); ctxLogger != nil {
			return ctxLogger
		}
		if ctxLogger, ok := ctx.Value(ctxkeys.Logger).(logSDK.Logger); ok && ctxLogger != nil {
			return ctxLogger
		}
	}
	if s != nil && s.logger != nil {
		return s.logger
	}
	return log.Logger.Named("drive_files_fallback")
}

// invalidate drops cached listings for path. A cache failure never fails
// the mutation that already succeeded; it is logged instead.
func (s *Service) invalidate(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, path); err != nil {
		s.LoggerFromContext(ctx).Warn("invalidate listing cache",
			zap.String("path", path), zap.Error(err))
	}
}

// loadOwned fetches a record and checks that the caller owns it.
func (s *Service) loadOwned(ctx context.Context, id Identity, fileID string) (*FileRecord, error) {
	rec, err := s.repo.Get(ctx, fileID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if rec.Owner != id.UserID {
		if rec.VisibleTo(id.UserID, id.Email) {
			return nil, NewError(ErrCodePermissionDenied, "only the owner can modify file "+fileID, false)
		}
		return nil, notFoundError(fileID)
	}
	return rec, nil
}
