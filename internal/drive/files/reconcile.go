package files

import (
	"context"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-cloud-drive/library/blob"
)

const reconcileBatchSize = 200

// ReconcileReport summarizes one orphan sweep.
type ReconcileReport struct {
	Scanned int      `json:"scanned"`
	Orphans []string `json:"orphans"`
	Deleted int      `json:"deleted"`
	Failed  int      `json:"failed"`
}

// SweepOrphanBlobs deletes blobs that no record references and that are
// older than grace. Younger blobs may belong to an upload still in flight.
// With dryRun the orphans are only reported.
func (s *Service) SweepOrphanBlobs(ctx context.Context, grace time.Duration, dryRun bool) (*ReconcileReport, error) {
	logger := s.LoggerFromContext(ctx)
	cutoff := s.clock().Add(-grace)
	report := &ReconcileReport{Orphans: []string{}}

	batch := make([]string, 0, reconcileBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		existing, err := s.repo.ExistingBlobIDs(ctx, batch)
		if err != nil {
			return errors.Wrap(err, "check blob references")
		}

		for _, blobID := range batch {
			if _, ok := existing[blobID]; ok {
				continue
			}
			report.Orphans = append(report.Orphans, blobID)
			if dryRun {
				continue
			}
			if err := s.blobs.Delete(ctx, blobID); err != nil && !errors.Is(err, blob.ErrNotFound) {
				report.Failed++
				logger.Warn("delete orphan blob", zap.String("blob_id", blobID), zap.Error(err))
				continue
			}
			report.Deleted++
		}

		batch = batch[:0]
		return nil
	}

	err := s.blobs.List(ctx, func(obj blob.Object) error {
		report.Scanned++
		if obj.LastModified.After(cutoff) {
			return nil
		}
		batch = append(batch, obj.ID)
		if len(batch) >= reconcileBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return report, errors.Wrap(err, "list blobs")
	}
	if err = flush(); err != nil {
		return report, err
	}

	logger.Info("orphan blob sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("orphans", len(report.Orphans)),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed),
		zap.Bool("dry_run", dryRun))
	return report, nil
}
