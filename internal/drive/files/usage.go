package files

import (
	"context"
	"time"

	errors "github.com/Laisky/errors/v2"
)

// UsageBucket is the storage consumed by one file type.
// LatestDate is the zero time when the bucket is empty.
type UsageBucket struct {
	Type       FileType  `json:"type"`
	Size       int64     `json:"size"`
	LatestDate time.Time `json:"latest_date"`
}

// UsageAggregate is a user's storage consumption, owned files only.
type UsageAggregate struct {
	Buckets [5]UsageBucket `json:"buckets"`
	Used    int64          `json:"used"`
	Cap     int64          `json:"cap"`
}

// Bucket returns the bucket for t.
func (a UsageAggregate) Bucket(t FileType) UsageBucket {
	return a.Buckets[bucketIndex(t)]
}

// Available returns the remaining allowance, never negative.
func (a UsageAggregate) Available() int64 {
	if a.Used >= a.Cap {
		return 0
	}
	return a.Cap - a.Used
}

// bucketIndex places a FileType in UsageAggregate.Buckets.
func bucketIndex(t FileType) int {
	switch t {
	case FileTypeDocument:
		return 0
	case FileTypeImage:
		return 1
	case FileTypeVideo:
		return 2
	case FileTypeAudio:
		return 3
	default:
		return 4
	}
}

// Aggregate sums sizes per type and tracks the latest UpdatedAt of each.
func Aggregate(records []*FileRecord, capBytes int64) UsageAggregate {
	agg := UsageAggregate{Cap: capBytes}
	for _, t := range AllFileTypes() {
		agg.Buckets[bucketIndex(t)].Type = t
	}

	for _, rec := range records {
		b := &agg.Buckets[bucketIndex(rec.Type)]
		b.Size += rec.Size
		b.LatestDate = laterOf(b.LatestDate, rec.UpdatedAt)
		agg.Used += rec.Size
	}

	return agg
}

// UsageCategory is a row of the usage summary.
type UsageCategory string

const (
	UsageCategoryDocument UsageCategory = "document"
	UsageCategoryImage    UsageCategory = "image"
	UsageCategoryMedia    UsageCategory = "media"
	UsageCategoryOther    UsageCategory = "other"
)

// UsageSummaryEntry is one row of the usage summary.
type UsageSummaryEntry struct {
	Category   UsageCategory `json:"category"`
	Size       int64         `json:"size"`
	LatestDate time.Time     `json:"latest_date"`
}

// Summarize folds video and audio into a single media row.
func Summarize(agg UsageAggregate) []UsageSummaryEntry {
	video := agg.Bucket(FileTypeVideo)
	audio := agg.Bucket(FileTypeAudio)
	row := func(c UsageCategory, b UsageBucket) UsageSummaryEntry {
		return UsageSummaryEntry{Category: c, Size: b.Size, LatestDate: b.LatestDate}
	}

	return []UsageSummaryEntry{
		row(UsageCategoryDocument, agg.Bucket(FileTypeDocument)),
		row(UsageCategoryImage, agg.Bucket(FileTypeImage)),
		{
			Category:   UsageCategoryMedia,
			Size:       video.Size + audio.Size,
			LatestDate: laterOf(video.LatestDate, audio.LatestDate),
		},
		row(UsageCategoryOther, agg.Bucket(FileTypeOther)),
	}
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// Usage aggregates the caller's owned files against the quota cap.
func (s *Service) Usage(ctx context.Context) (*UsageAggregate, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregateFor(ctx, id.UserID)
}

// UsageSummary returns the caller's usage with media merged.
func (s *Service) UsageSummary(ctx context.Context) ([]UsageSummaryEntry, error) {
	agg, err := s.Usage(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(*agg), nil
}

func (s *Service) aggregateFor(ctx context.Context, ownerID string) (*UsageAggregate, error) {
	records, err := s.repo.Query(ctx, OwnedQuery(ownerID))
	if err != nil {
		return nil, errors.Wrap(err, "query owned files")
	}
	agg := Aggregate(records, s.settings.QuotaCapBytes)
	return &agg, nil
}
