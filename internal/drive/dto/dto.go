// Package dto renders drive records for the HTTP and MCP surfaces.
package dto

import (
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
)

// File is the caller-facing snapshot of a FileRecord.
type File struct {
	ID         string         `json:"id" copier:"-"`
	BlobID     string         `json:"blob_id"`
	Name       string         `json:"name"`
	BaseName   string         `json:"base_name" copier:"-"`
	Type       files.FileType `json:"type"`
	Extension  string         `json:"extension"`
	Size       int64          `json:"size"`
	Owner      string         `json:"owner"`
	AccountID  string         `json:"account_id"`
	SharedWith []string       `json:"shared_with"`
	Revision   int64          `json:"revision"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// FromRecord copies rec into a File.
func FromRecord(rec *files.FileRecord) (*File, error) {
	out := new(File)
	if err := copier.CopyWithOption(out, rec, copier.Option{DeepCopy: true}); err != nil {
		return nil, errors.Wrap(err, "copy file record")
	}

	out.ID = rec.ID.Hex()
	out.BaseName = rec.BaseName()
	if out.SharedWith == nil {
		out.SharedWith = []string{}
	}
	return out, nil
}

// FromRecords copies every record.
func FromRecords(recs []*files.FileRecord) ([]*File, error) {
	out := make([]*File, 0, len(recs))
	for _, rec := range recs {
		f, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// UsageBucket is one file type's share of storage.
type UsageBucket struct {
	Type       files.FileType `json:"type"`
	Size       int64          `json:"size"`
	LatestDate *time.Time     `json:"latest_date"`
}

// Usage is the full per-type usage breakdown.
type Usage struct {
	Buckets   []UsageBucket `json:"buckets"`
	Used      int64         `json:"used"`
	Cap       int64         `json:"cap"`
	Available int64         `json:"available"`
}

// FromUsage renders an aggregate. Empty buckets have a null latest_date.
func FromUsage(agg *files.UsageAggregate) *Usage {
	out := &Usage{
		Buckets:   make([]UsageBucket, 0, len(agg.Buckets)),
		Used:      agg.Used,
		Cap:       agg.Cap,
		Available: agg.Available(),
	}
	for _, t := range files.AllFileTypes() {
		b := agg.Bucket(t)
		out.Buckets = append(out.Buckets, UsageBucket{Type: t, Size: b.Size, LatestDate: optionalTime(b.LatestDate)})
	}
	return out
}

// UsageSummaryRow is one row of the merged summary.
type UsageSummaryRow struct {
	Category   files.UsageCategory `json:"category"`
	Size       int64               `json:"size"`
	LatestDate *time.Time          `json:"latest_date"`
}

// FromUsageSummary renders summary rows.
func FromUsageSummary(entries []files.UsageSummaryEntry) []UsageSummaryRow {
	out := make([]UsageSummaryRow, 0, len(entries))
	for _, e := range entries {
		out = append(out, UsageSummaryRow{Category: e.Category, Size: e.Size, LatestDate: optionalTime(e.LatestDate)})
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
