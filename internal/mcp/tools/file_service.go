package tools

import (
	"context"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
)

// FileService exposes drive operations for MCP tools.
type FileService interface {
	ListFiles(context.Context, files.ListFilesRequest) (*files.ListFilesResult, error)
	Rename(context.Context, files.RenameRequest) (*files.FileRecord, error)
	Share(context.Context, files.ShareRequest) (*files.FileRecord, error)
	Delete(context.Context, files.DeleteRequest) (*files.DeleteResult, error)
	UsageSummary(context.Context) ([]files.UsageSummaryEntry, error)
}
