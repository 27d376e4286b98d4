package tools

import (
	"context"

	"github.com/Laisky/zap"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
)

// FileDeleteTool implements the file_delete MCP tool.
type FileDeleteTool struct {
	svc FileService
}

// NewFileDeleteTool constructs a FileDeleteTool.
func NewFileDeleteTool(svc FileService) (*FileDeleteTool, error) {
	if svc == nil {
		return nil, files.NewError(errCodeInternal, "file service is required", false)
	}
	return &FileDeleteTool{svc: svc}, nil
}

// Definition returns the MCP metadata for file_delete.
func (t *FileDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"file_delete",
		mcp.WithDescription("Delete a file record and its stored content."),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("Identifier of the file to delete.")),
		mcp.WithString("blob_id", mcp.Description("Blob identifier as last seen by the caller.")),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
	)
}

// Handle executes the file_delete tool logic.
func (t *FileDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, denied := requireToolIdentity(ctx)
	if denied != nil {
		return denied, nil
	}

	fileID, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.svc.Delete(ctx, files.DeleteRequest{
		FileID: fileID,
		BlobID: readStringArg(req, "blob_id"),
	})
	if err != nil {
		return fileToolErrorFromErr(err), nil
	}
	if result.OrphanBlob {
		fileToolLoggerFromContext(ctx).Warn("file deleted with orphaned blob",
			zap.String("user", id.UserID),
			zap.String("file_id", fileID),
			zap.String("blob_id", result.Record.BlobID))
	}

	return encodeToolPayload(map[string]any{
		"deleted":     true,
		"file_id":     fileID,
		"orphan_blob": result.OrphanBlob,
	}), nil
}
