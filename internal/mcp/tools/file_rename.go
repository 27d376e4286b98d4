package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/dto"
	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
)

// FileRenameTool implements the file_rename MCP tool.
type FileRenameTool struct {
	svc FileService
}

// NewFileRenameTool constructs a FileRenameTool.
func NewFileRenameTool(svc FileService) (*FileRenameTool, error) {
	if svc == nil {
		return nil, files.NewError(errCodeInternal, "file service is required", false)
	}
	return &FileRenameTool{svc: svc}, nil
}

// Definition returns the MCP metadata for file_rename.
func (t *FileRenameTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"file_rename",
		mcp.WithDescription("Change a file's base name. The extension is kept."),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("Identifier of the file to rename.")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New base name without extension.")),
		mcp.WithNumber("expected_revision", mcp.Description("When set, fail with CONFLICT if the file changed since this revision.")),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the file_rename tool logic.
func (t *FileRenameTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, denied := requireToolIdentity(ctx); denied != nil {
		return denied, nil
	}

	fileID, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := t.svc.Rename(ctx, files.RenameRequest{
		FileID:           fileID,
		NewBaseName:      name,
		ExpectedRevision: readInt64Arg(req, "expected_revision"),
	})
	if err != nil {
		return fileToolErrorFromErr(err), nil
	}

	out, err := dto.FromRecord(rec)
	if err != nil {
		return fileToolErrorResult(errCodeInternal, "failed to encode response", true), nil
	}
	return encodeToolPayload(out), nil
}
