package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/dto"
	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
)

// FileShareTool implements the file_share MCP tool.
type FileShareTool struct {
	svc FileService
}

// NewFileShareTool constructs a FileShareTool.
func NewFileShareTool(svc FileService) (*FileShareTool, error) {
	if svc == nil {
		return nil, files.NewError(errCodeInternal, "file service is required", false)
	}
	return &FileShareTool{svc: svc}, nil
}

// Definition returns the MCP metadata for file_share.
func (t *FileShareTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"file_share",
		mcp.WithDescription("Replace the list of emails a file is shared with. An empty list revokes all shares."),
		mcp.WithString("file_id", mcp.Required(), mcp.Description("Identifier of the file to share.")),
		mcp.WithArray("emails",
			mcp.Required(),
			mcp.Description("Complete list of recipient emails."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("expected_revision", mcp.Description("When set, fail with CONFLICT if the file changed since this revision.")),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the file_share tool logic.
func (t *FileShareTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, denied := requireToolIdentity(ctx); denied != nil {
		return denied, nil
	}

	fileID, err := req.RequireString("file_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	emails, ok := readStringListArg(req, "emails")
	if !ok {
		return fileToolErrorResult(files.ErrCodeValidation, "emails is required", false), nil
	}

	rec, err := t.svc.Share(ctx, files.ShareRequest{
		FileID:           fileID,
		Emails:           emails,
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
