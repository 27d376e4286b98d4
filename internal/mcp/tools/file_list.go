package tools

import (
	"context"

	"github.com/Laisky/zap"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/dto"
	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
)

// FileListTool implements the file_list MCP tool.
type FileListTool struct {
	svc FileService
}

// NewFileListTool constructs a FileListTool.
func NewFileListTool(svc FileService) (*FileListTool, error) {
	if svc == nil {
		return nil, files.NewError(errCodeInternal, "file service is required", false)
	}
	return &FileListTool{svc: svc}, nil
}

// Definition returns the MCP metadata for file_list.
func (t *FileListTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"file_list",
		mcp.WithDescription("List files owned by or shared with the caller."),
		mcp.WithArray("types",
			mcp.Description("Restrict to these file types: document, image, video, audio, other."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("search", mcp.Description("Case-insensitive substring of the file name.")),
		mcp.WithString("sort", mcp.Description("Sort as field-direction, e.g. createdAt-desc or name-asc.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of files to return. 0 means no limit.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the file_list tool logic.
func (t *FileListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, denied := requireToolIdentity(ctx)
	if denied != nil {
		return denied, nil
	}

	listReq := files.ListFilesRequest{
		SearchText: readStringArg(req, "search"),
		Sort:       readStringArg(req, "sort"),
		Limit:      readInt64Arg(req, "limit"),
	}
	if rawTypes, ok := readStringListArg(req, "types"); ok {
		for _, raw := range rawTypes {
			ft, valid := files.ParseFileType(raw)
			if !valid {
				return fileToolErrorResult(files.ErrCodeValidation, "unknown file type: "+raw, false), nil
			}
			listReq.Types = append(listReq.Types, ft)
		}
	}

	result, err := t.svc.ListFiles(ctx, listReq)
	if err != nil {
		fileToolLoggerFromContext(ctx).Debug("file_list failed",
			zap.String("user", id.UserID), zap.Error(err))
		return fileToolErrorFromErr(err), nil
	}

	out, err := dto.FromRecords(result.Files)
	if err != nil {
		return fileToolErrorResult(errCodeInternal, "failed to encode response", true), nil
	}

	return encodeToolPayload(map[string]any{
		"files": out,
		"count": len(out),
		"sort":  result.Sort,
	}), nil
}
