package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/dto"
	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
)

// UsageSummaryTool implements the usage_summary MCP tool.
type UsageSummaryTool struct {
	svc FileService
}

// NewUsageSummaryTool constructs a UsageSummaryTool.
func NewUsageSummaryTool(svc FileService) (*UsageSummaryTool, error) {
	if svc == nil {
		return nil, files.NewError(errCodeInternal, "file service is required", false)
	}
	return &UsageSummaryTool{svc: svc}, nil
}

// Definition returns the MCP metadata for usage_summary.
func (t *UsageSummaryTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"usage_summary",
		mcp.WithDescription("Report storage used by the caller's own files, grouped as document, image, media and other."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

// Handle executes the usage_summary tool logic.
func (t *UsageSummaryTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, denied := requireToolIdentity(ctx); denied != nil {
		return denied, nil
	}

	entries, err := t.svc.UsageSummary(ctx)
	if err != nil {
		return fileToolErrorFromErr(err), nil
	}

	var used int64
	for _, e := range entries {
		used += e.Size
	}
	return encodeToolPayload(map[string]any{
		"categories": dto.FromUsageSummary(entries),
		"used":       used,
	}), nil
}
