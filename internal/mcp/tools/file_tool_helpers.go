package tools

import (
	"context"
	"strings"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/ctxkeys"
	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
	"github.com/Laisky/laisky-cloud-drive/library/log"
)

// errCodeInternal is reported for failures that carry no typed file error.
const errCodeInternal files.ErrorCode = "INTERNAL"

// requireToolIdentity returns an error result when ctx carries no caller.
func requireToolIdentity(ctx context.Context) (files.Identity, *mcp.CallToolResult) {
	id, ok := files.IdentityFromContext(ctx)
	if !ok {
		return files.Identity{}, fileToolErrorResult(files.ErrCodeNotAuthenticated, "missing authorization", false)
	}
	return id, nil
}

// fileToolLoggerFromContext returns a request-scoped logger when available.
func fileToolLoggerFromContext(ctx context.Context) logSDK.Logger {
	if ctxLogger := gmw.GetLogger(ctx); ctxLogger != nil {
		return ctxLogger
	}
	if ctxLogger, ok := ctx.Value(ctxkeys.Logger).(logSDK.Logger); ok && ctxLogger != nil {
		return ctxLogger
	}

	return log.Logger.Named("mcp_file_tools")
}

// fileToolErrorResult builds a structured MCP error response for file tools.
func fileToolErrorResult(code files.ErrorCode, message string, retryable bool) *mcp.CallToolResult {
	payload := map[string]any{
		"code":      string(code),
		"message":   message,
		"retryable": retryable,
	}
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return mcp.NewToolResultError(message)
	}
	result.IsError = true
	return result
}

// fileToolErrorFromErr converts service errors into tool responses.
func fileToolErrorFromErr(err error) *mcp.CallToolResult {
	if err == nil {
		return nil
	}
	if typed, ok := files.AsError(err); ok {
		return fileToolErrorResult(typed.Code, typed.Message, typed.Retryable)
	}
	return fileToolErrorResult(errCodeInternal, "internal error", true)
}

// encodeToolPayload renders payload as a JSON tool result.
func encodeToolPayload(payload any) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return fileToolErrorResult(errCodeInternal, "failed to encode response", true)
	}
	return result
}

func toolArguments(req mcp.CallToolRequest) map[string]any {
	if req.Params.Arguments == nil {
		return nil
	}
	raw, _ := req.Params.Arguments.(map[string]any)
	return raw
}

// readStringArg extracts an optional string argument from the request.
func readStringArg(req mcp.CallToolRequest, key string) string {
	if value, ok := toolArguments(req)[key].(string); ok {
		return value
	}
	return ""
}

// readInt64Arg extracts an optional int64 argument from the request.
func readInt64Arg(req mcp.CallToolRequest, key string) int64 {
	switch value := toolArguments(req)[key].(type) {
	case int:
		return int64(value)
	case int64:
		return value
	case float64:
		return int64(value)
	}
	return 0
}

// readStringListArg accepts either a JSON array of strings or a comma separated string.
func readStringListArg(req mcp.CallToolRequest, key string) ([]string, bool) {
	raw, exists := toolArguments(req)[key]
	if !exists || raw == nil {
		return nil, false
	}

	switch value := raw.(type) {
	case []string:
		return value, true
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		if strings.TrimSpace(value) == "" {
			return []string{}, true
		}
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
