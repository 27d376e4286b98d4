package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
	"github.com/Laisky/laisky-cloud-drive/library/blob"
	"github.com/Laisky/laisky-cloud-drive/library/log"
)

type stubFileService struct {
	renameErr error
	lastList  files.ListFilesRequest
}

func (s *stubFileService) ListFiles(_ context.Context, req files.ListFilesRequest) (*files.ListFilesResult, error) {
	s.lastList = req
	return &files.ListFilesResult{Files: []*files.FileRecord{}, Sort: "createdAt-desc"}, nil
}

func (s *stubFileService) Rename(context.Context, files.RenameRequest) (*files.FileRecord, error) {
	return nil, s.renameErr
}

func (s *stubFileService) Share(context.Context, files.ShareRequest) (*files.FileRecord, error) {
	return nil, errors.New("not implemented")
}

func (s *stubFileService) Delete(context.Context, files.DeleteRequest) (*files.DeleteResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubFileService) UsageSummary(context.Context) ([]files.UsageSummaryEntry, error) {
	return nil, errors.New("boom")
}

func newToolReq(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

// decodeToolPayload decodes structured MCP tool responses into a generic map.
func decodeToolPayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()

	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		require.NoError(t, err)
		payload := map[string]any{}
		require.NoError(t, json.Unmarshal(data, &payload))
		return payload
	}

	for _, content := range result.Content {
		text, ok := mcp.AsTextContent(content)
		if !ok {
			continue
		}
		payload := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
		return payload
	}

	require.FailNow(t, "tool response payload missing")
	return nil
}

func ownerCtx() context.Context {
	return files.WithIdentity(context.Background(), files.Identity{
		UserID:    "user-1",
		Email:     "owner@example.com",
		AccountID: "acct-1",
	})
}

func newDriveService(t *testing.T) *files.Service {
	t.Helper()

	var tick int64
	clock := func() time.Time {
		tick++
		return time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC).Add(time.Duration(tick) * time.Second)
	}
	svc, err := files.NewService(
		files.NewMemoryRepository(clock),
		blob.NewMemoryStore(clock),
		files.NopListingCache{},
		files.DefaultSettings(),
		log.Logger.Named("test"),
		clock,
	)
	require.NoError(t, err)
	return svc
}

func upload(t *testing.T, svc *files.Service, ctx context.Context, name, body string) *files.FileRecord {
	t.Helper()
	rec, err := svc.Upload(ctx, files.UploadRequest{
		Name:    name,
		Size:    int64(len(body)),
		Body:    strings.NewReader(body),
		OwnerID: "user-1",
	})
	require.NoError(t, err)
	return rec
}

// TestFileToolsRequireIdentity verifies every tool rejects anonymous callers.
func TestFileToolsRequireIdentity(t *testing.T) {
	svc := &stubFileService{}
	listTool, err := NewFileListTool(svc)
	require.NoError(t, err)
	renameTool, err := NewFileRenameTool(svc)
	require.NoError(t, err)
	shareTool, err := NewFileShareTool(svc)
	require.NoError(t, err)
	deleteTool, err := NewFileDeleteTool(svc)
	require.NoError(t, err)
	usageTool, err := NewUsageSummaryTool(svc)
	require.NoError(t, err)

	handlers := []func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		listTool.Handle, renameTool.Handle, shareTool.Handle, deleteTool.Handle, usageTool.Handle,
	}
	for _, handle := range handlers {
		result, handleErr := handle(context.Background(), newToolReq(map[string]any{"file_id": "x", "name": "y"}))
		require.NoError(t, handleErr)
		require.True(t, result.IsError)
		require.Equal(t, string(files.ErrCodeNotAuthenticated), decodeToolPayload(t, result)["code"])
	}
}

// TestNewToolsRejectNilService verifies constructors validate dependencies.
func TestNewToolsRejectNilService(t *testing.T) {
	_, err := NewFileListTool(nil)
	require.Error(t, err)
	_, err = NewUsageSummaryTool(nil)
	require.Error(t, err)
}

// TestFileRenameErrorMapping verifies typed service errors become structured payloads.
func TestFileRenameErrorMapping(t *testing.T) {
	serviceErr := files.NewError(files.ErrCodeConflict, "file was modified", false)
	tool, err := NewFileRenameTool(&stubFileService{renameErr: serviceErr})
	require.NoError(t, err)

	result, handleErr := tool.Handle(ownerCtx(), newToolReq(map[string]any{"file_id": "abc", "name": "b"}))
	require.NoError(t, handleErr)
	require.True(t, result.IsError)

	payload := decodeToolPayload(t, result)
	require.Equal(t, string(files.ErrCodeConflict), payload["code"])
	require.Equal(t, false, payload["retryable"])
}

// TestUntypedErrorIsInternal verifies untyped failures do not leak details.
func TestUntypedErrorIsInternal(t *testing.T) {
	tool, err := NewUsageSummaryTool(&stubFileService{})
	require.NoError(t, err)

	result, handleErr := tool.Handle(ownerCtx(), newToolReq(nil))
	require.NoError(t, handleErr)
	require.True(t, result.IsError)

	payload := decodeToolPayload(t, result)
	require.Equal(t, string(errCodeInternal), payload["code"])
	require.Equal(t, "internal error", payload["message"])
}

// TestFileListArguments verifies type parsing and argument forwarding.
func TestFileListArguments(t *testing.T) {
	svc := &stubFileService{}
	tool, err := NewFileListTool(svc)
	require.NoError(t, err)

	result, handleErr := tool.Handle(ownerCtx(), newToolReq(map[string]any{
		"types":  []any{"image", "Video"},
		"search": "cat",
		"sort":   "name-asc",
		"limit":  float64(5),
	}))
	require.NoError(t, handleErr)
	require.False(t, result.IsError)
	require.Equal(t, []files.FileType{files.FileTypeImage, files.FileTypeVideo}, svc.lastList.Types)
	require.Equal(t, "cat", svc.lastList.SearchText)
	require.Equal(t, "name-asc", svc.lastList.Sort)
	require.Equal(t, int64(5), svc.lastList.Limit)

	result, handleErr = tool.Handle(ownerCtx(), newToolReq(map[string]any{"types": "image,spreadsheet"}))
	require.NoError(t, handleErr)
	require.True(t, result.IsError)
	require.Equal(t, string(files.ErrCodeValidation), decodeToolPayload(t, result)["code"])
}

// TestFileToolsEndToEnd runs the tools against an in-memory drive.
func TestFileToolsEndToEnd(t *testing.T) {
	svc := newDriveService(t)
	ctx := ownerCtx()
	rec := upload(t, svc, ctx, "notes.txt", "hello")
	upload(t, svc, ctx, "song.mp3", "la la la")

	listTool, err := NewFileListTool(svc)
	require.NoError(t, err)
	renameTool, err := NewFileRenameTool(svc)
	require.NoError(t, err)
	shareTool, err := NewFileShareTool(svc)
	require.NoError(t, err)
	deleteTool, err := NewFileDeleteTool(svc)
	require.NoError(t, err)
	usageTool, err := NewUsageSummaryTool(svc)
	require.NoError(t, err)

	listResp, err := listTool.Handle(ctx, newToolReq(map[string]any{"types": []any{"document"}}))
	require.NoError(t, err)
	require.False(t, listResp.IsError)
	listPayload := decodeToolPayload(t, listResp)
	require.EqualValues(t, 1, listPayload["count"])
	require.Equal(t, "createdAt-desc", listPayload["sort"])

	renameResp, err := renameTool.Handle(ctx, newToolReq(map[string]any{
		"file_id": rec.ID.Hex(),
		"name":    "journal",
	}))
	require.NoError(t, err)
	require.False(t, renameResp.IsError)
	renamed := decodeToolPayload(t, renameResp)
	require.Equal(t, "journal.txt", renamed["name"])
	require.Equal(t, "journal", renamed["base_name"])

	shareResp, err := shareTool.Handle(ctx, newToolReq(map[string]any{
		"file_id":           rec.ID.Hex(),
		"emails":            []any{"Friend@Example.com"},
		"expected_revision": renamed["revision"],
	}))
	require.NoError(t, err)
	require.False(t, shareResp.IsError)
	require.Equal(t, []any{"friend@example.com"}, decodeToolPayload(t, shareResp)["shared_with"])

	staleResp, err := shareTool.Handle(ctx, newToolReq(map[string]any{
		"file_id":           rec.ID.Hex(),
		"emails":            []any{},
		"expected_revision": renamed["revision"],
	}))
	require.NoError(t, err)
	require.True(t, staleResp.IsError)
	require.Equal(t, string(files.ErrCodeConflict), decodeToolPayload(t, staleResp)["code"])

	usageResp, err := usageTool.Handle(ctx, newToolReq(nil))
	require.NoError(t, err)
	require.False(t, usageResp.IsError)
	require.EqualValues(t, 13, decodeToolPayload(t, usageResp)["used"])

	deleteResp, err := deleteTool.Handle(ctx, newToolReq(map[string]any{"file_id": rec.ID.Hex()}))
	require.NoError(t, err)
	require.False(t, deleteResp.IsError)
	require.Equal(t, false, decodeToolPayload(t, deleteResp)["orphan_blob"])

	againResp, err := deleteTool.Handle(ctx, newToolReq(map[string]any{"file_id": rec.ID.Hex()}))
	require.NoError(t, err)
	require.True(t, againResp.IsError)
	require.Equal(t, string(files.ErrCodeNotFound), decodeToolPayload(t, againResp)["code"])
}
