package blob

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

// TestObjectKeyKeepsExtension verifies generated keys carry the prefix and lower-cased extension.
func TestObjectKeyKeepsExtension(t *testing.T) {
	s := NewMinioStoreWithClient(nil, "drive", "/uploads/")

	key := s.objectKey("Report.PDF")
	require.True(t, strings.HasPrefix(key, "uploads/"))
	require.True(t, strings.HasSuffix(key, ".pdf"))
	require.NotEqual(t, key, s.objectKey("Report.PDF"))

	bare := NewMinioStoreWithClient(nil, "drive", "").objectKey("README")
	require.NotContains(t, bare, "/")
	require.NotContains(t, bare, ".")
}

// TestIsNoSuchKey verifies missing-object responses are classified.
func TestIsNoSuchKey(t *testing.T) {
	require.True(t, isNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	require.True(t, isNoSuchKey(minio.ErrorResponse{StatusCode: http.StatusNotFound}))
	require.False(t, isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}))
	require.False(t, isNoSuchKey(errors.New("network down")))
}
