package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
	"github.com/Laisky/laisky-cloud-drive/library/jwt"
)

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", BearerToken("Bearer abc"))
	require.Equal(t, "abc", BearerToken("bearer   abc "))
	require.Equal(t, "abc", BearerToken("abc"))
	require.Empty(t, BearerToken("  "))
}

// TestContextFromRequest verifies a signed token becomes the request identity.
func TestContextFromRequest(t *testing.T) {
	signer, err := jwt.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	token, err := signer.Sign("user-1", "Owner@Example.com", "acct-1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	ctx, err := ContextFromRequest(context.Background(), signer, req)
	require.NoError(t, err)
	id, ok := files.IdentityFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "user-1", id.UserID)
	require.Equal(t, "owner@example.com", id.Email)
	require.Equal(t, "acct-1", id.AccountID)

	req.Header.Set("Authorization", "Bearer garbage")
	_, err = ContextFromRequest(context.Background(), signer, req)
	require.True(t, files.IsCode(err, files.ErrCodeNotAuthenticated))

	req.Header.Del("Authorization")
	_, err = ContextFromRequest(context.Background(), signer, req)
	require.True(t, files.IsCode(err, files.ErrCodeNotAuthenticated))
}
