// Package auth resolves the drive caller from a bearer session token.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
	"github.com/Laisky/laisky-cloud-drive/library/jwt"
)

// TokenParser verifies a session token.
type TokenParser interface {
	Parse(token string) (*jwt.UserClaims, error)
}

// BearerToken strips an optional "Bearer " prefix from an Authorization header.
func BearerToken(authHeader string) string {
	value := strings.TrimSpace(authHeader)
	if value == "" {
		return ""
	}

	const prefix = "bearer "
	if len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return strings.TrimSpace(value[len(prefix):])
	}
	return value
}

// IdentityFromToken verifies token and maps its claims to a files.Identity.
func IdentityFromToken(parser TokenParser, token string) (files.Identity, error) {
	if token == "" {
		return files.Identity{}, files.NewError(files.ErrCodeNotAuthenticated, "missing authorization", false)
	}

	claims, err := parser.Parse(token)
	if err != nil {
		return files.Identity{}, &files.Error{
			Code:    files.ErrCodeNotAuthenticated,
			Message: "invalid session token",
			Cause:   errors.WithStack(err),
		}
	}

	return files.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		AccountID: claims.AccountID,
	}, nil
}

// ContextFromRequest attaches the caller of r to ctx.
// ctx is returned unchanged alongside the error when r carries no valid token.
func ContextFromRequest(ctx context.Context, parser TokenParser, r *http.Request) (context.Context, error) {
	id, err := IdentityFromToken(parser, BearerToken(r.Header.Get("Authorization")))
	if err != nil {
		return ctx, err
	}
	return files.WithIdentity(ctx, id), nil
}
