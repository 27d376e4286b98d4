package files

import (
	"context"
	"strings"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/ctxkeys"
)

// Identity is the authenticated caller of a file operation.
type Identity struct {
	UserID    string
	Email     string
	AccountID string
}

// WithIdentity returns a child context carrying id.
// The email is normalized so sharing comparisons are case-insensitive.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	id.Email = normalizeEmail(id.Email)
	return context.WithValue(ctx, ctxkeys.Identity, &id)
}

// IdentityFromContext returns the caller stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxkeys.Identity).(*Identity)
	if !ok || id == nil || id.UserID == "" {
		return Identity{}, false
	}
	return *id, true
}

// requireIdentity fails with NOT_AUTHENTICATED when ctx has no caller.
func requireIdentity(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, NewError(ErrCodeNotAuthenticated, "no authenticated user", false)
	}
	return id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
