// Package ctxkeys holds the typed context keys shared by the drive surfaces.
package ctxkeys

// Key identifies a context value propagated across drive services.
type Key string

const (
	// Identity stores the authenticated caller.
	Identity Key = "drive_identity"
	// Logger stores the per-request logger outside gin contexts.
	Logger Key = "drive_logger"
)
