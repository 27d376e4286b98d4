package files

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clock returns the current time in UTC.
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}

// Repository persists FileRecords.
//
// Create assigns ID, timestamps and the initial revision. Update merges a
// patch and refreshes UpdatedAt. Delete returns the removed record and a
// NOT_FOUND error on every later call for the same id. Query honors the
// sort and limit exactly, keeping insertion order for equal sort keys.
type Repository interface {
	Create(ctx context.Context, rec *FileRecord) (*FileRecord, error)
	Get(ctx context.Context, id string) (*FileRecord, error)
	Query(ctx context.Context, q Query) ([]*FileRecord, error)
	Update(ctx context.Context, id string, patch FilePatch) (*FileRecord, error)
	Delete(ctx context.Context, id string) (*FileRecord, error)
	// ExistingBlobIDs returns the subset of blobIDs referenced by a record.
	ExistingBlobIDs(ctx context.Context, blobIDs []string) (map[string]struct{}, error)
}

// parseRecordID converts an external id into an ObjectID.
// Malformed ids cannot exist in the store, so they report NOT_FOUND.
func parseRecordID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, notFoundError(id)
	}
	return oid, nil
}

func notFoundError(id string) *Error {
	return NewError(ErrCodeNotFound, "file "+id+" not found", false)
}

func conflictError(id string, expected int64) *Error {
	return &Error{
		Code:      ErrCodeConflict,
		Message:   fmt.Sprintf("file %s changed since revision %d", id, expected),
		Retryable: true,
	}
}
