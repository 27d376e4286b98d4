package files

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRecord is the metadata document tracking one uploaded blob.
type FileRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BlobID     string             `bson:"blob_id" json:"blob_id"`
	Name       string             `bson:"name" json:"name"`
	Type       FileType           `bson:"type" json:"type"`
	Extension  string             `bson:"extension" json:"extension"`
	Size       int64              `bson:"size" json:"size"`
	Owner      string             `bson:"owner" json:"owner"`
	AccountID  string             `bson:"account_id" json:"account_id"`
	SharedWith []string           `bson:"shared_with" json:"shared_with"`
	Revision   int64              `bson:"revision" json:"revision"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// VisibleTo reports whether the record passes the visibility predicate for the viewer.
func (r *FileRecord) VisibleTo(userID, email string) bool {
	if r.Owner == userID {
		return true
	}
	if email == "" {
		return false
	}
	for _, shared := range r.SharedWith {
		if shared == email {
			return true
		}
	}
	return false
}

// BaseName returns the display name without its extension.
func (r *FileRecord) BaseName() string {
	suffix := "." + r.Extension
	if r.Extension == "" || len(r.Name) <= len(suffix) ||
		!strings.EqualFold(r.Name[len(r.Name)-len(suffix):], suffix) {
		return r.Name
	}
	return r.Name[:len(r.Name)-len(suffix)]
}

// FilePatch is a partial update. Nil fields are left unchanged.
// ExpectedRevision, when non-zero, must match the stored revision.
type FilePatch struct {
	Name             *string
	SharedWith       []string
	ReplaceShares    bool
	ExpectedRevision int64
}
