package files

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultSort = "createdAt-desc"

// sortFields maps accepted sort keys to stored field names.
var sortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"size":      "size",
}

// ListRequest describes one listing as seen by the viewer.
type ListRequest struct {
	OwnerID     string
	ViewerEmail string
	Types       []FileType
	SearchText  string
	// Sort is "field-direction", e.g. "size-asc".
	Sort string
	// Limit caps the result count; zero means no cap.
	Limit int64
}

// SortSpec is a parsed sort string.
type SortSpec struct {
	Field string
	Desc  bool
}

// String renders the canonical "field-direction" form.
func (s SortSpec) String() string {
	if s.Desc {
		return s.Field + "-desc"
	}
	return s.Field + "-asc"
}

// column returns the stored field name.
func (s SortSpec) column() string {
	return sortFields[s.Field]
}

// ParseSort parses "field-direction". An empty value means createdAt-desc,
// an unknown field falls back to createdAt, and any direction other than asc
// sorts descending.
func ParseSort(raw string) SortSpec {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = defaultSort
	}

	field, direction := raw, ""
	if idx := strings.LastIndex(raw, "-"); idx >= 0 {
		field, direction = raw[:idx], raw[idx+1:]
	}
	field = strings.TrimPrefix(field, "$")
	if _, ok := sortFields[field]; !ok {
		field = "createdAt"
	}

	return SortSpec{
		Field: field,
		Desc:  !strings.EqualFold(direction, "asc"),
	}
}

// Query is the store-native form of a ListRequest.
type Query struct {
	Filter bson.D
	Sort   SortSpec
	Limit  int64

	req ListRequest
}

// BuildQuery turns a listing request into a filter, sort and limit.
// The visibility clause is always present; type and name clauses are
// added only when their inputs are non-empty.
func BuildQuery(req ListRequest) Query {
	filter := bson.D{
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "owner", Value: req.OwnerID}},
			bson.D{{Key: "shared_with", Value: req.ViewerEmail}},
		}},
	}

	if types := dedupeTypes(req.Types); len(types) > 0 {
		filter = append(filter, bson.E{Key: "type", Value: bson.D{{Key: "$in", Value: types}}})
		req.Types = types
	}

	if text := strings.TrimSpace(req.SearchText); text != "" {
		filter = append(filter, bson.E{Key: "name", Value: bson.D{
			{Key: "$regex", Value: regexp.QuoteMeta(text)},
			{Key: "$options", Value: "i"},
		}})
		req.SearchText = text
	} else {
		req.SearchText = ""
	}

	if req.Limit < 0 {
		req.Limit = 0
	}

	return Query{
		Filter: filter,
		Sort:   ParseSort(req.Sort),
		Limit:  req.Limit,
		req:    req,
	}
}

// OwnedQuery selects every record owned by ownerID regardless of sharing.
func OwnedQuery(ownerID string) Query {
	return Query{
		Filter: bson.D{{Key: "owner", Value: ownerID}},
		Sort:   ParseSort("createdAt-asc"),
		req:    ListRequest{OwnerID: ownerID, ViewerEmail: ""},
	}
}

// FindOptions renders sort and limit. Ties are broken by _id so that
// records keep their insertion order.
func (q Query) FindOptions() *options.FindOptions {
	order := 1
	if q.Sort.Desc {
		order = -1
	}
	opt := options.Find().SetSort(bson.D{
		{Key: q.Sort.column(), Value: order},
		{Key: "_id", Value: 1},
	})
	if q.Limit > 0 {
		opt.SetLimit(q.Limit)
	}
	return opt
}

// Matches evaluates the filter against a record in memory.
func (q Query) Matches(r *FileRecord) bool {
	visible := r.Owner == q.req.OwnerID ||
		(q.req.ViewerEmail != "" && containsString(r.SharedWith, q.req.ViewerEmail))
	if !visible {
		return false
	}
	if len(q.req.Types) > 0 && !containsType(q.req.Types, r.Type) {
		return false
	}
	if q.req.SearchText != "" &&
		!strings.Contains(strings.ToLower(r.Name), strings.ToLower(q.req.SearchText)) {
		return false
	}
	return true
}

func dedupeTypes(types []FileType) []FileType {
	if len(types) == 0 {
		return nil
	}
	out := make([]FileType, 0, len(types))
	for _, t := range types {
		if !containsType(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func containsType(types []FileType, t FileType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
