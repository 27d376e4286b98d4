package files

import (
	"context"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/laisky-cloud-drive/library/db/mongo"
)

const colFiles = "files"

// filesCollection is the part of *mongo.Collection the repository reads and writes through.
type filesCollection interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongoLib.InsertOneResult, error)
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongoLib.SingleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongoLib.Cursor, error)
	FindOneAndUpdate(ctx context.Context, filter, update any, opts ...*options.FindOneAndUpdateOptions) *mongoLib.SingleResult
	FindOneAndDelete(ctx context.Context, filter any, opts ...*options.FindOneAndDeleteOptions) *mongoLib.SingleResult
	CountDocuments(ctx context.Context, filter any, opts ...*options.CountOptions) (int64, error)
}

// MongoRepository stores FileRecords in the "files" collection.
type MongoRepository struct {
	db    mongo.DB
	col   filesCollection
	clock Clock
}

// NewMongoRepository creates a mongo-backed repository.
func NewMongoRepository(db mongo.DB, clock Clock) *MongoRepository {
	r := newMongoRepository(db.GetCol(colFiles), clock)
	r.db = db
	return r
}

func newMongoRepository(col filesCollection, clock Clock) *MongoRepository {
	if clock == nil {
		clock = defaultClock
	}
	return &MongoRepository{col: col, clock: clock}
}

// GetFilesCol returns the files collection.
func (r *MongoRepository) GetFilesCol() *mongoLib.Collection {
	return r.db.GetCol(colFiles)
}

// EnsureIndexes creates the indexes used by listing, quota and reconcile.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) ([]string, error) {
	names, err := r.GetFilesCol().Indexes().CreateMany(ctx, []mongoLib.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "shared_with", Value: 1}}},
		{
			Keys:    bson.D{{Key: "blob_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create file indexes")
	}

	return names, nil
}

// Create inserts rec with a fresh id, timestamps and revision 1.
func (r *MongoRepository) Create(ctx context.Context, rec *FileRecord) (*FileRecord, error) {
	now := r.clock()
	doc := *rec
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.Revision = 1
	if doc.SharedWith == nil {
		doc.SharedWith = []string{}
	}

	if _, err := r.col.InsertOne(ctx, &doc); err != nil {
		if mongo.IsDuplicateKey(err) {
			return nil, &Error{
				Code:    ErrCodeStoreWrite,
				Message: "blob " + doc.BlobID + " already has a file record",
				Cause:   err,
			}
		}
		return nil, storeWriteError("create file record", err)
	}

	return &doc, nil
}

// Get loads one record by id.
func (r *MongoRepository) Get(ctx context.Context, id string) (*FileRecord, error) {
	oid, err := parseRecordID(id)
	if err != nil {
		return nil, err
	}

	rec := new(FileRecord)
	if err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(rec); err != nil {
		if mongo.NotFound(err) {
			return nil, notFoundError(id)
		}
		return nil, errors.Wrapf(err, "get file %s", id)
	}

	return rec, nil
}

// Query runs a built query.
func (r *MongoRepository) Query(ctx context.Context, q Query) ([]*FileRecord, error) {
	cur, err := r.col.Find(ctx, q.Filter, q.FindOptions())
	if err != nil {
		return nil, errors.Wrap(err, "find files")
	}

	records := make([]*FileRecord, 0)
	if err = cur.All(ctx, &records); err != nil {
		return nil, errors.Wrap(err, "decode files")
	}

	return records, nil
}

// Update applies patch with $set and bumps the revision.
func (r *MongoRepository) Update(ctx context.Context, id string, patch FilePatch) (*FileRecord, error) {
	oid, err := parseRecordID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": r.clock()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.ReplaceShares {
		shares := patch.SharedWith
		if shares == nil {
			shares = []string{}
		}
		set["shared_with"] = shares
	}

	filter := bson.M{"_id": oid}
	if patch.ExpectedRevision > 0 {
		filter["revision"] = patch.ExpectedRevision
	}

	rec := new(FileRecord)
	err = r.col.FindOneAndUpdate(ctx, filter,
		bson.M{
			"$set": set,
			"$inc": bson.M{"revision": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(rec)
	if err == nil {
		return rec, nil
	}
	if !mongo.NotFound(err) {
		return nil, storeWriteError("update file record", err)
	}
	if patch.ExpectedRevision == 0 {
		return nil, notFoundError(id)
	}

	// the filter also checked the revision, so tell a stale write apart from a missing record
	cnt, cntErr := r.col.CountDocuments(ctx, bson.M{"_id": oid})
	if cntErr != nil {
		return nil, errors.Wrapf(cntErr, "count file %s", id)
	}
	if cnt > 0 {
		return nil, conflictError(id, patch.ExpectedRevision)
	}
	return nil, notFoundError(id)
}

// Delete removes the record and returns what was stored.
func (r *MongoRepository) Delete(ctx context.Context, id string) (*FileRecord, error) {
	oid, err := parseRecordID(id)
	if err != nil {
		return nil, err
	}

	rec := new(FileRecord)
	if err = r.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(rec); err != nil {
		if mongo.NotFound(err) {
			return nil, notFoundError(id)
		}
		return nil, storeWriteError("delete file record", err)
	}

	return rec, nil
}

// ExistingBlobIDs reports which of blobIDs still have a record.
func (r *MongoRepository) ExistingBlobIDs(ctx context.Context, blobIDs []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(blobIDs))
	if len(blobIDs) == 0 {
		return found, nil
	}

	cur, err := r.col.Find(ctx,
		bson.M{"blob_id": bson.M{"$in": blobIDs}},
		options.Find().SetProjection(bson.M{"blob_id": 1}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "find blob ids")
	}

	var docs []struct {
		BlobID string `bson:"blob_id"`
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode blob ids")
	}
	for _, doc := range docs {
		found[doc.BlobID] = struct{}{}
	}

	return found, nil
}
