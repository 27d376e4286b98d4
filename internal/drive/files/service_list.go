package files

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
)

// ListFilesRequest filters the caller's visible files.
type ListFilesRequest struct {
	Types      []FileType
	SearchText string
	Sort       string
	Limit      int64
	// CachePath, when set, serves and stores the listing in the cache under this path.
	CachePath string
}

// ListFilesResult is one page of visible files.
type ListFilesResult struct {
	Files  []*FileRecord `json:"files"`
	Sort   string        `json:"sort"`
	Cached bool          `json:"-"`
}

// ListFiles returns files owned by or shared with the caller.
func (s *Service) ListFiles(ctx context.Context, req ListFilesRequest) (*ListFilesResult, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, NewError(ErrCodeValidation, "limit must not be negative", false)
	}
	if req.Limit > s.settings.ListLimitMax {
		req.Limit = s.settings.ListLimitMax
	}

	query := BuildQuery(ListRequest{
		OwnerID:     id.UserID,
		ViewerEmail: id.Email,
		Types:       req.Types,
		SearchText:  req.SearchText,
		Sort:        req.Sort,
		Limit:       req.Limit,
	})

	var (
		cacheKey  string
		cacheGen  int64
		cacheable bool
	)
	if req.CachePath != "" {
		cacheKey = listingCacheKey(id, query)
		var cached *ListFilesResult
		cached, cacheGen, cacheable = s.loadCachedListing(ctx, req.CachePath, cacheKey)
		if cached != nil {
			return cached, nil
		}
	}

	// the generation was read before the query, so a concurrent invalidation
	// leaves this listing unreachable
	records, err := s.repo.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query files")
	}
	result := &ListFilesResult{Files: records, Sort: query.Sort.String()}

	if cacheable {
		s.storeCachedListing(ctx, req.CachePath, cacheKey, cacheGen, result)
	}
	return result, nil
}

// Get returns one file visible to the caller.
func (s *Service) Get(ctx context.Context, fileID string) (*FileRecord, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.Get(ctx, fileID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !rec.VisibleTo(id.UserID, id.Email) {
		return nil, notFoundError(fileID)
	}
	return rec, nil
}

// listingCacheKey identifies a listing by viewer and normalized query.
func listingCacheKey(id Identity, q Query) string {
	types := make([]string, 0, len(q.req.Types))
	for _, t := range q.req.Types {
		types = append(types, string(t))
	}

	h := sha256.New()
	for _, part := range []string{
		id.UserID,
		id.Email,
		strings.Join(types, ","),
		q.req.SearchText,
		q.Sort.String(),
		strconv.FormatInt(q.Limit, 10),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// loadCachedListing returns the cached listing, if any, and the generation a
// fresh listing may be stored under. cacheable is false when the cache failed.
func (s *Service) loadCachedListing(ctx context.Context, path, key string) (cached *ListFilesResult, gen int64, cacheable bool) {
	payload, gen, ok, err := s.cache.Load(ctx, path, key)
	if err != nil {
		s.LoggerFromContext(ctx).Warn("load cached listing", zap.String("path", path), zap.Error(err))
		return nil, 0, false
	}
	if !ok {
		return nil, gen, true
	}

	result := new(ListFilesResult)
	if err = json.Unmarshal(payload, result); err != nil {
		s.LoggerFromContext(ctx).Warn("decode cached listing", zap.String("path", path), zap.Error(err))
		return nil, gen, true
	}
	result.Cached = true
	return result, gen, true
}

func (s *Service) storeCachedListing(ctx context.Context, path, key string, gen int64, result *ListFilesResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.LoggerFromContext(ctx).Warn("encode listing for cache", zap.Error(err))
		return
	}
	if err = s.cache.Store(ctx, path, key, gen, payload); err != nil {
		s.LoggerFromContext(ctx).Warn("store cached listing", zap.String("path", path), zap.Error(err))
	}
}
