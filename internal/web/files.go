package web

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/dto"
	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
)

type uploadResult struct {
	Name   string            `json:"name"`
	Stage  files.UploadStage `json:"stage"`
	File   *dto.File         `json:"file,omitempty"`
	Error  *errorBody        `json:"error,omitempty"`
	status int
}

// uploadFiles stores every multipart "file" part as a separate upload.
// Part sizes are checked before any store is touched.
func (s *Server) uploadFiles(ctx *gin.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		abortWithStatus(ctx, http.StatusBadRequest, files.ErrCodeValidation, "multipart form expected")
		return
	}

	settings := s.svc.Settings()
	headers := form.File["file"]
	switch {
	case len(headers) == 0:
		abortWithStatus(ctx, http.StatusBadRequest, files.ErrCodeValidation, "no files to upload")
		return
	case len(headers) > settings.MaxUploadFiles:
		abortWithStatus(ctx, http.StatusBadRequest, files.ErrCodeValidation, "too many files in one upload")
		return
	}
	for _, fh := range headers {
		if fh.Size > settings.MaxUploadBytes {
			abortWithStatus(ctx, http.StatusRequestEntityTooLarge, files.ErrCodeValidation,
				"file exceeds the maximum upload size: "+fh.Filename)
			return
		}
	}

	var path string
	if values := form.Value["path"]; len(values) > 0 {
		path = values[0]
	}

	reqs := make([]files.UploadRequest, 0, len(headers))
	bodies := make([]io.Closer, 0, len(headers))
	defer func() {
		for _, b := range bodies {
			_ = b.Close()
		}
	}()
	for _, fh := range headers {
		body, err := fh.Open()
		if err != nil {
			requestLogger(ctx).Warn("open multipart file", zap.String("name", fh.Filename), zap.Error(err))
			abortWithStatus(ctx, http.StatusBadRequest, files.ErrCodeValidation, "unreadable file part: "+fh.Filename)
			return
		}
		bodies = append(bodies, body)
		reqs = append(reqs, files.UploadRequest{
			Name:             fh.Filename,
			ContentType:      fh.Header.Get("Content-Type"),
			Size:             fh.Size,
			Body:             body,
			InvalidationPath: path,
		})
	}

	outcomes, err := s.svc.UploadMany(ctx, reqs)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	results := make([]uploadResult, 0, len(outcomes))
	completed := 0
	for _, out := range outcomes {
		r := uploadResult{Name: out.Name, Stage: out.Stage, status: http.StatusCreated}
		if out.Err != nil {
			status, body := errorResponse(ctx, out.Err)
			r.status, r.Error = status, &body
		} else if r.File, err = dto.FromRecord(out.Record); err != nil {
			abortWithError(ctx, err)
			return
		} else {
			completed++
		}
		results = append(results, r)
	}

	status := http.StatusCreated
	switch {
	case completed == 0:
		status = results[0].status
	case completed < len(results):
		status = http.StatusMultiStatus
	}
	ctx.JSON(status, gin.H{"files": results})
}

func (s *Server) listFiles(ctx *gin.Context) {
	req := files.ListFilesRequest{
		SearchText: ctx.Query("q"),
		Sort:       ctx.Query("sort"),
		CachePath:  ctx.Query("path"),
	}

	for _, raw := range ctx.QueryArray("types") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			ft, ok := files.ParseFileType(part)
			if !ok {
				abortWithStatus(ctx, http.StatusBadRequest, files.ErrCodeValidation, "unknown file type: "+part)
				return
			}
			req.Types = append(req.Types, ft)
		}
	}

	if raw := ctx.Query("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			abortWithStatus(ctx, http.StatusBadRequest, files.ErrCodeValidation, "limit must be an integer")
			return
		}
		req.Limit = limit
	}

	result, err := s.svc.ListFiles(ctx, req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	out, err := dto.FromRecords(result.Files)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"files": out, "sort": result.Sort})
}

func (s *Server) getFile(ctx *gin.Context) {
	rec, err := s.svc.Get(ctx, ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	s.renderFile(ctx, rec)
}

type renameBody struct {
	Name     string `json:"name"`
	Revision int64  `json:"revision"`
	Path     string `json:"path"`
}

func (s *Server) renameFile(ctx *gin.Context) {
	var body renameBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		abortWithStatus(ctx, http.StatusBadRequest, files.ErrCodeValidation, "invalid request body")
		return
	}

	rec, err := s.svc.Rename(ctx, files.RenameRequest{
		FileID:           ctx.Param("id"),
		NewBaseName:      body.Name,
		ExpectedRevision: body.Revision,
		InvalidationPath: body.Path,
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	s.renderFile(ctx, rec)
}

type shareBody struct {
	Emails   *[]string `json:"emails"`
	Revision int64     `json:"revision"`
	Path     string    `json:"path"`
}

func (s *Server) shareFile(ctx *gin.Context) {
	var body shareBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		abortWithStatus(ctx, http.StatusBadRequest, files.ErrCodeValidation, "invalid request body")
		return
	}
	if body.Emails == nil {
		abortWithStatus(ctx, http.StatusBadRequest, files.ErrCodeValidation, "emails is required")
		return
	}

	rec, err := s.svc.Share(ctx, files.ShareRequest{
		FileID:           ctx.Param("id"),
		Emails:           *body.Emails,
		ExpectedRevision: body.Revision,
		InvalidationPath: body.Path,
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	s.renderFile(ctx, rec)
}

func (s *Server) deleteFile(ctx *gin.Context) {
	result, err := s.svc.Delete(ctx, files.DeleteRequest{
		FileID:           ctx.Param("id"),
		BlobID:           ctx.Query("blob_id"),
		InvalidationPath: ctx.Query("path"),
	})
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"deleted":     true,
		"id":          ctx.Param("id"),
		"orphan_blob": result.OrphanBlob,
	})
}

func (s *Server) renderFile(ctx *gin.Context, rec *files.FileRecord) {
	out, err := dto.FromRecord(rec)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, out)
}
