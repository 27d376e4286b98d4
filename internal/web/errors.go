package web

import (
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
	"github.com/Laisky/laisky-cloud-drive/library/log"
)

// requestLogger returns the logger installed by the logger middleware.
func requestLogger(ctx *gin.Context) logSDK.Logger {
	if logger := gmw.GetLogger(ctx); logger != nil {
		return logger
	}
	return log.Logger.Named("web")
}

const errCodeRateLimited files.ErrorCode = "RATE_LIMITED"

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// statusFromCode maps a file error code to its HTTP status.
func statusFromCode(code files.ErrorCode) int {
	switch code {
	case files.ErrCodeNotAuthenticated:
		return http.StatusUnauthorized
	case files.ErrCodePermissionDenied:
		return http.StatusForbidden
	case files.ErrCodeNotFound:
		return http.StatusNotFound
	case files.ErrCodeValidation:
		return http.StatusBadRequest
	case files.ErrCodeConflict:
		return http.StatusConflict
	case files.ErrCodeStoreWrite, files.ErrCodeCompensationFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse renders err. Untyped errors are logged and reported as internal.
func errorResponse(ctx *gin.Context, err error) (int, errorBody) {
	typed, ok := files.AsError(err)
	if !ok {
		requestLogger(ctx).Error("unexpected error", zap.Error(err))
		return http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error", Retryable: true}
	}

	status := statusFromCode(typed.Code)
	if status >= http.StatusInternalServerError {
		requestLogger(ctx).Error("request failed", zap.String("code", string(typed.Code)), zap.Error(err))
	}
	return status, errorBody{Code: string(typed.Code), Message: typed.Message, Retryable: typed.Retryable}
}

func abortWithError(ctx *gin.Context, err error) {
	status, body := errorResponse(ctx, err)
	ctx.AbortWithStatusJSON(status, body)
}

func abortWithStatus(ctx *gin.Context, status int, code files.ErrorCode, message string) {
	ctx.AbortWithStatusJSON(status, errorBody{Code: string(code), Message: message})
}
