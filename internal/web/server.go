// Package web gin server
package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/auth"
	"github.com/Laisky/laisky-cloud-drive/internal/drive/files"
	"github.com/Laisky/laisky-cloud-drive/library/log"
)

// Options configures a Server.
type Options struct {
	Service *files.Service
	Parser  auth.TokenParser
	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
	// UploadLimiter, when set, rate limits uploads per user.
	UploadLimiter Limiter
	// CORSDomains lists the domains whose origins (and subdomains) may call the API.
	CORSDomains []string
	Logger      logSDK.Logger
	Debug       bool
}

// Limiter admits or rejects a call for a key.
type Limiter interface {
	Allow(key string) bool
}

// Server is the drive HTTP API.
type Server struct {
	engine        *gin.Engine
	svc           *files.Service
	parser        auth.TokenParser
	uploadLimiter Limiter
	corsDomains   []string
	logger        logSDK.Logger
}

// NewServer builds the gin engine and registers every route.
func NewServer(opt Options) (*Server, error) {
	if opt.Service == nil {
		return nil, errors.New("file service is required")
	}
	if opt.Parser == nil {
		return nil, errors.New("token parser is required")
	}
	if opt.Logger == nil {
		opt.Logger = log.Logger
	}
	if !opt.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:        gin.New(),
		svc:           opt.Service,
		parser:        opt.Parser,
		uploadLimiter: opt.UploadLimiter,
		corsDomains:   normalizeDomains(opt.CORSDomains),
		logger:        opt.Logger.Named("web"),
	}
	// identity is stored on the request context, handlers pass *gin.Context down
	s.engine.ContextWithFallback = true

	s.engine.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(opt.Logger.Level().String()),
			gmw.WithLogger(opt.Logger.Named("gin")),
		),
		s.allowCORS,
	)

	s.engine.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})
	if opt.MCP != nil {
		s.engine.Any("/mcp", gmw.FromStd(opt.MCP.ServeHTTP))
	}

	api := s.engine.Group("/api", s.requireIdentity)
	api.POST("/files", s.throttleUploads, s.uploadFiles)
	api.GET("/files", s.listFiles)
	api.GET("/files/:id", s.getFile)
	api.PATCH("/files/:id/name", s.renameFile)
	api.PUT("/files/:id/shares", s.shareFile)
	api.DELETE("/files/:id", s.deleteFile)
	api.GET("/usage", s.usage)
	api.GET("/usage/summary", s.usageSummary)

	return s, nil
}

// Handler returns the gin engine as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	if err := gmw.EnableMetric(s.engine); err != nil {
		return errors.Wrap(err, "enable metric server")
	}

	s.logger.Info("listening on http", zap.String("addr", addr))
	return errors.Wrap(s.engine.Run(addr), "run http server")
}

// requireIdentity resolves the bearer token into the request identity.
func (s *Server) requireIdentity(ctx *gin.Context) {
	authed, err := auth.ContextFromRequest(ctx.Request.Context(), s.parser, ctx.Request)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.Request = ctx.Request.WithContext(authed)
	ctx.Next()
}

// throttleUploads rejects uploads from callers above their rate.
func (s *Server) throttleUploads(ctx *gin.Context) {
	if s.uploadLimiter == nil {
		ctx.Next()
		return
	}

	id, _ := files.IdentityFromContext(ctx)
	if !s.uploadLimiter.Allow(id.UserID) {
		requestLogger(ctx).Info("upload throttled", zap.String("user", id.UserID))
		abortWithStatus(ctx, http.StatusTooManyRequests, errCodeRateLimited, "too many uploads, retry later")
		return
	}
	ctx.Next()
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func (s *Server) originAllowed(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, domain := range s.corsDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (s *Server) allowCORS(ctx *gin.Context) {
	origin := ctx.Request.Header.Get("Origin")

	if origin != "" && s.originAllowed(origin) {
		ctx.Header("Access-Control-Allow-Origin", origin)
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-Requested-With, Mcp-Session-Id")
		ctx.Header("Access-Control-Max-Age", "86400")
		ctx.Header("Vary", "Origin")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
	} else if origin != "" && ctx.Request.Method == http.MethodOptions {
		ctx.AbortWithStatus(http.StatusForbidden)
		return
	}

	ctx.Next()
}
