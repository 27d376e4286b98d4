// Package mcp exposes the drive over the Model Context Protocol.
package mcp

import (
	"context"
	"net/http"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/Laisky/laisky-cloud-drive/internal/drive/auth"
	"github.com/Laisky/laisky-cloud-drive/internal/drive/ctxkeys"
	"github.com/Laisky/laisky-cloud-drive/internal/mcp/tools"
	"github.com/Laisky/laisky-cloud-drive/library/log"
)

// Server wraps the MCP server state for the HTTP transport.
type Server struct {
	handler http.Handler
	mcp     *srv.MCPServer
	logger  logSDK.Logger
}

type tool interface {
	Definition() mcp.Tool
	Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// NewServer constructs a remote MCP server exposing the drive tools under a single handler.
func NewServer(svc tools.FileService, parser auth.TokenParser, logger logSDK.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("file service is required")
	}
	if parser == nil {
		return nil, errors.New("token parser is required")
	}
	if logger == nil {
		logger = log.Logger
	}

	hooks := newMCPHooks(logger.Named("mcp_hooks"))

	mcpServer := srv.NewMCPServer(
		"laisky-cloud-drive",
		"1.0.0",
		srv.WithToolCapabilities(true),
		srv.WithInstructions("Use the file_* tools to browse and manage the caller's drive, and usage_summary to check storage consumption."),
		srv.WithRecovery(),
		srv.WithHooks(hooks),
	)

	s := &Server{
		mcp:    mcpServer,
		logger: logger.Named("mcp"),
	}

	streamable := srv.NewStreamableHTTPServer(
		mcpServer,
		srv.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return s.requestContext(ctx, parser, r)
		}),
	)
	s.handler = streamable

	if err := s.registerTools(svc); err != nil {
		return nil, errors.Wrap(err, "register tools")
	}

	return s, nil
}

// Handler returns the HTTP handler that should be mounted to serve MCP traffic.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) registerTools(svc tools.FileService) error {
	listTool, err := tools.NewFileListTool(svc)
	if err != nil {
		return err
	}
	renameTool, err := tools.NewFileRenameTool(svc)
	if err != nil {
		return err
	}
	shareTool, err := tools.NewFileShareTool(svc)
	if err != nil {
		return err
	}
	deleteTool, err := tools.NewFileDeleteTool(svc)
	if err != nil {
		return err
	}
	usageTool, err := tools.NewUsageSummaryTool(svc)
	if err != nil {
		return err
	}

	for _, t := range []tool{listTool, renameTool, shareTool, deleteTool, usageTool} {
		s.mcp.AddTool(t.Definition(), t.Handle)
	}
	return nil
}

// requestContext attaches the caller identity and a request logger.
// Unauthenticated requests still reach the tools, which reject them individually.
func (s *Server) requestContext(ctx context.Context, parser auth.TokenParser, r *http.Request) context.Context {
	ctx = context.WithValue(ctx, ctxkeys.Logger, s.logger)

	authed, err := auth.ContextFromRequest(ctx, parser, r)
	if err != nil {
		s.logger.Debug("mcp request without valid identity",
			zap.String("remote", r.RemoteAddr), zap.Error(err))
		return ctx
	}
	return authed
}

func newMCPHooks(logger logSDK.Logger) *srv.Hooks {
	if logger == nil {
		return nil
	}

	hooks := &srv.Hooks{}

	hooks.AddBeforeAny(func(ctx context.Context, id any, method mcp.MCPMethod, message any) {
		fields := hookLogFields(ctx, id, method)
		if message != nil {
			fields = append(fields, zap.String("request", redactHookPayload(message)))
		}
		logger.Debug("mcp request received", fields...)
	})

	hooks.AddOnSuccess(func(ctx context.Context, id any, method mcp.MCPMethod, message any, result any) {
		fields := hookLogFields(ctx, id, method)
		if result != nil {
			fields = append(fields, zap.String("response", redactHookPayload(result)))
		}
		logger.Info("mcp request succeeded", fields...)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		fields := hookLogFields(ctx, id, method)
		if message != nil {
			fields = append(fields, zap.String("request", redactHookPayload(message)))
		}
		fields = append(fields, zap.Error(err))
		logger.Error("mcp request failed", fields...)
	})

	hooks.AddOnRegisterSession(func(ctx context.Context, session srv.ClientSession) {
		logger.Info("mcp session registered", zap.String("session_id", session.SessionID()))
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session srv.ClientSession) {
		logger.Info("mcp session unregistered", zap.String("session_id", session.SessionID()))
	})

	return hooks
}

func hookLogFields(ctx context.Context, id any, method mcp.MCPMethod) []zap.Field {
	fields := []zap.Field{
		zap.Any("request_id", id),
		zap.String("method", string(method)),
	}

	if session := srv.ClientSessionFromContext(ctx); session != nil {
		fields = append(fields, zap.String("session_id", session.SessionID()))
	}

	return fields
}
