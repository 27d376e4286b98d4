package cmd

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-cloud-drive/internal/mcp"
	"github.com/Laisky/laisky-cloud-drive/internal/web"
	"github.com/Laisky/laisky-cloud-drive/library/jwt"
	"github.com/Laisky/laisky-cloud-drive/library/log"
	"github.com/Laisky/laisky-cloud-drive/library/throttle"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `HTTP and MCP API for the cloud drive`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAPI(cmd.Context()); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func setupJWT() (*jwt.JWT, error) {
	opts := []jwt.Option{jwt.WithLeeway(30 * time.Second)}
	if issuer := gconfig.Shared.GetString("settings.jwt.issuer"); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return jwt.New([]byte(gconfig.Shared.GetString("settings.secret")), opts...)
}

func runAPI(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	parser, err := setupJWT()
	if err != nil {
		return errors.Wrap(err, "setup jwt")
	}

	d, err := setupDrive(ctx)
	if err != nil {
		return errors.Wrap(err, "setup drive")
	}
	defer d.Close(context.Background())

	opt := web.Options{
		Service:     d.svc,
		Parser:      parser,
		CORSDomains: gconfig.Shared.GetStringSlice("settings.web.cors_domains"),
		Logger:      log.Logger,
		Debug:       gconfig.Shared.GetBool("debug"),
	}
	if gconfig.Shared.GetBool("settings.drive.throttle.enabled") {
		limiter, err := throttle.New(throttle.Config{
			TotalNPerSec:   gconfig.Shared.GetInt("settings.drive.throttle.total_per_sec"),
			TotalBurst:     gconfig.Shared.GetInt("settings.drive.throttle.total_burst"),
			EachKeyNPerSec: gconfig.Shared.GetInt("settings.drive.throttle.user_per_sec"),
			EachKeyBurst:   gconfig.Shared.GetInt("settings.drive.throttle.user_burst"),
			EachKeyIdle:    time.Duration(gconfig.Shared.GetInt("settings.drive.throttle.user_idle_seconds")) * time.Second,
		})
		if err != nil {
			return errors.Wrap(err, "new upload throttle")
		}
		opt.UploadLimiter = limiter
	}
	if gconfig.Shared.GetBool("settings.mcp.enabled") {
		mcpServer, err := mcp.NewServer(d.svc, parser, log.Logger)
		if err != nil {
			return errors.Wrap(err, "new mcp server")
		}
		opt.MCP = mcpServer.Handler()
	}

	server, err := web.NewServer(opt)
	if err != nil {
		return errors.Wrap(err, "new web server")
	}

	return server.Run(gconfig.Shared.GetString("listen"))
}

func init() {
	rootCMD.AddCommand(apiCMD)
}
