package cmd

import (
	"context"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-cloud-drive/library/log"
)

var reconcileCMD = &cobra.Command{
	Use:   "reconcile",
	Short: "reconcile",
	Long:  `delete blobs that no file record references`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		d, err := setupDrive(ctx)
		if err != nil {
			log.Logger.Panic("setup drive", zap.Error(err))
		}
		defer d.Close(ctx)

		grace := d.svc.Settings().ReconcileGrace
		if cmd.Flags().Changed("grace") {
			if grace, err = cmd.Flags().GetDuration("grace"); err != nil {
				log.Logger.Panic("parse grace", zap.Error(err))
			}
		}
		dryRun := gconfig.Shared.GetBool("dry-run")

		report, err := d.svc.SweepOrphanBlobs(ctx, grace, dryRun)
		if err != nil {
			log.Logger.Panic("reconcile", zap.Error(err))
		}
		log.Logger.Info("reconcile finished",
			zap.Bool("dry_run", dryRun),
			zap.Duration("grace", grace),
			zap.Int("scanned", report.Scanned),
			zap.Int("orphans", len(report.Orphans)),
			zap.Int("deleted", report.Deleted),
			zap.Int("failed", report.Failed))
	},
}

func init() {
	rootCMD.AddCommand(reconcileCMD)
	reconcileCMD.Flags().Bool("dry-run", false, "only report orphaned blobs")
	reconcileCMD.Flags().Duration("grace", time.Hour, "skip blobs modified more recently than this")
}
