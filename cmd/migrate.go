package cmd

import (
	"context"

	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-cloud-drive/library/log"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long:  `create the file metadata indexes`,
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

		if d.mongoRepo == nil {
			log.Logger.Info("metadata backend has no indexes to create")
			return
		}

		names, err := d.mongoRepo.EnsureIndexes(ctx)
		if err != nil {
			log.Logger.Panic("migrate", zap.Error(err))
		}
		log.Logger.Info("indexes ensured", zap.Strings("indexes", names))
	},
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
