package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// bootstrapCmd represents the bootstrap command
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the current month's record from the template",
	Long: `Bootstrap ensures the current month's record object exists, seeding it
from the template when absent. An existing record is never overwritten,
so the command is safe to run repeatedly; schedule it around the month
boundary.

Example:
  outagewatch bootstrap --bucket outages
  outagewatch bootstrap --store-backend fs --store-dir ./data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		records, err := buildRecords(ctx, buildRunConfig())
		if err != nil {
			return err
		}
		return records.Bootstrap(ctx)
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)

	bootstrapCmd.Flags().StringVar(&storeBackend, "store-backend", "s3", "record store backend (s3, fs)")
	bootstrapCmd.Flags().StringVar(&bucket, "bucket", "", "bucket holding the monthly records")
	bootstrapCmd.Flags().StringVar(&region, "region", "auto", "bucket region")
	bootstrapCmd.Flags().StringVar(&endpoint, "endpoint", "", "custom S3 endpoint (R2, MinIO)")
	bootstrapCmd.Flags().StringVar(&storeDir, "store-dir", "", "directory for the fs store backend")
}
