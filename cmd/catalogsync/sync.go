package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"catalogsync/pkg/ui"
)

var (
	accessToken  string
	batchSize    int
	photoQuality string
	maxProducts  int
	notify       bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one catalog sync job",
	Long: `Fetch every collection and its products, store them in the catalog
database and download product photos.

Press Ctrl+C to stop: the job finishes the page or photo batch in flight,
records partial counts and ends in the error state.`,
	Example: `  # Sync a community catalog with the stored token
  catalogsync sync --owner-id -12345

  # Lower photo quality and cap products per collection
  catalogsync sync --owner-id -12345 --photo-quality medium --max-products 200`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&accessToken, "access-token", "", "API access token (overrides the stored one)")
	syncCmd.Flags().IntVar(&batchSize, "batch-size", 0, "products downloaded concurrently per batch")
	syncCmd.Flags().StringVar(&photoQuality, "photo-quality", "", "photo size to keep (original, high, medium, low)")
	syncCmd.Flags().IntVar(&maxProducts, "max-products", 0, "hard cap of products per collection")
	syncCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the job ends")
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"access-token":  accessToken,
		"batch-size":    batchSize,
		"photo-quality": photoQuality,
		"max-products":  maxProducts,
	})
	if err != nil {
		return err
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	console.Info("Owner", formatOwner(cfg.Catalog.OwnerID))
	console.Info("Database", cfg.Storage.DatabasePath)
	console.Info("Photos", cfg.Storage.PhotoDirectory)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		ui.NewProgressRenderer(console).Watch(watchCtx, a.orchestrator.Progress, 250*time.Millisecond)
	}()

	runErr := a.orchestrator.Run(ctx)
	stopWatch()
	<-watched

	final := a.orchestrator.Progress()
	var sender ui.NotificationSender
	if notify {
		sender = ui.PlatformSender()
	}
	ui.NewNotifier(console, sender).NotifySync(final)

	return runErr
}
