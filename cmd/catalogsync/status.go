package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"catalogsync/pkg/models"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last sync job and what is stored",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the progress record as JSON")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	progress := a.orchestrator.Progress()
	if statusJSON {
		enc := json.NewEncoder(console.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(progress)
	}

	stats, err := a.store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	console.Highlight("Last job")
	console.Info("Status", string(progress.Status))
	if progress.JobID != "" {
		console.Info("Job", progress.JobID)
	}
	console.Info("Collections", fmt.Sprintf("%d/%d", progress.CollectionsDone, progress.CollectionsTotal))
	console.Info("Products", fmt.Sprintf("%d/%d", progress.ProductsDone, progress.ProductsTotal))
	console.Info("Photos", fmt.Sprintf("%d/%d", progress.PhotosDone, progress.PhotosTotal))
	if progress.StartedAt != nil {
		console.Info("Started", progress.StartedAt.Local().Format(time.RFC1123))
	}
	if progress.CompletedAt != nil {
		console.Info("Finished", progress.CompletedAt.Local().Format(time.RFC1123))
	}
	if progress.Message != nil {
		console.Info("Message", *progress.Message)
	}
	if progress.Error != nil {
		console.Error("Error", fmt.Errorf("%s", *progress.Error))
	}
	if progress.Status == models.StatusIdle {
		console.Warning("No sync has run for this owner yet")
	}

	fmt.Fprintln(console.Writer())
	console.Highlight("Stored")
	console.Info("Collections", strconv.Itoa(stats.Collections))
	console.Info("Products", strconv.Itoa(stats.Products))
	console.Info("Photo records", strconv.Itoa(stats.Photos))
	console.Info("Photo files", strconv.Itoa(a.photos.StoredCount()))
	return nil
}

func formatOwner(id int64) string {
	if id < 0 {
		return fmt.Sprintf("community %d", -id)
	}
	return fmt.Sprintf("user %d", id)
}
