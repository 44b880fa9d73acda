package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"catalogsync/internal/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sync control and the stored catalog over HTTP",
	Long: `Start an HTTP server that starts and cancels sync jobs, reports progress
and reads the stored catalog.

  POST   /sync                        start a job (202, 409 when one is running)
  GET    /sync/status                 progress of the current or last job
  DELETE /sync                        cancel the running job
  DELETE /catalog                     clear stored data (409 while syncing)
  GET    /collections                 stored collections
  GET    /collections/{id}/products   stored products of a collection
  GET    /products/{id}/photos        stored photo records of a product`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8080", "address to listen on")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console.Info("Listening", listenAddr)
	if err := server.New(listenAddr, a.orchestrator, a.store, a.log).Run(ctx); err != nil {
		return err
	}

	if a.orchestrator.Cancel() {
		a.log.Info("waiting for the running job to stop")
		a.orchestrator.Wait()
	}
	return nil
}
