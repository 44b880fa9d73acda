package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"catalogsync/pkg/config"
	"catalogsync/pkg/logger"
	"catalogsync/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile   string
	logLevel     string
	ownerID      int64
	databasePath string
	photoDir     string
	profile      string
	noLogo       bool

	console = ui.Stdout()
)

var rootCmd = &cobra.Command{
	Use:   "catalogsync",
	Short: "Mirror a shop catalog into a local database and photo store",
	Long: `catalogsync copies the collections, products and product photos of a
VK market catalog into a local SQLite database and a photo directory.

Jobs page through the catalog API with retries, shrink product pages when the
API struggles, and download photos in fixed-size concurrent batches.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noLogo || cmd.Name() == "help" {
			return
		}
		switch cmd.Name() {
		case "sync", "serve":
			console.Logo()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		console.Error("Error", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default is ./catalogsync.yaml or ~/.config/catalogsync/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.Int64Var(&ownerID, "owner-id", 0, "catalog owner ID, negative for communities")
	flags.StringVar(&databasePath, "database", "", "path of the SQLite catalog database")
	flags.StringVar(&photoDir, "photo-dir", "", "directory photos are stored in")
	flags.StringVar(&profile, "profile", "", "stored access token profile (default \"default\")")
	flags.BoolVar(&noLogo, "no-logo", false, "do not print the banner")

	rootCmd.SetVersionTemplate(`catalogsync {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags with extra command flags and
// initializes the global logger
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"owner-id":  ownerID,
		"database":  databasePath,
		"photo-dir": photoDir,
		"log-level": logLevel,
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
