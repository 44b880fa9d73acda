package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"catalogsync/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Configuration is merged from, highest priority first:
  - command line flags
  - CATALOGSYNC_* environment variables and .env files
  - the YAML config file
  - defaults`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with every option at its default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "catalogsync.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		cfg := config.DefaultConfig()
		if ownerID != 0 {
			cfg.Catalog.OwnerID = ownerID
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		console.Success("Configuration written to " + path)
		if cfg.Catalog.OwnerID == 0 {
			console.Warning("Set catalog.owner_id before running a sync")
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}

		shown := *cfg
		if shown.Catalog.AccessToken != "" {
			shown.Catalog.AccessToken = "********"
		}
		data, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("failed to format configuration: %w", err)
		}
		fmt.Fprint(console.Writer(), string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := loadConfig(nil); err != nil {
			return err
		}
		console.Success("Configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}
