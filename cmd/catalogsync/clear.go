package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored collection, product and photo",
	Long: `Delete the catalog database rows and the downloaded photos of this
owner. Refused while a sync job is running.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
}

func runClear(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	if !clearYes && !confirm(fmt.Sprintf("Delete everything in %s and %s? [y/N]: ",
		cfg.Storage.DatabasePath, cfg.Storage.PhotoDirectory)) {
		console.Warning("Cancelled")
		return nil
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orchestrator.ClearAll(cmd.Context()); err != nil {
		return err
	}
	console.Success("Catalog cleared")
	return nil
}

func confirm(prompt string) bool {
	fmt.Fprint(console.Writer(), prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
