package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"catalogsync/pkg/auth"
)

var tokenOwnerID int64

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage catalog API access tokens",
	Long: `Manage stored API access tokens.

Tokens are stored in, by preference:
  - the system keychain, when available
  - an encrypted file (PBKDF2 + AES-GCM) in the config directory
  - CATALOGSYNC_ACCESS_TOKEN, read-only`,
}

var setTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store an access token under a profile",
	Example: `  # Prompt for the token without echo
  catalogsync auth set-token

  # Store a second profile
  catalogsync auth set-token --profile backup`,
	Args: cobra.NoArgs,
	RunE: runSetToken,
}

var listTokensCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles with masked tokens",
	Args:  cobra.NoArgs,
	RunE:  runListTokens,
}

var deleteTokenCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the token of a profile",
	Args:  cobra.NoArgs,
	RunE:  runDeleteToken,
}

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to obtain an access token",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		auth.WriteTokenGuide(console.Writer())
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setTokenCmd, listTokensCmd, deleteTokenCmd, guideCmd)

	setTokenCmd.Flags().Int64Var(&tokenOwnerID, "token-owner", 0, "owner ID the token was issued for (informational)")
}

func runSetToken(cmd *cobra.Command, _ []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	fmt.Fprint(console.Writer(), "Access token: ")
	token, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		return errors.New("empty token, nothing stored")
	}

	stored := &auth.Token{Profile: profile, AccessToken: token, OwnerID: tokenOwnerID}
	if err := manager.Store(stored); err != nil {
		return err
	}
	console.Success(fmt.Sprintf("Token stored for profile %q", stored.Profile))
	return nil
}

func runListTokens(cmd *cobra.Command, _ []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	tokens, err := manager.List()
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		console.Warning("No tokens stored. Run 'catalogsync auth guide' to get one.")
		return nil
	}

	for _, token := range tokens {
		masked := token.Masked()
		value := masked.AccessToken
		if masked.OwnerID != 0 {
			value += fmt.Sprintf(" (owner %d)", masked.OwnerID)
		}
		console.Info(masked.Profile, value)
	}
	return nil
}

func runDeleteToken(cmd *cobra.Command, _ []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	if err := manager.Delete(profile); err != nil {
		return err
	}
	console.Success("Token deleted")
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(console.Writer())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
