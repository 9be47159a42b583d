package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fondat/salesforce-go/internal/config"
	"github.com/fondat/salesforce-go/internal/logger"
	"github.com/fondat/salesforce-go/salesforce/oauth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Salesforce authentication",
	Long: `Log in to a Salesforce org and inspect authentication state.

Examples:
  # Password grant: prompts for the password, verifies the credentials
  sfq auth login --username user@example.com

  # Web flow: opens a browser, stores the refresh token for --auth refresh
  sfq auth login --web

  # Sandbox org
  FONDAT_SALESFORCE_ENDPOINT=https://test.salesforce.com sfq auth login --web`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the configured org",
	RunE:  runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication configuration and verify it",
	RunE:  runAuthStatus,
}

var (
	flagLoginWeb      bool
	flagLoginUsername string
)

func init() {
	authLoginCmd.Flags().BoolVar(&flagLoginWeb, "web", false, "use the browser-based authorization code flow")
	authLoginCmd.Flags().StringVar(&flagLoginUsername, "username", "", "username for the password grant")
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	if flagLoginWeb {
		return loginWeb(cmd, store)
	}
	return loginPassword(cmd, store)
}

// loginPassword verifies username/password credentials with the
// password grant and remembers the username.
func loginPassword(cmd *cobra.Command, store *config.Store) error {
	cfg := oauthConfig(store)

	if flagLoginUsername != "" {
		cfg.Username = flagLoginUsername
	}
	if cfg.Username == "" {
		return fmt.Errorf("username required: pass --username or set %s", oauth.EnvUsername)
	}

	if cfg.Password == "" {
		password, err := promptPassword(cmd, fmt.Sprintf("Password for %s: ", cfg.Username))
		if err != nil {
			return err
		}
		cfg.Password = password
	}

	auth, err := oauth.Password(cfg)
	if err != nil {
		return err
	}
	token, err := auth.Authenticate(cmd.Context())
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	store.Update(func(c *config.Config) {
		c.Username = cfg.Username
		c.Endpoint = cfg.Endpoint
	})
	if err := store.Save(); err != nil {
		return err
	}

	cmd.Printf("Logged in to %s as %s\n", token.InstanceURL, cfg.Username)
	return nil
}

// loginWeb runs the authorization code flow and stores the refresh
// token for later use with --auth refresh.
func loginWeb(cmd *cobra.Command, store *config.Store) error {
	cfg := oauthConfig(store)
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return fmt.Errorf("client credentials required: set %s and %s", oauth.EnvClientID, oauth.EnvClientSecret)
	}

	web := oauth.WebConfig{
		Endpoint:     cfg.Endpoint,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}

	token, err := oauth.Authorize(cmd.Context(), web, func(authURL string) {
		cmd.Println("Open this URL in your browser to authorize:")
		cmd.Println()
		cmd.Println("  " + authURL)
		cmd.Println()
		cmd.Println("Waiting for authorization...")
	})
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	if token.RefreshToken == "" {
		logger.Warn("no refresh token in response; check the connected app's refresh_token scope")
		cmd.Println("Authorized, but no refresh token was issued.")
		return nil
	}

	store.Update(func(c *config.Config) {
		c.RefreshToken = token.RefreshToken
		c.Endpoint = cfg.Endpoint
	})
	if err := store.Save(); err != nil {
		return err
	}

	cmd.Printf("Logged in to %s\n", token.InstanceURL)
	cmd.Printf("Refresh token saved to %s\n", store.Path())
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	cfg := store.Resolved()

	cmd.Printf("Config file:   %s\n", store.Path())
	cmd.Printf("Endpoint:      %s\n", displayEndpoint(cfg.Endpoint))
	cmd.Printf("Client ID:     %s\n", present(cfg.ClientID))
	cmd.Printf("Client secret: %s\n", present(cfg.ClientSecret))
	cmd.Printf("Username:      %s\n", valueOr(cfg.Username, "(not set)"))
	cmd.Printf("Refresh token: %s\n", present(cfg.RefreshToken))

	client, err := newClient(store)
	if err != nil {
		cmd.Printf("Auth check:    skipped (%v)\n", err)
		return nil
	}
	instance, err := client.InstanceURL(cmd.Context())
	if err != nil {
		return fmt.Errorf("auth check failed: %w", err)
	}
	cmd.Printf("Auth check:    ok (%s)\n", instance)
	return nil
}

// promptPassword reads a password without echo when stdin is a
// terminal, falling back to a plain line read otherwise.
func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		defer cmd.Println()
		raw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	var line string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &line); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func displayEndpoint(endpoint string) string {
	if endpoint == "" {
		return oauth.DefaultEndpoint + " (default)"
	}
	return endpoint
}

func present(value string) string {
	if value == "" {
		return "(not set)"
	}
	return "(set)"
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
