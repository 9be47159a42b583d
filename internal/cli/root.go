// Package cli implements the sfq command line interface.
package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/fondat/salesforce-go/internal/config"
	"github.com/fondat/salesforce-go/internal/logger"
	"github.com/fondat/salesforce-go/salesforce"
	"github.com/fondat/salesforce-go/salesforce/oauth"
)

// DefaultAPIVersion is used when no API version is configured.
const DefaultAPIVersion = "57.0"

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagVerbose   bool
	flagConfigDir string
	flagAuth      string
)

var rootCmd = &cobra.Command{
	Use:   "sfq",
	Short: "Query Salesforce from the command line",
	Long: `sfq is a client for the Salesforce REST and Bulk 2.0 APIs.

Credentials come from ~/.sfq/config.toml, overridden by the
FONDAT_SALESFORCE_* environment variables. Two authentication flows
are supported, selected with --auth:

  password  resource owner password grant (username + password)
  refresh   refresh token grant (obtain one with 'sfq auth login --web')`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.sfq)")
	rootCmd.PersistentFlags().StringVar(&flagAuth, "auth", string(oauth.GrantPassword), "authentication flow: password|refresh")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newStore opens the config store for the selected config directory.
func newStore() (*config.Store, error) {
	store, err := config.NewStore(flagConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return store, nil
}

// oauthConfig assembles the grant config from the store and
// environment.
func oauthConfig(store *config.Store) oauth.Config {
	cfg := store.Resolved()
	return oauth.Config{
		Endpoint:     cfg.Endpoint,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
		Password:     os.Getenv(oauth.EnvPassword),
		RefreshToken: cfg.RefreshToken,
	}
}

// apiVersion returns the configured API version or the default.
func apiVersion(store *config.Store) string {
	if v := store.Resolved().APIVersion; v != "" {
		return v
	}
	return DefaultAPIVersion
}

// newClient builds a Salesforce client for the selected auth flow.
func newClient(store *config.Store) (*salesforce.Client, error) {
	auth, err := oauth.NewAuthenticator(oauth.Grant(flagAuth), oauthConfig(store))
	if err != nil {
		return nil, err
	}
	apiVer := apiVersion(store)
	logger.Debug("client: auth=%s api=%s", flagAuth, apiVer)
	return salesforce.NewWithHTTPClient(auth, apiVer, &http.Client{Timeout: salesforce.DefaultTimeout}), nil
}
