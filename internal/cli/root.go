// Package cli implements the esios command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/colthorp/esios-cli-go/internal/api"
	"github.com/colthorp/esios-cli-go/internal/cache"
	"github.com/colthorp/esios-cli-go/internal/config"
	"github.com/colthorp/esios-cli-go/internal/core"
	"github.com/colthorp/esios-cli-go/internal/esios"
)

// Global flags
var (
	verbose  bool
	quiet    bool
	token    string
	timezone string
	noCache  bool
)

var rootCmd = &cobra.Command{
	Use:   "esios",
	Short: "CLI for the Spanish electricity market (ESIOS/REE) API",
	Long: `Query indicators, offer indicators, and downloadable archives from
the ESIOS API, with a local cache so repeated requests stay offline.`,
	Version:       core.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		core.SetupLogging(verbose, quiet)
	},
}

// Execute runs the CLI. Authentication and infrastructure failures
// exit with 2, other errors with 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 2 for auth
// failures, network errors, and exhausted server-side retries; 1 for
// everything else (bad arguments, 4xx responses, local I/O).
func exitCode(err error) int {
	var authErr *api.AuthError
	if errors.As(err, &authErr) {
		return 2
	}
	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return 2
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 500 {
		return 2
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose debug output to stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only report errors")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", "", "ESIOS API key (overrides env and config)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", fmt.Sprintf("Display timezone (default: %s)", core.DefaultTZ))
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Bypass the local cache")
}

// newClient builds the API client and cache store from the resolved
// configuration plus command-line overrides.
func newClient() (*esios.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	resolved := config.ResolveToken(token, cfg)
	transport, err := api.NewClient(api.ClientConfig{
		Token:   resolved,
		BaseURL: cfg.BaseURL,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	cacheCfg := cache.Config{
		Enabled:         cfg.Cache.Enabled && !noCache,
		Dir:             cfg.Cache.Dir,
		RecentTTLHours:  cfg.Cache.RecentTTLHours,
		MetaTTLDays:     cfg.Cache.MetaTTLDays,
		CatalogTTLHours: cfg.Cache.CatalogTTLHours,
	}
	if cacheCfg.Dir == "" {
		cacheCfg.Dir = core.CacheRoot()
	}
	store := cache.NewStore(cacheCfg)

	tz := timezone
	if tz == "" {
		tz = cfg.Timezone
	}
	return esios.New(transport, store, tz), nil
}

// newStore builds just the cache store, for maintenance commands that
// never touch the network.
func newStore() (*cache.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cacheCfg := cache.Config{
		Enabled:         cfg.Cache.Enabled,
		Dir:             cfg.Cache.Dir,
		RecentTTLHours:  cfg.Cache.RecentTTLHours,
		MetaTTLDays:     cfg.Cache.MetaTTLDays,
		CatalogTTLHours: cfg.Cache.CatalogTTLHours,
	}
	if cacheCfg.Dir == "" {
		cacheCfg.Dir = core.CacheRoot()
	}
	return cache.NewStore(cacheCfg), nil
}
