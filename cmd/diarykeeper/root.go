package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/crawler"
	"diarykeeper/pkg/credentials"
	"diarykeeper/pkg/fetch"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/ratelimit"
	"diarykeeper/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	dataDir    string
	noColor    bool
	quiet      bool
	randomUA   bool
	rps        float64
)

var rootCmd = &cobra.Command{
	Use:   "diarykeeper",
	Short: "Incremental archiver for idol group diaries and photo histories",
	Long: `diarykeeper crawls the official diary listings of the 46-group sites and
Bokuao, keeps a deduplicated per-site snapshot of every post, and packages
recent images into zip archives.

Features:
  - Multi-lane crawling that stops as soon as known posts are reached
  - Snapshots that only grow and are written atomically
  - Umbrella author disambiguation for relay diaries
  - Concurrent image export to a local directory or S3
  - Photo-history collections with dated archive entries
  - Session cookies stored in the system keychain or an encrypted file`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColor)
		if quiet {
			ui.SetQuietMode(true)
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .diarykeeper.yaml or $HOME/.config/diarykeeper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "directory holding the site snapshots")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&randomUA, "random-user-agent", false, "send a random browser user agent with each request")
	rootCmd.PersistentFlags().Float64Var(&rps, "requests-per-second", 0, "request rate shared by all lanes")

	rootCmd.SetVersionTemplate(`diarykeeper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags with command specific ones, loads the
// configuration and initializes the global logger from it
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if dataDir != "" {
		flags["data-dir"] = dataDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if rps > 0 {
		flags["requests-per-second"] = rps
	}
	if randomUA {
		flags["random-user-agent"] = true
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

// newClient creates the fetch client shared by every component of one command
func newClient(cfg *config.Config) *fetch.Client {
	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
	return fetch.NewClient(cfg.Fetch, limiter, logger.GetLogger())
}

// newRunner wires a crawl runner to the fetch client and the session store.
// A session store that cannot be opened only costs the stored cookies.
func newRunner(cfg *config.Config, client *fetch.Client) *crawler.Runner {
	var cookies crawler.CookieProvider
	if manager, err := credentials.NewManager(""); err == nil {
		cookies = manager
	} else {
		logger.GetLogger().WithError(err).Warn("session store unavailable, using configured cookies only")
	}
	return crawler.NewRunner(cfg, client, cookies, logger.GetLogger())
}

// resolveSites maps site arguments onto configured sites. With all set, or
// no arguments, every configured site is returned.
func resolveSites(cfg *config.Config, args []string, all bool) ([]*config.SiteConfig, error) {
	if all || len(args) == 0 {
		sites := make([]*config.SiteConfig, 0, len(cfg.Sites))
		for i := range cfg.Sites {
			sites = append(sites, &cfg.Sites[i])
		}
		return sites, nil
	}

	sites := make([]*config.SiteConfig, 0, len(args))
	for _, arg := range args {
		site, err := cfg.Site(strings.TrimSpace(arg))
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
