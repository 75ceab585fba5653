package main

import (
	"fmt"
	"os"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/credentials"
	"diarykeeper/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage diarykeeper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (DIARYKEEPER_*)
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write the built-in configuration, including every site definition, to a
YAML file. The file is created as '.diarykeeper.yaml' in the current directory
unless a different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. Cookie values are
masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".diarykeeper.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	ui.PrintSuccess("Configuration file created: " + path)
	ui.Println("\nNext steps:")
	ui.Println("1. Adjust the data directory and the archive settings")
	ui.Println("2. Run 'diarykeeper config validate' to check the configuration")
	ui.Println("3. Start with 'diarykeeper crawl --all'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	display := *cfg
	display.Sites = make([]config.SiteConfig, len(cfg.Sites))
	for i, site := range cfg.Sites {
		if len(site.Cookies) > 0 {
			site.Cookies = credentials.Sanitize(&credentials.Session{Cookies: site.Cookies}).Cookies
		}
		display.Sites[i] = site
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	ui.PrintHighlight("Current Configuration")
	ui.Println(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	if info, err := os.Stat(cfg.Data.Directory); err != nil {
		ui.PrintWarning("Data directory does not exist yet", cfg.Data.Directory)
	} else if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", cfg.Data.Directory)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Sites", fmt.Sprintf("%d", len(cfg.Sites)))
	ui.PrintInfo("Data directory", cfg.Data.Directory)
	ui.PrintInfo("Archive sink", cfg.Archive.Sink)
	return nil
}
