package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"diarykeeper/pkg/credentials"
	"diarykeeper/pkg/fetch"
	"diarykeeper/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage site session cookies",
	Long: `Manage the session cookies sent with requests to sites that need a login,
such as the Sakurazaka46 fan club pages or Bokuao.

Cookies are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - DIARYKEEPER_COOKIES_<SITE> environment variables (read only)

Never share your cookies or the session file!`,
}

var sessionSetCmd = &cobra.Command{
	Use:   "set <site>",
	Short: "Store the session cookies for a site",
	Long: `Store the Cookie header of a logged-in browser session for a site.
The value is read without echo when stdin is a terminal.`,
	Example: `  diarykeeper session set Sakurazaka46`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionSet,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored sessions with masked cookie values",
	Args:  cobra.NoArgs,
	RunE:  runSessionShow,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <site>",
	Short: "Remove the stored session of a site",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionSetCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}

func runSessionSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	site, err := cfg.Site(args[0])
	if err != nil {
		return err
	}
	manager, err := credentials.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}

	credentials.WriteCookieGuide(os.Stdout, site.ID, site.HomePage)
	fmt.Print("\nCookie header: ")
	header, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}

	cookies := fetch.ParseCookieHeader(header)
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies found in input, expected name=value pairs separated by ';'")
	}
	if err := manager.Store(&credentials.Session{Site: site.ID, Cookies: cookies}); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Stored %d cookies for %s", len(cookies), site.ID))
	return nil
}

// readSecret reads one line from stdin, without echo on a terminal
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
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

func runSessionShow(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessions, err := manager.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.PrintWarning("No sessions stored")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		masked := credentials.Sanitize(s)
		updated := "-"
		if !masked.LastModified.IsZero() {
			updated = masked.LastModified.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{masked.Site, fetch.CookieHeader(masked.Cookies), updated})
	}
	ui.PrintTable([]string{"Site", "Cookies", "Updated"}, rows)
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	manager, err := credentials.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Removed session for " + args[0])
	return nil
}
