package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Logo printed above interactive commands
const Logo = `
  ┌─┐┬┌─┐┬─┐┬ ┬┬┌─┌─┐┌─┐┌─┐┌─┐┬─┐
  │││││├─┤├┬┘└┬┘├┴┐├┤ ├┤ ├─┘├┤ ├┬┘
  └─┘┴┴ ┴┴└─ ┴ ┴ ┴└─┘└─┘┴  └─┘┴└─
   diary and photo archiver
`

var (
	cyan    = lipgloss.Color("36")
	yellow  = lipgloss.Color("33")
	red     = lipgloss.Color("31")
	green   = lipgloss.Color("32")
	magenta = lipgloss.Color("35")

	labelStyle     = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	valueStyle     = lipgloss.NewStyle().Foreground(yellow)
	errorStyle     = lipgloss.NewStyle().Foreground(red).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(green).Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(yellow)
	highlightStyle = lipgloss.NewStyle().Foreground(magenta).Bold(true)
	dimStyle       = lipgloss.NewStyle().Faint(true)
)

var (
	mu     sync.Mutex
	output io.Writer = os.Stdout
	quiet  bool
)

// SetOutput redirects everything this package prints
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) {
	mu.Lock()
	quiet = q
	mu.Unlock()
}

// SetNoColor strips colour and text attributes from all styles
func SetNoColor(noColor bool) {
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

func write(force bool, s string) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !force {
		return
	}
	fmt.Fprintln(output, s)
}

// Label styles a field name
func Label(s string) string { return labelStyle.Render(s) }

// Value styles a field value
func Value(s string) string { return valueStyle.Render(s) }

// Dim styles secondary text
func Dim(s string) string { return dimStyle.Render(s) }

// PrintLogo prints the banner
func PrintLogo() {
	write(false, labelStyle.Render(Logo))
}

// PrintError prints an error message, with an optional detail after a colon
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	write(true, errorStyle.Render(msg))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	write(false, successStyle.Render(msg))
}

// PrintInfo prints a label: value line
func PrintInfo(label string, value string) {
	write(false, fmt.Sprintf("%s: %s", Label(label), Value(value)))
}

// PrintWarning prints a warning, with an optional detail after a colon
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	write(false, warningStyle.Render(msg))
}

// PrintHighlight prints a highlighted heading
func PrintHighlight(msg string) {
	write(false, highlightStyle.Render(msg))
}

// Println prints plain text, honouring quiet mode
func Println(s string) {
	write(false, s)
}
