package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table renders rows under headers with a rounded border
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// PrintTable prints a table, honouring quiet mode
func PrintTable(headers []string, rows [][]string) {
	write(false, Table(headers, rows))
}
