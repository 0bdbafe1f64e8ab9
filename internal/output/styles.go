package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Never use inline lipgloss.Color literals elsewhere.
var (
	// ColorCyan is used for identifiable nouns: services, deployments, paths.
	ColorCyan = lipgloss.Color("14")

	ColorGreen   = lipgloss.Color("82")
	ColorYellow  = lipgloss.Color("220")
	ColorBlue    = lipgloss.Color("12")
	ColorRed     = lipgloss.Color("196")
	ColorBoldRed = lipgloss.Color("204")

	// ColorGreenCheck is used for the completion checkmark.
	ColorGreenCheck = lipgloss.Color("10")

	// ColorDimGray is used for borders and other structural chrome.
	ColorDimGray = lipgloss.Color("240")
)

// Semantic styles.
var (
	StyleNoun    = lipgloss.NewStyle().Foreground(ColorCyan)
	StyleAction  = lipgloss.NewStyle().Bold(true)
	StyleDim     = lipgloss.NewStyle().Faint(true)
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// Service states as shown to the user.
const (
	StatusStaging     = "staging"
	StatusCreating    = "creating"
	StatusUpdating    = "updating"
	StatusAwaiting    = "awaiting"
	StatusRunning     = "running"
	StatusRollingBack = "rolling back"
	StatusDeleting    = "deleting"
	StatusDeleted     = "deleted"
	StatusFailed      = "failed"
)

// StatusStyle returns the style of a service state. Unknown states are
// unstyled.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case StatusStaging, StatusAwaiting:
		return lipgloss.NewStyle().Faint(true)
	case StatusCreating, StatusUpdating:
		return lipgloss.NewStyle().Foreground(ColorBlue)
	case StatusRunning:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case StatusRollingBack, StatusDeleting:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusDeleted:
		return lipgloss.NewStyle().Foreground(ColorRed)
	case StatusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// SeverityStyle returns the style of a problem severity name.
func SeverityStyle(severity string) lipgloss.Style {
	switch strings.ToUpper(severity) {
	case "WARNING":
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case "ERROR":
		return lipgloss.NewStyle().Foreground(ColorRed)
	case "FATAL":
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle().Faint(true)
	}
}

const minServiceColumnWidth = 32

// FormatServiceLine renders "s:<service>/<version>" with a right-aligned,
// color-coded state.
func FormatServiceLine(service, version, status string) string {
	id := service
	if version != "" {
		id = fmt.Sprintf("%s/%s", service, version)
	}
	padding := max(minServiceColumnWidth-len(id), 2)
	return StyleDim.Render("s:") + StyleNoun.Render(id) + strings.Repeat(" ", padding) + StatusStyle(status).Render(status)
}

// FormatProblem renders one validation problem.
func FormatProblem(severity, location, message, remediation string) string {
	var b strings.Builder
	b.WriteString(SeverityStyle(severity).Render(fmt.Sprintf("%-7s", strings.ToUpper(severity))))
	b.WriteString(" ")
	if location != "" {
		b.WriteString(StyleNoun.Render(location))
		b.WriteString(": ")
	}
	b.WriteString(message)
	if remediation != "" {
		b.WriteString("\n        ")
		b.WriteString(StyleDim.Render("? " + remediation))
	}
	return b.String()
}

// FormatCheckmark renders a green checkmark with a message.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}

// Styles groups the styles used for diffs and trees.
type Styles struct {
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
}

// GetStyles returns the colored styles.
func GetStyles() *Styles {
	return &Styles{
		Success: lipgloss.NewStyle().Foreground(ColorGreen),
		Warning: lipgloss.NewStyle().Foreground(ColorYellow),
		Error:   lipgloss.NewStyle().Foreground(ColorRed),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Faint(true),
	}
}

// NoColorStyles returns styles that render text unchanged.
func NoColorStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{Success: plain, Warning: plain, Error: plain, Bold: plain, Muted: plain}
}
