package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	// Client state colors
	runningColor  = lipgloss.Color("10") // Green
	stoppedColor  = lipgloss.Color("8")  // Gray
	crashedColor  = lipgloss.Color("9")  // Red
	startingColor = lipgloss.Color("11") // Yellow

	// UI colors
	headerBg   = lipgloss.Color("235")
	statusBg   = lipgloss.Color("236")
	buttonBg   = lipgloss.Color("238")
	accentBg   = lipgloss.Color("25")
	errorColor = lipgloss.Color("9")
	dimColor   = lipgloss.Color("8")
	cyanColor  = lipgloss.Color("14")
)

// Styles
var (
	runningStyle = lipgloss.NewStyle().
			Foreground(runningColor).
			Bold(true)

	stoppedStyle = lipgloss.NewStyle().
			Foreground(stoppedColor)

	crashedStyle = lipgloss.NewStyle().
			Foreground(crashedColor).
			Bold(true)

	startingStyle = lipgloss.NewStyle().
			Foreground(startingColor)

	// Header style
	headerStyle = lipgloss.NewStyle().
			Background(headerBg).
			Padding(0, 1)

	// Form styles
	labelStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(cyanColor).
				Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(cyanColor).
			Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Background(buttonBg).
			Padding(0, 2)

	activeButtonStyle = lipgloss.NewStyle().
				Background(accentBg).
				Foreground(lipgloss.Color("15")).
				Bold(true).
				Padding(0, 2)

	// Status line style
	statusStyle = lipgloss.NewStyle().
			Background(statusBg).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	// Dim style for timestamps
	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	// Log line styles
	stderrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	systemStyle = lipgloss.NewStyle().
			Foreground(cyanColor)
)
