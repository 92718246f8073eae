package cli

import "github.com/charmbracelet/lipgloss"

// Signal palette
// Shared by the CLI and the monitor so meters and help read the same
var (
	// Level colours (healthy to starved)
	SignalGreen = lipgloss.Color("#3CB371") // Occupancy at or above target
	SignalAmber = lipgloss.Color("#F8B31D") // Between low-water and target
	SignalRed   = lipgloss.Color("#DC143C") // Below low-water or underrun

	// Accent colours
	SignalBlue = lipgloss.Color("#4682B4") // Flags and keys
	SlateGray  = lipgloss.Color("#708090") // Subtle text
)
