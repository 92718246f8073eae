package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/blockfeed/internal/stream"
)

// AppName and Tagline head the banner and help output
const (
	AppName = "blockfeed"
	Tagline = "Feed sample blocks to a realtime audio callback and watch the queue breathe."
)

// Color palette
var (
	primaryColor   = SignalAmber
	successColor   = SignalGreen
	errorColor     = SignalRed
	mutedColor     = lipgloss.Color("#888888") // Gray
	highlightColor = lipgloss.Color("#FFFF00") // Yellow
	textColor      = lipgloss.Color("#FFFFFF") // White
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	// Key-value pair styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	// Box style for framed content
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

// PrintBanner prints the application banner
func PrintBanner() {
	fmt.Println(TitleStyle.Render(AppName))
	fmt.Println(SubtitleStyle.Render(Tagline))
	fmt.Println()
}

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render(AppName))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("%s %s\n", HighlightStyle.Render("Warning:"), message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), message)
}

// PrintInfo prints an informational message
func PrintInfo(key, value string) {
	fmt.Printf("%s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(value))
}

// FormatDuration formats a duration nicely
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", d.Seconds()*1000)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatFrames formats a frame count as audio time at sampleRate
func FormatFrames(frames uint64, sampleRate int) string {
	if sampleRate <= 0 {
		return fmt.Sprintf("%d frames", frames)
	}
	d := time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
	return fmt.Sprintf("%d frames (%s)", frames, FormatDuration(d))
}

// PrintBox prints content in a styled box
func PrintBox(content string) {
	fmt.Println(BoxStyle.Render(content))
}

// FormatSummary renders the end-of-run statistics
func FormatSummary(title string, s stream.Snapshot, sampleRate int, elapsed time.Duration) string {
	var b strings.Builder

	status := SuccessStyle.Render("✓ " + title)
	if s.Underruns > 0 {
		status = HighlightStyle.Render("! " + title)
	}
	b.WriteString(status)
	b.WriteString("\n\n")

	row := func(key, value string) {
		b.WriteString(KeyStyle.Render(fmt.Sprintf("%-12s", key+":")))
		b.WriteString(ValueStyle.Render(value))
		b.WriteString("\n")
	}

	row("Elapsed", FormatDuration(elapsed))
	row("Rendered", FormatFrames(s.Frames, sampleRate))
	row("Callbacks", fmt.Sprintf("%d × %d frames", s.Renders, s.Quantum))
	row("Underruns", fmt.Sprintf("%d (%.2f%% silence)", s.Underruns, s.UnderrunRatio()*100))
	row("Requests", fmt.Sprintf("%d sent, %d dropped, %d frames asked", s.Requests, s.DroppedRequests, s.RequestedFrames))
	row("Blocks", fmt.Sprintf("%d queued, %d discarded", s.Enqueued, s.Discarded))
	b.WriteString(KeyStyle.Render(fmt.Sprintf("%-12s", "Thresholds:")))
	b.WriteString(ValueStyle.Render(fmt.Sprintf("low-water %d, target %d", s.LowWater, s.Target)))

	return b.String()
}

// PrintSummary prints FormatSummary in a box
func PrintSummary(title string, s stream.Snapshot, sampleRate int, elapsed time.Duration) {
	PrintBox(FormatSummary(title, s, sampleRate, elapsed))
}
