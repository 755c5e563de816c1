// Package style defines the visual styling for nixstall's terminal
// output. Styles use semantic names and adaptive colors so they work on
// both light and dark terminal themes.
package style

import "github.com/charmbracelet/lipgloss"

var (
	// Title is used for failure titles and section headings.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "196"})

	// Detail is used for the longer failure explanation under a title.
	Detail = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "250"})

	// Success is used for the final completion message.
	Success = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"})

	// Phase is used for phase names in the progress display.
	Phase = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "39"})
)

// Failure renders a (title, detail) pair for the terminal.
func Failure(title, detail string) string {
	if detail == "" {
		return Title.Render(title)
	}
	return Title.Render(title) + "\n" + Detail.Render(detail)
}
