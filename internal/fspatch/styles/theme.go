package styles

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

// Viewer styles.
var (
	MenuBar = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1)

	ListTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			MarginLeft(2)

	Spinner = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Status returns the style for a variant status.
func Status(status string) lipgloss.Style {
	switch status {
	case "resolved":
		return lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Guac.Hex())).Bold(true)
	case "ambiguous":
		return lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Zest.Hex()))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cheeky.Hex()))
	}
}
