package report

import "github.com/charmbracelet/lipgloss"

// theme groups reusable styles for delivery report regions.
type theme struct {
	header       lipgloss.Style
	headerMeta   lipgloss.Style
	divider      lipgloss.Style
	okBadge      lipgloss.Style
	failBadge    lipgloss.Style
	recipient    lipgloss.Style
	subject      lipgloss.Style
	errorText    lipgloss.Style
	messageBox   lipgloss.Style
	messageTitle lipgloss.Style
	summary      lipgloss.Style
	summaryErr   lipgloss.Style
	hint         lipgloss.Style
}

// defaultTheme keeps the retro terminal palette of the CLI.
func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("88")),
		headerMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("223")),
		divider: lipgloss.NewStyle().
			Foreground(lipgloss.Color("130")),
		okBadge: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("114")).
			Padding(0, 1),
		failBadge: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("160")).
			Padding(0, 1),
		recipient: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")),
		subject: lipgloss.NewStyle().
			Foreground(lipgloss.Color("180")),
		errorText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")),
		messageBox: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("44")).
			Padding(0, 1),
		messageTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("44")).
			Padding(0, 1),
		summary: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true),
		summaryErr: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
	}
}
