package cli

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

func formatSuccess(msg string) string { return successStyle.Render("✓ " + msg) }
func formatWarning(msg string) string { return warningStyle.Render("! " + msg) }
