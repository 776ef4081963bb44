package internal

import (
	"fmt"
	"strings"
	"time"

	"countdown_tui/internal/history"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Align(lipgloss.Center)

	fieldStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Foreground(lipgloss.Color("69")).
			Bold(true).
			Padding(0, 2)

	fieldSelectedStyle = fieldStyle.
				BorderForeground(lipgloss.Color("170")).
				Foreground(lipgloss.Color("170"))

	timerRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	timerFinishedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203")).
				Bold(true)

	unitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 3)

	logHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	logCompletedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	logCancelledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170"))

	logTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func (m *Model) View() string {
	if m.ShowLogView {
		return m.allLogsView()
	}

	var body string
	switch m.Screen {
	case ScreenCountdown:
		body = m.countdownView()
	case ScreenFinished:
		body = m.finishedView()
	default:
		body = m.pickerView()
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Width(m.width).Render("Countdown"))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, boxStyle.Render(body)))
	sb.WriteString("\n\n")
	if m.Err != nil {
		sb.WriteString(errorStyle.Render("Error: " + m.Err.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m *Model) pickerView() string {
	values := []int{m.Picker.Hours, m.Picker.Minutes, m.Picker.Seconds}
	units := []string{"h", "m", "s"}

	cols := make([]string, 0, 5)
	for i, v := range values {
		style := fieldStyle
		if i == m.Focus {
			style = fieldSelectedStyle
		}
		col := lipgloss.JoinVertical(lipgloss.Center,
			style.Render(fmt.Sprintf("%02d", v)),
			unitStyle.Render(units[i]),
		)
		if i > 0 {
			cols = append(cols, "  ")
		}
		cols = append(cols, col)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m *Model) countdownView() string {
	s := m.Current
	display := lipgloss.JoinHorizontal(lipgloss.Bottom,
		timerRunningStyle.Render(s.HH()), unitStyle.Render("h "),
		timerRunningStyle.Render(s.MM()), unitStyle.Render("m "),
		timerRunningStyle.Render(s.SS()), unitStyle.Render("s"),
	)
	return lipgloss.JoinVertical(lipgloss.Center,
		display,
		"",
		m.progress.ViewAs(m.Elapsed()),
		inactiveStyle.Render("of "+m.requested.String()),
	)
}

func (m *Model) finishedView() string {
	return lipgloss.JoinVertical(lipgloss.Center,
		timerFinishedStyle.Render(m.Current.String()),
		"",
		m.progress.ViewAs(1),
		inactiveStyle.Render("Time's up!"),
	)
}

func (m *Model) allLogsView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(m.width).Render("History"))
	sb.WriteString("\n\n")
	sb.WriteString(logHeaderStyle.Render(fmt.Sprintf(
		"Completed: %d  Cancelled: %d  Time counted: %s",
		m.Totals.Completed, m.Totals.Cancelled, formatDuration(m.Totals.TimeSpent),
	)))
	sb.WriteString("\n\n")

	if len(m.Runs) == 0 {
		sb.WriteString(inactiveStyle.Render("No runs yet."))
		sb.WriteString("\n")
	}
	for _, r := range m.Runs[min(m.LogViewScroll, len(m.Runs)):] {
		sb.WriteString(m.formatRun(r))
		sb.WriteString("\n")
	}

	if m.Err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render("Error: " + m.Err.Error()))
	}
	sb.WriteString("\n")
	sb.WriteString(inactiveStyle.Render("Scroll: Up/Down | Delete: d | Close: Esc/l"))
	return sb.String()
}

func (m *Model) formatRun(r history.Run) string {
	timeStr := logTimeStyle.Render(r.StoppedAt.Local().Format("Jan 02 15:04"))
	outcome := logCompletedStyle.Render(string(r.Outcome))
	if r.Outcome == history.Cancelled {
		outcome = logCancelledStyle.Render(string(r.Outcome))
	}
	return fmt.Sprintf("  %s  %s / %s  %s",
		timeStr, formatDuration(r.Elapsed), formatDuration(r.Requested), outcome)
}
