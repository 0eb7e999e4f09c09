package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/BuzzLyutic/task-sync/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	priorityStyles = map[model.Priority]lipgloss.Style{
		model.PriorityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		model.PriorityNormal:   lipgloss.NewStyle(),
		model.PriorityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		model.PriorityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

func renderTasks(tasks []*model.Task) string {
	if len(tasks) == 0 {
		return mutedStyle.Render("no tasks") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-5s %-9s %-8s %s", "ID", "PRIORITY", "SYNC", "NAME")))
	b.WriteString("\n")
	for _, t := range tasks {
		b.WriteString(renderTask(t))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTask(t *model.Task) string {
	sync := mutedStyle.Render(fmt.Sprintf("%-8s", "local"))
	if t.Identifier != nil {
		sync = okStyle.Render(fmt.Sprintf("%-8s", model.FormatIdentifier(*t.Identifier)[:8]))
	}

	line := fmt.Sprintf("%-5d %s %s %s",
		t.ID,
		priorityStyles[t.Priority].Render(fmt.Sprintf("%-9s", t.Priority)),
		sync,
		t.Name,
	)
	if t.Notes != nil && *t.Notes != "" {
		line += mutedStyle.Render("  " + *t.Notes)
	}
	return line
}
