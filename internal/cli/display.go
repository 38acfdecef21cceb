package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"todosync/backend"
	"todosync/internal/cache"
	"todosync/internal/operations"
)

var (
	frameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)
	highStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	dueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	overdueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(12)
)

// GetTerminalWidth returns the current terminal width, defaulting to 80 if unable to detect
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		// Default to 80 if we can't detect terminal size
		return 80
	}
	return width
}

// frameWidth clamps the terminal width to a readable frame
func frameWidth(termWidth int) int {
	width := termWidth - 2
	if width < 40 {
		width = 40
	}
	if width > 100 {
		width = 100
	}
	return width
}

// RenderOptions controls how tasks are printed
type RenderOptions struct {
	DateFormat string
	ShowIDs    bool
	Width      int       // Terminal width, 0 detects it
	Now        time.Time // Reference for overdue, zero means time.Now
}

func (o RenderOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// FormatTask renders one task line without a trailing newline
func FormatTask(task backend.Task, opts RenderOptions) string {
	var b strings.Builder
	b.WriteString("  ")
	if opts.ShowIDs {
		b.WriteString(idStyle.Render(operations.ShortID(task.ID)))
		b.WriteString(" ")
	}

	if task.IsDone {
		b.WriteString("[x] ")
		b.WriteString(doneStyle.Render(task.Text))
	} else {
		b.WriteString("[ ] ")
		switch task.Priority {
		case backend.PriorityHigh:
			b.WriteString(highStyle.Render("!! " + task.Text))
		case backend.PriorityLow:
			b.WriteString(dimStyle.Render(task.Text))
		default:
			b.WriteString(task.Text)
		}
	}

	if task.Deadline != nil {
		due := operations.FormatDeadline(task.Deadline, opts.DateFormat)
		b.WriteString("  ")
		if task.IsOverdue(opts.now()) {
			b.WriteString(overdueStyle.Render("overdue " + due))
		} else {
			b.WriteString(dueStyle.Render("due " + due))
		}
	}
	return b.String()
}

// RenderTasks prints tasks inside a titled frame
func RenderTasks(w io.Writer, title string, tasks []backend.Task, opts RenderOptions) {
	termWidth := opts.Width
	if termWidth <= 0 {
		termWidth = GetTerminalWidth()
	}
	width := frameWidth(termWidth)

	header := fmt.Sprintf("─ %s (%d) ", title, len(tasks))
	padding := width - lipgloss.Width(header)
	if padding < 0 {
		padding = 0
	}
	fmt.Fprintln(w, frameStyle.Render("┌"+header+strings.Repeat("─", padding)+"┐"))

	if len(tasks) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  No tasks"))
	}
	for _, task := range tasks {
		fmt.Fprintln(w, FormatTask(task, opts))
	}

	fmt.Fprintln(w, frameStyle.Render("└"+strings.Repeat("─", width)+"┘"))
}

// StatusInfo is what the status command reports
type StatusInfo struct {
	Remote      string           `json:"remote" yaml:"remote"`
	URL         string           `json:"url" yaml:"url"`
	Offline     bool             `json:"offline" yaml:"offline"`
	Backend     string           `json:"backend" yaml:"backend"`
	Destination string           `json:"destination" yaml:"destination"`
	Items       int              `json:"items" yaml:"items"`
	Revision    int64            `json:"revision" yaml:"revision"`
	State       string           `json:"state" yaml:"state"`
	Dirty       bool             `json:"dirty" yaml:"dirty"`
	Pending     int              `json:"pending" yaml:"pending"`
	LastSync    *cache.SyncStamp `json:"last_sync,omitempty" yaml:"last_sync,omitempty"`
	Stale       bool             `json:"stale" yaml:"stale"`
}

// RenderStatus prints the sync status of the local cache
func RenderStatus(w io.Writer, info StatusInfo, now time.Time) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
	}

	remote := fmt.Sprintf("%s (%s)", info.Remote, info.URL)
	if info.Offline {
		remote += " " + warnStyle.Render("offline")
	}
	row("Remote", remote)
	row("Cache", fmt.Sprintf("%s:%s", info.Backend, info.Destination))
	row("Items", fmt.Sprintf("%d", info.Items))

	if info.Revision == backend.UnknownRevision {
		row("Revision", dimStyle.Render("unknown"))
	} else {
		row("Revision", fmt.Sprintf("%d", info.Revision))
	}

	if info.Dirty {
		row("State", warnStyle.Render(info.State))
	} else {
		row("State", okStyle.Render(info.State))
	}
	if info.Pending > 0 {
		row("Pending", warnStyle.Render(fmt.Sprintf("%d change(s) not acknowledged by the remote", info.Pending)))
	}

	if info.LastSync == nil || info.LastSync.Timestamp == 0 {
		row("Last sync", dimStyle.Render("never"))
		return
	}
	at := info.LastSync.Time()
	last := fmt.Sprintf("%s (%s ago)", at.Format("2006-01-02 15:04:05"), formatAge(now.Sub(at)))
	if info.Stale {
		last += " " + warnStyle.Render("stale")
	}
	row("Last sync", last)
}

// formatAge renders a duration the way people say it
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
