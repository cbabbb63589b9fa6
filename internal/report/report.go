// Package report renders scheduler state and journal contents for the
// terminal.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskflow/internal/events"
	"github.com/aristath/taskflow/internal/journal"
	"github.com/aristath/taskflow/internal/scheduler"
)

// DefaultBarWidth is the progress bar width used by Stats.
const DefaultBarWidth = 40

// Stats renders per-status counts and a progress bar inside a box.
func Stats(st scheduler.Stats) string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Progress"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%-11s%d\n", "Total:", st.Total))
	for _, status := range scheduler.AllStatuses {
		name := status.String()
		label := strings.ToUpper(name[:1]) + name[1:] + ":"
		b.WriteString(fmt.Sprintf("%-11s%s\n", label, statusStyle(name).Render(fmt.Sprintf("%d", st.Count(status)))))
	}
	b.WriteString(fmt.Sprintf("Slots:     %d/%d\n", st.InFlight, st.MaxConcurrent))

	if st.Total > 0 {
		b.WriteString("\n")
		b.WriteString(ProgressBar(st, DefaultBarWidth))
	}

	return StyleBox.Render(strings.TrimRight(b.String(), "\n"))
}

// ProgressBar renders a one-line bar: '=' completed, '!' failed, 'x'
// cancelled, '-' running, '.' everything else.
func ProgressBar(st scheduler.Stats, width int) string {
	if st.Total == 0 || width <= 0 {
		return ""
	}

	completedWidth := st.Completed * width / st.Total
	failedWidth := st.Failed * width / st.Total
	cancelledWidth := st.Cancelled * width / st.Total
	runningWidth := st.Running * width / st.Total
	restWidth := width - completedWidth - failedWidth - cancelledWidth - runningWidth

	bar := StyleStatusComplete.Render(strings.Repeat("=", completedWidth))
	bar += StyleStatusFailed.Render(strings.Repeat("!", failedWidth))
	bar += StyleStatusCancelled.Render(strings.Repeat("x", cancelledWidth))
	bar += StyleStatusRunning.Render(strings.Repeat("-", runningWidth))
	bar += StyleStatusPending.Render(strings.Repeat(".", max(0, restWidth)))

	done := st.Completed + st.Failed + st.Cancelled
	return fmt.Sprintf("[%s] %d/%d", bar, done, st.Total)
}

// Event renders one lifecycle event as a log line.
func Event(ev scheduler.Event) string {
	status := ev.Task.Status.String()
	line := fmt.Sprintf("%s %-15s %s %s",
		StyleMuted.Render(ev.Timestamp.Format("15:04:05.000")),
		ev.Type,
		statusStyle(status).Render(ev.Task.ID),
		StyleMuted.Render("("+ev.Task.Priority.String()+")"),
	)

	// Cancelled tasks never ran, so only executed work shows a duration.
	if events.IsTerminal(ev.Type) && ev.Task.Duration() > 0 {
		line += " " + StyleMuted.Render(ev.Task.Duration().Round(time.Millisecond).String())
	}
	if ev.Type == events.EventTypeTaskFailed && ev.Task.Err != nil {
		line += " " + StyleStatusFailed.Render(ev.Task.Err.Error())
	}
	return line
}

// Tasks renders a table of task snapshots.
func Tasks(tasks []scheduler.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		detail := ""
		switch {
		case t.Err != nil:
			detail = t.Err.Error()
		case t.Status == scheduler.StatusPending && len(t.Dependencies) > 0:
			detail = "waits on " + strings.Join(t.Dependencies, ", ")
		}

		duration := ""
		if d := t.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}

		rows = append(rows, []string{
			t.ID,
			t.Priority.String(),
			statusStyle(t.Status.String()).Render(t.Status.String()),
			duration,
			detail,
		})
	}
	return table([]string{"TASK", "PRIORITY", "STATUS", "DURATION", "DETAIL"}, rows)
}

// Diagnosis renders stranded tasks and dependency cycles. Healthy diagnoses
// render as an empty string.
func Diagnosis(d scheduler.Diagnosis) string {
	if d.Healthy() {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleStatusFailed.Render("Stranded tasks"))
	b.WriteString("\n")
	for _, st := range d.Stranded {
		causes := make([]string, 0, len(st.Blockers))
		for _, bl := range st.Blockers {
			causes = append(causes, fmt.Sprintf("%s (%s)", bl.ID, bl.Cause))
		}
		b.WriteString(fmt.Sprintf("  %s blocked by %s\n", st.Task.ID, strings.Join(causes, ", ")))
	}
	if d.Cycle != nil {
		b.WriteString(fmt.Sprintf("  %s\n", d.Cycle))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Runs renders a table of journal runs.
func Runs(runs []journal.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		outcome := StyleStatusRunning.Render("unfinished")
		if r.Stats != nil {
			outcome = fmt.Sprintf("%s/%s/%s",
				StyleStatusComplete.Render(fmt.Sprintf("%d ok", r.Stats.Completed)),
				StyleStatusFailed.Render(fmt.Sprintf("%d failed", r.Stats.Failed)),
				StyleStatusPending.Render(fmt.Sprintf("%d other", r.Stats.Total-r.Stats.Completed-r.Stats.Failed)),
			)
		}

		took := ""
		if r.Finished() {
			took = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}

		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Format(time.DateTime),
			took,
			outcome,
			r.Plan,
		})
	}
	return table([]string{"RUN", "STARTED", "TOOK", "OUTCOME", "PLAN"}, rows)
}

// History renders journal entries in recorded order.
func History(entries []journal.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := e.Error
		if detail == "" {
			detail = e.Result
		}
		rows = append(rows, []string{
			e.At.Format("15:04:05.000"),
			e.TaskID,
			e.Event,
			statusStyle(e.Status).Render(e.Status),
			detail,
		})
	}
	return table([]string{"AT", "TASK", "EVENT", "STATUS", "DETAIL"}, rows)
}

// table aligns columns by rendered width so styled cells line up.
func table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		for i, cell := range cells {
			if style != nil {
				cell = style.Render(cell)
			}
			b.WriteString(cell)
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers, &StyleHeader)
	for _, row := range rows {
		writeRow(row, nil)
	}
	return strings.TrimRight(b.String(), "\n")
}
