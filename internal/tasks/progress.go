package tasks

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/ui"
)

// Reporter receives progress events from a fetch.
//
// HTTP requests use [NopReporter]; the CLI uses [ProgressReporter].
type Reporter interface {
	StartExport()
	FinishExport()
	StartFetching(listCount int)
	FetchingList(name string, current, total int)
	FetchedTask(task models.Task)
	SkippedCompletedTask(task models.Task)
	FailedTask(taskID string, err error)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) StartExport()                     {}
func (NopReporter) FinishExport()                    {}
func (NopReporter) StartFetching(int)                {}
func (NopReporter) FetchingList(string, int, int)    {}
func (NopReporter) FetchedTask(models.Task)          {}
func (NopReporter) SkippedCompletedTask(models.Task) {}
func (NopReporter) FailedTask(string, error)         {}

type listStats struct {
	exported  int
	completed int
	failed    int
	position  string
}

// ProgressReporter counts fetched, skipped and failed tasks and prints a colored summary.
//
// Every fetched task is first counted as exported; SkippedCompletedTask moves it to the
// completed column.
type ProgressReporter struct {
	out     io.Writer
	palette *ui.Palette
	verbose bool
	now     func() time.Time

	started     time.Time
	finished    time.Time
	total       int
	exported    int
	skipped     int
	failed      int
	lists       map[string]*listStats
	order       []string
	currentList string
	listTasks   int
}

// NewProgressReporter creates a reporter writing to out. Verbose mode prints one line per task.
func NewProgressReporter(out io.Writer, palette *ui.Palette, verbose bool) *ProgressReporter {
	if palette == nil {
		palette = ui.Styles()
	}
	return &ProgressReporter{
		out:     out,
		palette: palette,
		verbose: verbose,
		now:     time.Now,
		lists:   map[string]*listStats{},
	}
}

func (r *ProgressReporter) Total() int            { return r.total }
func (r *ProgressReporter) Exported() int         { return r.exported }
func (r *ProgressReporter) CompletedSkipped() int { return r.skipped }
func (r *ProgressReporter) Failed() int           { return r.failed }

func (r *ProgressReporter) StartExport() {
	r.started = r.now()
}

func (r *ProgressReporter) FinishExport() {
	r.finished = r.now()
}

func (r *ProgressReporter) StartFetching(listCount int) {
	if listCount > 0 {
		fmt.Fprintln(r.out, r.palette.OK("Fetching tasks..."))
	}
}

func (r *ProgressReporter) FetchingList(name string, current, total int) {
	r.currentList = name
	r.listTasks = 0

	stats := r.list(name)
	stats.position = fmt.Sprintf("%d/%d", current, total)

	if r.verbose {
		fmt.Fprintf(r.out, "  → %s (%d/%d)\n", name, current, total)
	}
}

func (r *ProgressReporter) FetchedTask(task models.Task) {
	r.listTasks++
	r.total++
	r.exported++

	name := task.ListName
	if name == "" {
		name = r.currentList
	}
	r.list(name).exported++

	if r.verbose {
		fmt.Fprintf(r.out, "    Task: '%s' (#%d)\n", task.Title, r.listTasks)
	}
}

func (r *ProgressReporter) SkippedCompletedTask(task models.Task) {
	r.exported--
	r.skipped++

	name := task.ListName
	if name == "" {
		name = r.currentList
	}
	if stats, ok := r.lists[name]; ok {
		stats.exported--
		stats.completed++
	}

	if r.verbose {
		fmt.Fprintln(r.out, r.palette.Warn(fmt.Sprintf("    Skipped (completed): '%s'", task.Title)))
	}
}

func (r *ProgressReporter) FailedTask(taskID string, err error) {
	r.failed++
	if stats, ok := r.lists[r.currentList]; ok {
		stats.failed++
	}

	if r.verbose {
		fmt.Fprintln(r.out, r.palette.Err(fmt.Sprintf("    ✗ Failed: %s", taskID)))
		fmt.Fprintln(r.out, r.palette.Err(fmt.Sprintf("      Error: %v", err)))
	}
}

// PrintSummary writes totals, the per-list breakdown and the duration.
// It prints nothing if StartExport was never called.
func (r *ProgressReporter) PrintSummary() {
	if r.started.IsZero() {
		return
	}

	end := r.finished
	if end.IsZero() {
		end = r.now()
	}

	rule := strings.Repeat("━", 50)
	fmt.Fprintf(r.out, "\n%s\n%s\n%s\n\n", rule, r.palette.Title("Export Summary"), rule)

	fmt.Fprintf(r.out, "Total tasks in MS Todo:     %d\n", r.total)
	fmt.Fprintln(r.out, r.palette.OK(fmt.Sprintf("  ✓ Exported:               %d", r.exported)))
	if r.skipped > 0 {
		fmt.Fprintln(r.out, r.palette.Warn(fmt.Sprintf("  ⊘ Completed (skipped):    %d", r.skipped)))
	}
	if r.failed > 0 {
		fmt.Fprintln(r.out, r.palette.Err(fmt.Sprintf("  ✗ Failed:                 %d", r.failed)))
	}

	if len(r.order) > 0 {
		fmt.Fprintln(r.out, "\nBreakdown by list:")
		for _, name := range r.order {
			stats := r.lists[name]
			summary := fmt.Sprintf("%d exported", stats.exported)
			if stats.completed > 0 {
				summary += fmt.Sprintf(", %d completed", stats.completed)
			}
			if stats.failed > 0 {
				summary += fmt.Sprintf(", %d failed", stats.failed)
			}
			fmt.Fprintf(r.out, "  %s: %s\n", name, summary)
		}
	}

	fmt.Fprintf(r.out, "\nDuration: %s\n", FormatDuration(end.Sub(r.started)))

	if r.failed > 0 {
		fmt.Fprintln(r.out, r.palette.Warn(fmt.Sprintf("\n⚠️  Note: %d tasks failed to export", r.failed)))
		if !r.verbose {
			fmt.Fprintln(r.out, r.palette.Help("Run with --verbose to see error details"))
		}
	}
}

func (r *ProgressReporter) list(name string) *listStats {
	stats, ok := r.lists[name]
	if !ok {
		stats = &listStats{}
		r.lists[name] = stats
		r.order = append(r.order, name)
	}
	return stats
}

// FormatDuration renders d as "Ns" under a minute, otherwise "Nm Ns".
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 60 {
		return fmt.Sprintf("%ds", int(math.Round(seconds)))
	}

	minutes := int(seconds / 60)
	remaining := int(math.Round(math.Mod(seconds, 60)))
	return fmt.Sprintf("%dm %ds", minutes, remaining)
}
