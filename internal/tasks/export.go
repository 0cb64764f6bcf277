package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/formatter"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// Export run sources.
const (
	SourceCLI = "cli"
	SourceAPI = "api"
)

// RunRecorder persists export run metadata.
//
// Recording is best effort: errors are logged and never fail the export.
type RunRecorder interface {
	RecordRun(run *models.ExportRun) error
}

// ExportResult is the outcome of [Engine.Export].
type ExportResult struct {
	Groups []models.TaskGroup
	Files  []models.FileRecord
	Run    *models.ExportRun
}

// TaskCount returns the number of exported parent tasks.
func (r *ExportResult) TaskCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Tasks)
	}
	return n
}

// Engine runs one export: fetch every list, render it with an exporter, and record the run.
type Engine struct {
	fetcher  *TaskFetcher
	reporter Reporter
	recorder RunRecorder
	logger   *log.Logger
	now      func() time.Time
}

// NewEngine creates an Engine. recorder may be nil.
func NewEngine(fetcher *TaskFetcher, recorder RunRecorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		fetcher:  fetcher,
		reporter: fetcher.reporter,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Export fetches all tasks and renders them with exporter. source identifies the caller
// ([SourceCLI] or [SourceAPI]) in the run history.
func (e *Engine) Export(ctx context.Context, exporter formatter.Exporter, source string) (*ExportResult, error) {
	run := &models.ExportRun{
		ID:        shared.GenerateID(),
		Source:    source,
		Format:    exporter.Format(),
		StartedAt: e.now(),
	}

	e.reporter.StartExport()
	groups, err := e.fetcher.FetchAllTasks(ctx)
	e.reporter.FinishExport()

	if err != nil {
		e.finish(run, nil, nil, err)
		return nil, err
	}

	files, err := exporter.Export(groups)
	if err != nil {
		err = fmt.Errorf("failed to export tasks: %w", err)
		e.finish(run, groups, nil, err)
		return nil, err
	}

	e.finish(run, groups, files, nil)
	e.logger.Info("export finished", "run", run.ID, "lists", run.ListCount, "tasks", run.TaskCount, "files", len(files))

	return &ExportResult{Groups: groups, Files: files, Run: run}, nil
}

// finish completes run and hands it to the recorder.
func (e *Engine) finish(run *models.ExportRun, groups []models.TaskGroup, files []models.FileRecord, err error) {
	stats := e.fetcher.Stats()

	run.CompletedAt = e.now()
	run.ListCount = len(groups)
	run.FailedCount = stats.Failed
	run.SkippedCount = stats.Skipped
	run.Status = models.RunSucceeded
	for _, g := range groups {
		run.TaskCount += len(g.Tasks)
	}
	for _, f := range files {
		run.Files = append(run.Files, f.Filename)
	}
	if err != nil {
		run.Status = models.RunFailed
		run.ErrorMessage = err.Error()
	}

	if e.recorder == nil {
		return
	}
	if recErr := e.recorder.RecordRun(run); recErr != nil {
		e.logger.Warn("failed to record export run", "run", run.ID, "error", recErr)
	}
}
