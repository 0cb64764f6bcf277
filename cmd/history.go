package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/tasks"
	"github.com/urfave/cli/v3"
)

type runOutput struct {
	ID           string   `json:"id"`
	Sequence     int      `json:"sequence"`
	Source       string   `json:"source"`
	Format       string   `json:"format"`
	Status       string   `json:"status"`
	Lists        int      `json:"lists"`
	Tasks        int      `json:"tasks"`
	Failed       int      `json:"failed"`
	Skipped      int      `json:"skipped"`
	Files        []string `json:"files"`
	Error        string   `json:"error,omitempty"`
	StartedAt    string   `json:"started_at"`
	DurationSecs float64  `json:"duration_seconds"`
}

// History prints recent export runs. History must be enabled in the configuration.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit < 0 {
		return fmt.Errorf("%w: --limit must not be negative", shared.ErrInvalidFlag)
	}

	status := cmd.String("status")
	if status != "" && status != models.RunSucceeded && status != models.RunFailed {
		return fmt.Errorf("%w: --status must be %s or %s", shared.ErrInvalidFlag, models.RunSucceeded, models.RunFailed)
	}

	if !cfg.History.Enabled {
		return r.writePlain("%s\n", r.palette.Warn("History is disabled. Set history.enabled = true in the config file."))
	}

	repo, closeHistory, err := r.openHistory(cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	runs, err := repo.List(map[string]any{"status": status}, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]runOutput, 0, len(runs))
		for _, run := range runs {
			out = append(out, toRunOutput(run))
		}
		return r.writeJSON(out, true)
	}

	r.writePlainHeader(fmt.Sprintf("Export history (%d)", len(runs)))
	for _, run := range runs {
		status := r.palette.OK(run.Status)
		if run.Status == models.RunFailed {
			status = r.palette.Err(run.Status)
		}

		r.writePlain("#%d %s %s %s via %s\n", run.Sequence, run.StartedAt.Local().Format(time.DateTime), status, run.Format, run.Source)
		r.writePlain("   %d lists, %d tasks, %d skipped, %d failed in %s\n",
			run.ListCount, run.TaskCount, run.SkippedCount, run.FailedCount, tasks.FormatDuration(run.Duration()))
		if len(run.Files) > 0 {
			r.writePlain("   %s\n", r.palette.Help(strings.Join(run.Files, ", ")))
		}
		if run.ErrorMessage != "" {
			r.writePlain("   %s\n", r.palette.Err(run.ErrorMessage))
		}
	}

	return nil
}

func toRunOutput(run *models.ExportRun) runOutput {
	files := run.Files
	if files == nil {
		files = []string{}
	}
	return runOutput{
		ID:           run.ID,
		Sequence:     run.Sequence,
		Source:       run.Source,
		Format:       run.Format,
		Status:       run.Status,
		Lists:        run.ListCount,
		Tasks:        run.TaskCount,
		Failed:       run.FailedCount,
		Skipped:      run.SkippedCount,
		Files:        files,
		Error:        run.ErrorMessage,
		StartedAt:    run.StartedAt.Format(time.RFC3339),
		DurationSecs: run.Duration().Seconds(),
	}
}
