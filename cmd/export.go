package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/todox/internal/formatter"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/tasks"
	"github.com/urfave/cli/v3"
)

type listOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Export fetches every exportable list and writes the rendered files to the output directory.
//
// In single-file mode every file is bundled into one ZIP archive. Otherwise each file is
// written next to an export manifest.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	token, err := requireToken(cfg)
	if err != nil {
		return err
	}

	exporter, err := formatter.NewExporter(cfg.Output.Format)
	if err != nil {
		return err
	}

	repo, closeHistory, err := r.openHistory(cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	verbose := cmd.Bool("verbose")
	reporter := tasks.NewProgressReporter(r.output, r.palette, verbose)
	fetcher := tasks.NewTaskFetcher(r.newClient(token, cfg), reporter, fetchOpts(cfg), r.logger)
	engine := tasks.NewEngine(fetcher, recorder(repo), r.logger)

	r.logger.Info("starting export", "format", exporter.Format(), "output", cfg.Output.Path)

	result, err := engine.Export(ctx, exporter, tasks.SourceCLI)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	reporter.PrintSummary()

	if cfg.Output.SingleFile {
		path, err := formatter.WriteArchive(cfg.Output.Path, result.Files)
		if err != nil {
			return err
		}
		r.writePlain("\n%s\n", r.palette.OK(fmt.Sprintf("✓ Exported %d files to %s", len(result.Files), path)))
		return nil
	}

	paths, err := formatter.WriteFiles(cfg.Output.Path, result.Files)
	if err != nil {
		return err
	}

	manifest := formatter.NewManifest(exporter.Format(), result.Groups, result.Files, time.Now())
	if _, err := formatter.WriteManifest(cfg.Output.Path, manifest); err != nil {
		return err
	}

	r.writePlain("\n%s\n", r.palette.OK(fmt.Sprintf("✓ Exported %d files to %s", len(paths), cfg.Output.Path)))
	if verbose {
		for _, path := range paths {
			r.writePlain("  %s\n", path)
		}
	}

	return nil
}

// Lists prints the lists an export would include.
func (r *Runner) Lists(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	token, err := requireToken(cfg)
	if err != nil {
		return err
	}

	fetcher := tasks.NewTaskFetcher(r.newClient(token, cfg), nil, fetchOpts(cfg), r.logger)
	lists, err := fetcher.FetchLists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]listOutput, 0, len(lists))
		for _, l := range lists {
			out = append(out, listOutput{ID: l.ID, Name: l.DisplayName})
		}
		return r.writeJSON(map[string]any{"lists": out}, true)
	}

	r.writePlainHeader(fmt.Sprintf("Lists (%d)", len(lists)))
	for i, l := range lists {
		r.writePlain("%d. %s\n", i+1, l.DisplayName)
		r.writePlain("   %s\n", r.palette.Help(l.ID))
	}

	return nil
}

// ConfigInit writes the default configuration file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		return fmt.Errorf("%w: --path", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("%s\n", r.palette.OK("✓ Wrote "+path))
}

// Version prints the version.
func (r *Runner) Version(ctx context.Context, cmd *cli.Command) error {
	return r.writePlain("todox %s\n", shared.Version)
}
