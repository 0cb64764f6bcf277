package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/services"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/tasks"
	"github.com/desertthunder/todox/internal/ui"
	"github.com/urfave/cli/v3"
)

// ClientFactory builds a Graph client for token using the API section of cfg.
type ClientFactory func(token string, cfg *shared.Config) tasks.APIClient

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger    *log.Logger
	output    io.Writer
	palette   *ui.Palette
	transport http.RoundTripper
	newClient ClientFactory
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger    *log.Logger
	Output    io.Writer
	Palette   *ui.Palette
	Transport http.RoundTripper // base transport of the default Graph client
	NewClient ClientFactory
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Palette == nil {
		opts.Palette = ui.Styles()
	}

	r := &Runner{
		logger:    opts.Logger,
		output:    opts.Output,
		palette:   opts.Palette,
		transport: opts.Transport,
		newClient: opts.NewClient,
	}
	if r.newClient == nil {
		r.newClient = r.graphClient
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		exportCommand, listsCommand, serveCommand, historyCommand, configCommand, versionCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig assembles the configuration for cmd. Only flags the user actually set
// become overrides, so unset flags never mask the file or the environment.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	overrides := map[string]any{}

	for flag, key := range map[string]string{
		"token":  "token",
		"format": "output_format",
		"output": "output_path",
	} {
		if hasFlag(cmd, flag) && cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}
	for flag, key := range map[string]string{
		"single-file":       "single_file",
		"include-completed": "include_completed",
	} {
		if hasFlag(cmd, flag) && cmd.IsSet(flag) {
			overrides[key] = cmd.Bool(flag)
		}
	}

	server := map[string]any{}
	if hasFlag(cmd, "host") && cmd.IsSet("host") {
		server["host"] = cmd.String("host")
	}
	if hasFlag(cmd, "port") && cmd.IsSet("port") {
		server["port"] = cmd.Int("port")
	}
	if len(server) > 0 {
		overrides["server"] = server
	}

	cfg, err := shared.LoadConfig(cmd.String("config"), overrides)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := shared.ParseLogLevel(cfg.Log.Level)
	if hasFlag(cmd, "verbose") && cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	return cfg, nil
}

// requireToken returns the configured token or a hint on how to supply one.
func requireToken(cfg *shared.Config) (string, error) {
	if cfg.Token == "" {
		return "", fmt.Errorf("%w: pass --token or set %s", shared.ErrMissingToken, shared.EnvToken)
	}
	return cfg.Token, nil
}

func (r *Runner) graphClient(token string, cfg *shared.Config) tasks.APIClient {
	return services.NewGraphClient(token, services.GraphOpts{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           time.Duration(cfg.API.Timeout) * time.Second,
		MaxRetries:        cfg.API.MaxRetries,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Logger:            shared.WithLogger(r.logger, "component", "graph"),
		Transport:         r.transport,
	})
}

func fetchOpts(cfg *shared.Config) tasks.FetchOpts {
	return tasks.FetchOpts{
		PageSize:         cfg.API.PaginationLimit,
		IncludeCompleted: cfg.CSV.IncludeCompleted,
	}
}

// openHistory opens the run history database when it is enabled. The returned close
// function is always safe to call.
func (r *Runner) openHistory(cfg *shared.Config) (*repositories.ExportRunRepository, func(), error) {
	if !cfg.History.Enabled {
		return nil, func() {}, nil
	}

	db, err := shared.OpenHistory(cfg.History.Path)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open history: %w", err)
	}
	r.logger.Debug("history enabled", "path", cfg.History.Path)

	return repositories.NewExportRunRepository(db), func() { db.Close() }, nil
}

// recorder adapts an optional repository to [tasks.RunRecorder] without a typed nil.
func recorder(repo *repositories.ExportRunRepository) tasks.RunRecorder {
	if repo == nil {
		return nil
	}
	return repo
}

func hasFlag(cmd *cli.Command, name string) bool {
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
