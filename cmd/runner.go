package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/tracklift/tracklift/internal/limiter"
	"github.com/tracklift/tracklift/internal/services"
	"github.com/tracklift/tracklift/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for
// each command action.
type Runner struct {
	config   *shared.Config
	logger   *log.Logger
	output   io.Writer
	limiters *limiter.Registry
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:   opts.Config,
		logger:   opts.Logger,
		output:   opts.Output,
		limiters: limiter.NewRegistry(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		initCommand, playlistsCommand, transferCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig swaps in the config file named by a command's --config flag.
func (r *Runner) reloadConfig(path string) {
	if path == "" {
		return
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current settings", "path", path, "error", err)
		return
	}
	r.config = config
}

func (r *Runner) acquireTimeout() time.Duration {
	if s := r.config.Transfer.AcquireTimeoutS; s > 0 {
		return time.Duration(s) * time.Second
	}
	return 30 * time.Second
}

// providerFor builds an authenticated provider client sharing the
// per-credential rate limiter.
func (r *Runner) providerFor(ctx context.Context, name string, rps float64) (services.Provider, error) {
	if rps <= 0 {
		rps = 5.0
	}
	burst := r.config.Transfer.Burst
	if burst <= 0 {
		burst = 1
	}

	switch name {
	case "spotify":
		token := r.config.Credentials.Spotify.AccessToken
		lim := r.limiters.For("spotify", token, rps, burst, r.acquireTimeout())
		return services.NewSpotifyProvider(ctx, token, lim)
	case "tidal":
		creds := r.config.Credentials.Tidal
		lim := r.limiters.For("tidal", creds.AccessToken, rps, burst, r.acquireTimeout())
		return services.NewTidalProvider(creds.AccessToken, creds.CountryCode, lim)
	case "qobuz":
		creds := r.config.Credentials.Qobuz
		lim := r.limiters.For("qobuz", creds.UserAuthToken, rps, burst, r.acquireTimeout())
		return services.NewQobuzProvider(creds.AppID, creds.UserAuthToken, lim)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (expected spotify, tidal, or qobuz)", shared.ErrInvalidInput, name)
	}
}

// openDatabase opens the match cache database and brings the schema up to
// date.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
