// Package pipeline runs a complete distribution install: acquisition,
// bootstrap, core installation and seeding, followed by the run summary.
package pipeline

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/ngc-omeka/omeka-dist/pkg/acquire"
	"github.com/ngc-omeka/omeka-dist/pkg/bootstrap"
	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/install"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
	"github.com/ngc-omeka/omeka-dist/pkg/manifest"
	"github.com/ngc-omeka/omeka-dist/pkg/paths"
	"github.com/ngc-omeka/omeka-dist/pkg/report"
	"github.com/ngc-omeka/omeka-dist/pkg/seed"
)

// Result is the outcome of a run that reached the seeding stage
type Result struct {
	RunID string
	// Installed is false when Omeka S was already installed
	Installed   bool
	Acquisition acquire.Summary
	Seed        *seed.Result
}

// HasErrors reports item-level failures in acquisition or seeding
func (r *Result) HasErrors() bool {
	if r.Acquisition.HasErrors() {
		return true
	}
	return r.Seed != nil && !r.Seed.Success()
}

// Rows returns the per-stage summary rows
func (r *Result) Rows() []report.StageRow {
	rows := r.Acquisition.Rows()
	if r.Seed != nil {
		rows = append(rows, r.Seed.Rows()...)
	}
	return rows
}

// Runner runs the pipeline for one distribution root
type Runner struct {
	layout        paths.Paths
	fs            afero.Fs
	rep           report.Reporter
	summary       io.Writer
	noColor       bool
	checkDB       bool
	backend       BackendFactory
	acquireOpts   []acquire.Option
	bootstrapOpts []bootstrap.Option
	logger        zerolog.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithCheckDB pings the database after bootstrap
func WithCheckDB(enabled bool) Option {
	return func(r *Runner) { r.checkDB = enabled }
}

// WithBackend replaces the collaborators used to reach Omeka S
func WithBackend(f BackendFactory) Option {
	return func(r *Runner) { r.backend = f }
}

// WithFs sets the filesystem used for acquisition and seed files
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithAcquireOptions passes options to the acquisition stage
func WithAcquireOptions(opts ...acquire.Option) Option {
	return func(r *Runner) { r.acquireOpts = append(r.acquireOpts, opts...) }
}

// WithBootstrapOptions passes options to the bootstrap stage
func WithBootstrapOptions(opts ...bootstrap.Option) Option {
	return func(r *Runner) { r.bootstrapOpts = append(r.bootstrapOpts, opts...) }
}

// WithSummary writes the summary table to w
func WithSummary(w io.Writer, noColor bool) Option {
	return func(r *Runner) {
		r.summary = w
		r.noColor = noColor
	}
}

// New creates a Runner for layout
func New(layout paths.Paths, rep report.Reporter, opts ...Option) *Runner {
	r := &Runner{
		layout:  layout,
		fs:      afero.NewOsFs(),
		rep:     rep,
		summary: io.Discard,
		backend: OmekaBackend,
		logger:  logging.GetLogger("pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every stage. A returned error is fatal and means the run
// stopped; item-level failures are reported through Result.HasErrors.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := r.logger.With().Str("run", result.RunID).Str("root", r.layout.Root()).Logger()
	done := logging.LogOperationStart(logger, "install")
	defer done()

	m, cfg, err := r.loadInputs()
	if err != nil {
		return nil, err
	}

	if info, err := r.fs.Stat(r.layout.PublicDir()); err == nil && info.IsDir() {
		r.rep.Info("Removing existing public directory...")
		if err := r.fs.RemoveAll(r.layout.PublicDir()); err != nil {
			r.rep.Error("Failed to remove %s.", r.layout.PublicDir())
			return nil, errors.Wrap(err, errors.ErrFileWrite, "failed to remove public directory").Fatal()
		}
	}

	result.Acquisition, err = acquire.New(r.fs, r.acquireOpts...).AcquireAll(ctx, m, r.layout, r.rep)
	if err != nil {
		return nil, err
	}
	logger.Info().Bool("has_errors", result.Acquisition.HasErrors()).Msg("Acquisition finished")

	if err := bootstrap.New(r.bootstrapOpts...).Run(ctx, cfg, r.layout, r.rep); err != nil {
		return nil, err
	}

	if r.checkDB {
		if err := bootstrap.CheckDatabase(ctx, *cfg.DB); err != nil {
			r.rep.Warning("Database check failed: %s", errors.Message(err))
		} else {
			r.rep.Success("Database connection verified.")
		}
	}

	backend, err := r.backend(cfg, r.layout)
	if err != nil {
		r.rep.Error("Failed to connect to Omeka S: %s", errors.Message(err))
		return nil, errors.Wrap(err, errors.ErrBridge, "backend unavailable").Fatal()
	}
	if backend.Close != nil {
		defer func() {
			if err := backend.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to release backend")
			}
		}()
	}

	stage := install.NewStage(backend.Installer, backend.Auth, backend.API, r.rep)
	result.Installed, err = stage.Run(ctx, cfg.Admin, install.Settings{
		Title:    cfg.InstanceTitle(),
		Timezone: cfg.InstanceTimezone(),
	})
	if err != nil {
		return nil, err
	}
	if !result.Installed && !cfg.API.HasKey() {
		if err := stage.Authenticate(ctx, cfg.Admin); err != nil {
			return nil, err
		}
	}

	seeder := seed.New(backend.API, backend.Modules, backend.Importer, r.fs, r.layout, r.rep)
	result.Seed = seeder.Seed(ctx, m, cfg)
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "run cancelled").Fatal()
	}

	logger.Info().Bool("has_errors", result.HasErrors()).Msg("Run finished")
	report.WriteSummary(r.summary, result.Rows(), result.HasErrors(), r.noColor)
	return result, nil
}

func (r *Runner) loadInputs() (*manifest.Manifest, *config.Config, error) {
	manifestPath := r.layout.ManifestPath()
	m, err := manifest.Load(manifestPath)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrManifestNotFound) {
			r.rep.Error("distribution.json not found.")
		} else {
			r.rep.Error("%s", errors.Message(err))
		}
		return nil, nil, err
	}

	cfg, err := config.Load(r.layout.ConfigPath())
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrConfigNotFound) {
			r.rep.Error("config.json not found.")
		} else {
			r.rep.Error("%s", errors.Message(err))
		}
		return nil, nil, err
	}

	r.logger.Debug().
		Str("manifest", manifestPath).
		Interface("counts", m.Counts()).
		Msg("Inputs loaded")
	return m, cfg, nil
}
