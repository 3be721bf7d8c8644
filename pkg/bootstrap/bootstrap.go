// Package bootstrap prepares an extracted Omeka S tree for installation:
// database credentials, the local configuration file and ownership of the
// directories the web server writes to.
package bootstrap

import (
	"context"
	"os"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
	"github.com/ngc-omeka/omeka-dist/pkg/paths"
	"github.com/ngc-omeka/omeka-dist/pkg/report"
)

// Bootstrapper runs the bootstrap stage
type Bootstrapper struct {
	writer      *Writer
	permissions PermissionSetter
	goos        string
	logger      zerolog.Logger
}

// Option configures a Bootstrapper
type Option func(*Bootstrapper)

// WithPermissionSetter replaces the chmod/chown implementation
func WithPermissionSetter(p PermissionSetter) Option {
	return func(b *Bootstrapper) { b.permissions = p }
}

// WithGOOS overrides the platform check for permission normalization
func WithGOOS(goos string) Option {
	return func(b *Bootstrapper) { b.goos = goos }
}

// New creates a Bootstrapper
func New(opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		writer:      NewWriter(),
		permissions: osPermissions{},
		goos:        runtime.GOOS,
		logger:      logging.GetLogger("bootstrap"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run writes database.ini, copies local.config.php when present and, on
// Linux, normalizes permissions. Every returned error is fatal; permission
// problems are only reported.
func (b *Bootstrapper) Run(ctx context.Context, cfg *config.Config, layout paths.Paths, rep report.Reporter) error {
	if cfg.DB == nil || cfg.DB.IsZero() {
		rep.Error("DB config not found in config.json.")
		return errors.New(errors.ErrConfigInvalid, "db config not found").Fatal()
	}

	content, err := RenderDatabaseIni(*cfg.DB)
	if err != nil {
		rep.Error("Failed to write database.ini: %s", errors.Message(err))
		return err
	}

	ops := []FileOp{{Target: layout.DatabaseIniPath(), Content: content, Mode: 0o644}}

	copyLocal := false
	if _, err := os.Stat(layout.LocalConfigSource()); err == nil {
		copyLocal = true
		ops = append(ops, FileOp{Target: layout.LocalConfigTarget(), Source: layout.LocalConfigSource()})
	}

	if err := b.writer.Apply(ctx, ops); err != nil {
		if copyLocal {
			rep.Error("Failed to write database.ini or copy local.config.php.")
		} else {
			rep.Error("Failed to write database.ini.")
		}
		return errors.Wrap(err, errors.ErrFileWrite, "bootstrap failed").Fatal()
	}
	rep.Success("database.ini populated successfully.")
	if copyLocal {
		rep.Success("local.config.php copied successfully.")
	}

	if b.goos == "linux" {
		b.normalizePermissions(layout.WritableDirs(), cfg.ServiceUser(), rep)
	} else {
		b.logger.Debug().Str("goos", b.goos).Msg("Skipping permission normalization")
	}
	return nil
}

func (b *Bootstrapper) normalizePermissions(dirs []string, owner string, rep report.Reporter) {
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			rep.Note("Directory %s does not exist. Skipping permission setting.", dir)
			continue
		}

		rep.Info("Setting permissions for directory: %s...", dir)
		ok := true
		if err := b.permissions.Chmod(dir, WritableMode); err != nil {
			b.logger.Warn().Err(err).Str("dir", dir).Msg("chmod failed")
			rep.Warning("Failed to set permissions. Please set it manually.")
			ok = false
		}
		if err := b.permissions.Chown(dir, owner); err != nil {
			b.logger.Warn().Err(err).Str("dir", dir).Str("owner", owner).Msg("chown failed")
			rep.Warning("Failed to change owner to %s. Please set it manually.", owner)
			ok = false
		}
		if ok {
			rep.Success("Permissions set for directory: %s.", dir)
		}
	}
}
