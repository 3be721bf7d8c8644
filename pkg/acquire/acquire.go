// Package acquire downloads and extracts the Omeka S core, modules and
// themes named in the manifest.
package acquire

import (
	"context"
	"net/http"
	"net/url"
	"path"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
	"github.com/ngc-omeka/omeka-dist/pkg/manifest"
	"github.com/ngc-omeka/omeka-dist/pkg/paths"
	"github.com/ngc-omeka/omeka-dist/pkg/report"
)

// Kind selects how an archive is laid out on extraction
type Kind string

const (
	KindCore   Kind = "core"
	KindModule Kind = "module"
	KindTheme  Kind = "theme"
)

// Acquirer downloads archives to temporary files and extracts them
type Acquirer struct {
	fs         afero.Fs
	httpClient *http.Client
	tempDir    string
	logger     zerolog.Logger
}

// Option configures an Acquirer
type Option func(*Acquirer)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(c *http.Client) Option {
	return func(a *Acquirer) { a.httpClient = c }
}

// WithTempDir sets where downloads are staged. Empty means the system
// temporary directory.
func WithTempDir(dir string) Option {
	return func(a *Acquirer) { a.tempDir = dir }
}

// New creates an Acquirer writing to fs
func New(fs afero.Fs, opts ...Option) *Acquirer {
	a := &Acquirer{
		fs:         fs,
		httpClient: http.DefaultClient,
		logger:     logging.GetLogger("acquire"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire downloads ref.URL and extracts it into destDir. The downloaded
// file is removed on every exit path. There is a single attempt.
func (a *Acquirer) Acquire(ctx context.Context, ref manifest.PackageRef, kind Kind, destDir string) error {
	if ref.URL == "" {
		return errors.Newf(errors.ErrInvalidInput, "%s package has no url", kind)
	}

	archive, err := a.download(ctx, ref.URL)
	if err != nil {
		return errors.Wrap(err, errors.ErrDownloadFailed, "Download failed")
	}
	defer a.discard(archive)

	if err := a.extract(ctx, archive, archiveName(ref.URL), kind, destDir); err != nil {
		return errors.Wrap(err, errors.ErrExtractFailed, "Extraction failed")
	}
	return nil
}

// archiveName returns the file name used to help format identification
func archiveName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return ""
}

// Tally counts processed items
type Tally struct {
	OK     int
	Errors int
}

// Summary reports the item-level outcome of AcquireAll
type Summary struct {
	Modules Tally
	Themes  Tally
}

// HasErrors reports whether any module or theme failed
func (s Summary) HasErrors() bool {
	return s.Modules.Errors > 0 || s.Themes.Errors > 0
}

// Rows renders the summary as report rows
func (s Summary) Rows() []report.StageRow {
	return []report.StageRow{
		{Stage: "modules (download)", OK: s.Modules.OK, Errors: s.Modules.Errors},
		{Stage: "themes (download)", OK: s.Themes.OK, Errors: s.Themes.Errors},
	}
}

// AcquireAll fetches the core into the public directory, then every
// module and theme. A core failure is fatal; module and theme failures are
// reported and counted.
func (a *Acquirer) AcquireAll(ctx context.Context, m *manifest.Manifest, layout paths.Paths, rep report.Reporter) (Summary, error) {
	var summary Summary

	if m.Core != nil {
		version := m.Core.DisplayVersion()
		if m.Core.URL == "" {
			rep.Error("Core URL not found in distribution.json.")
			return summary, errors.New(errors.ErrManifestInvalid, "core url not found").Fatal()
		}

		rep.Info("Downloading Omeka S %s...", version)
		if err := a.Acquire(ctx, *m.Core, KindCore, layout.PublicDir()); err != nil {
			rep.Error("%s", errors.Message(err))
			return summary, errors.Wrap(err, errors.GetErrorCode(err), "core acquisition failed").Fatal()
		}
		rep.Success("Omeka S %s has been downloaded and extracted.", version)
	}

	summary.Modules = a.acquirePackages(ctx, m.Modules, KindModule, layout.ModulesDir(), rep)
	summary.Themes = a.acquirePackages(ctx, m.Themes, KindTheme, layout.ThemesDir(), rep)
	return summary, nil
}

func (a *Acquirer) acquirePackages(ctx context.Context, refs []manifest.PackageRef, kind Kind, destDir string, rep report.Reporter) Tally {
	var tally Tally
	label := map[Kind]string{KindModule: "Module", KindTheme: "Theme"}[kind]

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		if ref.Name == "" || ref.URL == "" {
			rep.Error("%s name or URL missing in distribution.json.", label)
			tally.Errors++
			continue
		}

		version := ref.DisplayVersion()
		rep.Info("Downloading %s: %s(%s)...", kind, ref.Name, version)
		if err := a.Acquire(ctx, ref, kind, destDir); err != nil {
			rep.Error("%s", errors.Message(err))
			tally.Errors++
			continue
		}
		rep.Success("%s %s(%s) downloaded successfully.", label, ref.Name, version)
		tally.OK++
	}
	return tally
}
