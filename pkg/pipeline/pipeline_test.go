package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngc-omeka/omeka-dist/pkg/bootstrap"
	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
	"github.com/ngc-omeka/omeka-dist/pkg/paths"
	"github.com/ngc-omeka/omeka-dist/pkg/report"
	"github.com/ngc-omeka/omeka-dist/pkg/seed"
)

type fakeOmeka struct {
	installed bool
	vars      map[string]map[string]interface{}
	authCalls int
	creds     omeka.Credentials
	created   []string
	closed    bool
}

func (f *fakeOmeka) IsInstalled(context.Context) (bool, error) { return f.installed, nil }
func (f *fakeOmeka) RegisterVars(task string, vars map[string]interface{}) {
	if f.vars == nil {
		f.vars = map[string]map[string]interface{}{}
	}
	f.vars[task] = vars
}
func (f *fakeOmeka) Install(context.Context) (bool, error) { f.installed = true; return true, nil }
func (f *fakeOmeka) Errors() []string                       { return nil }

func (f *fakeOmeka) Authenticate(context.Context, string, string) (omeka.Credentials, error) {
	f.authCalls++
	return omeka.Credentials{KeyIdentity: "id", KeyCredential: "secret"}, nil
}

func (f *fakeOmeka) SetCredentials(c omeka.Credentials) { f.creds = c }

func (f *fakeOmeka) Create(_ context.Context, resource string, _ interface{}) (*omeka.Resource, error) {
	f.created = append(f.created, resource)
	return &omeka.Resource{ID: len(f.created)}, nil
}
func (f *fakeOmeka) Search(context.Context, string, omeka.Query) ([]omeka.Resource, error) {
	return nil, nil
}
func (f *fakeOmeka) SearchOne(context.Context, string, omeka.Query) (*omeka.Resource, error) {
	return nil, nil
}

func (f *fakeOmeka) Import(context.Context, string, map[string]interface{}, map[string]interface{}) error {
	return nil
}

// emptyRegistry knows no modules
type emptyRegistry struct{}

func (emptyRegistry) GetModule(context.Context, string) (*omeka.Module, error) { return nil, nil }
func (emptyRegistry) Install(context.Context, *omeka.Module) error           { return nil }

func (f *fakeOmeka) factory(*config.Config, paths.Paths) (*Backend, error) {
	return &Backend{
		API:       f,
		Installer: f,
		Auth:      f,
		Modules:   emptyRegistry{},
		Importer:  f,
		Close:     func() error { f.closed = true; return nil },
	}, nil
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func archiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	archives := map[string][]byte{
		"/omeka-s-4.1.1.zip": zipArchive(t, map[string]string{
			"omeka-s/index.php":               "<?php",
			"omeka-s/config/local.config.php": "<?php return [];",
		}),
		"/Mapping-2.1.0.zip": zipArchive(t, map[string]string{
			"Mapping/Module.php": "<?php",
		}),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeRoot(t *testing.T, manifestJSON, configJSON string) paths.Paths {
	t.Helper()
	root := t.TempDir()
	if manifestJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, paths.ManifestFile), []byte(manifestJSON), 0644))
	}
	if configJSON != "" {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "config", "config.json"), []byte(configJSON), 0644))
	}
	layout, err := paths.New(root)
	require.NoError(t, err)
	return layout
}

const fullConfig = `{
  "db": {"username": "omeka", "password": "pw", "database": "omeka"},
  "admin": {"email": "root@example.org", "password": "secret"},
  "title": "Archive",
  "site": {"title": "Archive", "slug": "archive"}
}`

func newRunner(layout paths.Paths, rep report.Reporter, fake *fakeOmeka, summary *bytes.Buffer) *Runner {
	return New(layout, rep,
		WithBackend(fake.factory),
		WithBootstrapOptions(bootstrap.WithGOOS("darwin")),
		WithSummary(summary, true),
	)
}

func TestRunFullInstall(t *testing.T) {
	srv := archiveServer(t)
	layout := writeRoot(t, `{
  "core": {"name": "omeka-s", "version": "4.1.1", "url": "`+srv.URL+`/omeka-s-4.1.1.zip"},
  "modules": [
    {"name": "Mapping", "version": "2.1.0", "url": "`+srv.URL+`/Mapping-2.1.0.zip"},
    {"name": "Ghost", "version": "1.0", "url": "`+srv.URL+`/Ghost-1.0.zip"}
  ]
}`, fullConfig)

	// A stale tree from an earlier run is removed first
	stale := filepath.Join(layout.PublicDir(), "stale.txt")
	require.NoError(t, os.MkdirAll(layout.PublicDir(), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))

	fake := &fakeOmeka{}
	var rec report.Recorder
	var summary bytes.Buffer
	result, err := newRunner(layout, &rec, fake, &summary).Run(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(layout.PublicDir(), "index.php"))
	assert.FileExists(t, filepath.Join(layout.ModulesDir(), "Mapping", "Module.php"))
	assert.FileExists(t, layout.DatabaseIniPath())

	assert.True(t, result.Installed)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "Archive", fake.vars[omeka.TaskAddDefaultSettings]["installation_title"])
	assert.Equal(t, omeka.Credentials{KeyIdentity: "id", KeyCredential: "secret"}, fake.creds)
	assert.Equal(t, []string{omeka.ResourceSites}, fake.created)
	assert.True(t, fake.closed)

	// Ghost fails to download, then cannot be found in the registry
	assert.True(t, result.HasErrors())
	assert.Equal(t, 1, result.Acquisition.Modules.Errors)
	modules, ok := result.Seed.Stage(seed.StageModules)
	require.True(t, ok)
	assert.Equal(t, 2, modules.Count(seed.OutcomeWarning))
	assert.Contains(t, summary.String(), report.MessageWithErrors)
	assert.Contains(t, rec.Texts(report.LevelInfo), "Removing existing public directory...")
}

func TestRunAlreadyInstalled(t *testing.T) {
	t.Run("authenticates_without_configured_key", func(t *testing.T) {
		layout := writeRoot(t, `{}`, fullConfig)
		fake := &fakeOmeka{installed: true}
		var summary bytes.Buffer

		result, err := newRunner(layout, report.Discard{}, fake, &summary).Run(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Installed)
		assert.Nil(t, fake.vars)
		assert.Equal(t, 1, fake.authCalls)
		assert.False(t, result.HasErrors())
		assert.Contains(t, summary.String(), report.MessageSuccess)
	})

	t.Run("configured_key_skips_authentication", func(t *testing.T) {
		layout := writeRoot(t, `{}`, `{
  "db": {"database": "omeka"},
  "api": {"key_identity": "k", "key_credential": "c"}
}`)
		fake := &fakeOmeka{installed: true}
		_, err := newRunner(layout, report.Discard{}, fake, &bytes.Buffer{}).Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, fake.authCalls)
	})
}

func TestRunFatalErrors(t *testing.T) {
	t.Run("missing_manifest", func(t *testing.T) {
		layout := writeRoot(t, "", fullConfig)
		var rec report.Recorder
		_, err := newRunner(layout, &rec, &fakeOmeka{}, &bytes.Buffer{}).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsFatal(err))
		assert.Equal(t, []string{"distribution.json not found."}, rec.Texts(report.LevelError))
	})

	t.Run("missing_config", func(t *testing.T) {
		layout := writeRoot(t, `{}`, "")
		var rec report.Recorder
		_, err := newRunner(layout, &rec, &fakeOmeka{}, &bytes.Buffer{}).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsFatal(err))
		assert.Equal(t, []string{"config.json not found."}, rec.Texts(report.LevelError))
	})

	t.Run("core_download_failure_stops_the_run", func(t *testing.T) {
		srv := archiveServer(t)
		layout := writeRoot(t, `{"core": {"url": "`+srv.URL+`/missing.zip"}}`, fullConfig)
		fake := &fakeOmeka{}
		_, err := newRunner(layout, report.Discard{}, fake, &bytes.Buffer{}).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsFatal(err))
		assert.NoFileExists(t, layout.DatabaseIniPath())
		assert.False(t, fake.installed)
	})

	t.Run("missing_admin_when_not_installed", func(t *testing.T) {
		layout := writeRoot(t, `{}`, `{"db": {"database": "omeka"}}`)
		_, err := newRunner(layout, report.Discard{}, &fakeOmeka{}, &bytes.Buffer{}).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsFatal(err))
	})
}
