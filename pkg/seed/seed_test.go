package seed

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/manifest"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
	"github.com/ngc-omeka/omeka-dist/pkg/paths"
	"github.com/ngc-omeka/omeka-dist/pkg/report"
)

type created struct {
	resource string
	payload  map[string]interface{}
}

// memoryAPI keeps created objects per resource and answers searches from
// them
type memoryAPI struct {
	objects   map[string][]omeka.Resource
	created   []created
	createErr map[string]error
	nextID    int
}

func newMemoryAPI() *memoryAPI {
	return &memoryAPI{
		objects: map[string][]omeka.Resource{
			omeka.ResourceVocabularies: {{ID: 1, Prefix: "dcterms", NamespaceURI: "http://purl.org/dc/terms/"}},
			omeka.ResourceProperties:   {{ID: 1, LocalName: "title", NamespaceURI: "http://purl.org/dc/terms/"}},
		},
		createErr: map[string]error{},
		nextID:    100,
	}
}

func (a *memoryAPI) Create(_ context.Context, resource string, payload interface{}) (*omeka.Resource, error) {
	if err := a.createErr[resource]; err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	a.created = append(a.created, created{resource: resource, payload: doc})

	a.nextID++
	res := omeka.Resource{ID: a.nextID}
	res.Label, _ = doc["o:label"].(string)
	res.Slug, _ = doc["o:slug"].(string)
	a.objects[resource] = append(a.objects[resource], res)
	return &res, nil
}

func (a *memoryAPI) Search(_ context.Context, resource string, _ omeka.Query) ([]omeka.Resource, error) {
	return a.objects[resource], nil
}

func (a *memoryAPI) SearchOne(_ context.Context, resource string, query omeka.Query) (*omeka.Resource, error) {
	for _, r := range a.objects[resource] {
		switch {
		case query["namespace_uri"] != "" && r.NamespaceURI == query["namespace_uri"],
			query["label"] != "" && r.Label == query["label"],
			query["local_name"] != "" && r.LocalName == query["local_name"] && r.NamespaceURI == query["vocabulary_namespace_uri"]:
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (a *memoryAPI) createdOf(resource string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, c := range a.created {
		if c.resource == resource {
			out = append(out, c.payload)
		}
	}
	return out
}

type mockModules struct {
	mock.Mock
}

func (m *mockModules) GetModule(ctx context.Context, name string) (*omeka.Module, error) {
	args := m.Called(ctx, name)
	mod, _ := args.Get(0).(*omeka.Module)
	return mod, args.Error(1)
}

func (m *mockModules) Install(ctx context.Context, module *omeka.Module) error {
	return m.Called(ctx, module).Error(0)
}

type mockImporter struct {
	mock.Mock
}

func (m *mockImporter) Import(ctx context.Context, sourceKind string, metadata, options map[string]interface{}) error {
	return m.Called(ctx, sourceKind, metadata, options).Error(0)
}

type fixture struct {
	api      *memoryAPI
	modules  *mockModules
	importer *mockImporter
	fs       afero.Fs
	layout   paths.Paths
	rec      *report.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	layout, err := paths.New("/dist")
	require.NoError(t, err)
	return &fixture{
		api:      newMemoryAPI(),
		modules:  &mockModules{},
		importer: &mockImporter{},
		fs:       afero.NewMemMapFs(),
		layout:   layout,
		rec:      &report.Recorder{},
	}
}

func (f *fixture) seeder() *Seeder {
	return New(f.api, f.modules, f.importer, f.fs, f.layout, f.rec)
}

func (f *fixture) writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.fs, path, []byte(content), 0644))
}

func stage(t *testing.T, result *Result, name string) StageResult {
	t.Helper()
	s, ok := result.Stage(name)
	require.True(t, ok, "stage %s missing", name)
	return s
}

func TestSeedModules(t *testing.T) {
	f := newFixture(t)
	mapping := &omeka.Module{ID: "Mapping", Version: "2.1.0", State: omeka.ModuleStateNotInstalled}
	f.modules.On("GetModule", mock.Anything, "Mapping").Return(mapping, nil)
	f.modules.On("GetModule", mock.Anything, "Ghost").Return(nil, nil)
	f.modules.On("Install", mock.Anything, mapping).Return(nil)

	m := &manifest.Manifest{Modules: []manifest.PackageRef{
		{Name: "Mapping", Version: "2.1.0"},
		{Name: "Ghost", Version: "1.0"},
	}}
	result := f.seeder().Seed(context.Background(), m, &config.Config{})

	f.modules.AssertExpectations(t)
	modules := stage(t, result, StageModules)
	assert.Equal(t, 1, modules.Count(OutcomeOK))
	assert.Equal(t, 1, modules.Count(OutcomeWarning))
	assert.False(t, result.Success(), "a missing module completes with errors")
	assert.Equal(t, []string{"Module Ghost could not be found. Skip..."}, f.rec.Texts(report.LevelWarning))
	assert.Equal(t, []string{"Module Mapping(2.1.0) installed successfully."}, f.rec.Texts(report.LevelSuccess))
}

func TestSeedModuleStates(t *testing.T) {
	f := newFixture(t)
	f.modules.On("GetModule", mock.Anything, "Active").
		Return(&omeka.Module{ID: "Active", Version: "3.0.0", State: omeka.ModuleStateActive}, nil)
	f.modules.On("GetModule", mock.Anything, "Broken").
		Return(&omeka.Module{ID: "Broken", State: omeka.ModuleStateNotInstalled}, nil)
	f.modules.On("Install", mock.Anything, mock.Anything).Return(stderrors.New("missing dependency"))

	m := &manifest.Manifest{Modules: []manifest.PackageRef{
		{Name: "Active", Version: "3.1.0"},
		{Name: "Broken"},
		{Version: "1.0"},
	}}
	result := f.seeder().Seed(context.Background(), m, &config.Config{})

	modules := stage(t, result, StageModules)
	assert.Equal(t, 1, modules.Count(OutcomeNote))
	assert.Equal(t, 2, modules.Count(OutcomeError))
	assert.Contains(t, f.rec.Texts(report.LevelNote), "Module Active is version 3.0.0, distribution.json declares 3.1.0.")
	assert.Contains(t, f.rec.Texts(report.LevelNote), "Module Active is already installed. Skip...")
	assert.Equal(t, []string{
		"Module installation failed: missing dependency",
		"Module name missing in distribution.json.",
	}, f.rec.Texts(report.LevelError))
}

func TestSeedSite(t *testing.T) {
	f := newFixture(t)
	cfg := &config.Config{Site: &config.SiteConfig{Slug: "collections"}}

	result := f.seeder().Seed(context.Background(), &manifest.Manifest{}, cfg)
	require.True(t, result.Success())
	sites := f.api.createdOf(omeka.ResourceSites)
	require.Len(t, sites, 1)
	assert.Equal(t, map[string]interface{}{
		"o:title":   "My Site",
		"o:slug":    "collections",
		"o:summary": "",
		"o:theme":   "default",
	}, sites[0])

	// The slug now exists
	result = f.seeder().Seed(context.Background(), &manifest.Manifest{}, cfg)
	assert.True(t, result.Success())
	assert.Equal(t, 1, stage(t, result, StageSite).Count(OutcomeNote))
	assert.Len(t, f.api.createdOf(omeka.ResourceSites), 1)
}

func TestSeedSiteFailure(t *testing.T) {
	f := newFixture(t)
	f.api.createErr[omeka.ResourceSites] = stderrors.New("HTTP 422")

	result := f.seeder().Seed(context.Background(), &manifest.Manifest{}, &config.Config{Site: &config.SiteConfig{}})
	assert.False(t, result.Success())
	assert.Equal(t, []string{"Site creation failed: HTTP 422"}, f.rec.Texts(report.LevelError))
}

func TestSeedVocabularies(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "/dist/vocabularies/bibo.ttl", "@prefix bibo: <http://purl.org/ontology/bibo/> .")
	f.importer.On("Import", mock.Anything, omeka.RdfImportSourceFile,
		map[string]interface{}{
			"o:label":         "Bibliographic Ontology",
			"o:comment":       "",
			"o:namespace_uri": "http://purl.org/ontology/bibo/",
			"o:prefix":        "bibo",
		},
		map[string]interface{}{
			"format": "turtle",
			"file":   "/dist/vocabularies/bibo.ttl",
		}).Return(nil).Once()

	m := &manifest.Manifest{Vocabularies: []manifest.VocabSpec{
		{Label: "Bibliographic Ontology", NamespaceURI: "http://purl.org/ontology/bibo/", Prefix: "bibo", File: "bibo.ttl", Format: "turtle"},
		{Label: "Dublin Core", NamespaceURI: "http://purl.org/dc/terms/", Prefix: "dcterms", File: "bibo.ttl"},
		{Label: "Missing file", NamespaceURI: "http://example.org/", Prefix: "ex", File: "ex.rdf"},
		{Label: "No prefix", NamespaceURI: "http://example.org/", File: "ex.rdf"},
	}}
	result := f.seeder().Seed(context.Background(), m, &config.Config{})

	f.importer.AssertExpectations(t)
	vocabs := stage(t, result, StageVocabularies)
	assert.Equal(t, 1, vocabs.Count(OutcomeOK))
	assert.Equal(t, 1, vocabs.Count(OutcomeNote))
	assert.Equal(t, []string{
		"Vocabulary file ex.rdf not found.",
		"Vocabulary information incomplete in distribution.json.",
	}, f.rec.Texts(report.LevelError))
}

func TestSeedTaxonomies(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "/dist/taxonomies/materials.json", `{"o:label": "Materials", "o:terms": "wood\nstone"}`)
	f.writeFile(t, "/dist/taxonomies/broken.json", `{"o:label": `)

	m := &manifest.Manifest{Taxonomies: []manifest.TaxonomySpec{
		{Label: "Materials", File: "materials.json"},
		{Label: "Materials again", File: "materials.json"},
		{Label: "Broken", File: "broken.json"},
		{Label: "Absent", File: "absent.json"},
	}}
	result := f.seeder().Seed(context.Background(), m, &config.Config{})

	vocabs := f.api.createdOf(omeka.ResourceCustomVocabs)
	require.Len(t, vocabs, 1)
	assert.Equal(t, "", vocabs[0]["o:lang"])
	assert.Equal(t, "wood\nstone", vocabs[0]["o:terms"])

	taxonomies := stage(t, result, StageTaxonomies)
	assert.Equal(t, 1, taxonomies.Count(OutcomeOK))
	assert.Equal(t, 1, taxonomies.Count(OutcomeNote))
	assert.Equal(t, 2, taxonomies.Count(OutcomeError))
}

func TestSeedTemplates(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "/dist/resource_templates/photo.json", `{
  "o:label": "Photograph",
  "o:resource_template_property": [
    {"vocabulary_namespace_uri": "http://purl.org/dc/terms/", "local_name": "title", "label": "Title",
     "data_types": [{"name": "literal", "label": "Text"}]},
    {"vocabulary_namespace_uri": "http://bogus.example/", "local_name": "shade", "label": "Shade"}
  ]
}`)
	f.writeFile(t, "/dist/resource_templates/bad.json", `{"o:resource_template_property": "none"}`)

	m := &manifest.Manifest{ResourceTemplates: []manifest.TemplateSpec{
		{Label: "Photograph", File: "photo.json"},
		{Label: "Bad", File: "bad.json"},
	}}
	result := f.seeder().Seed(context.Background(), m, &config.Config{})

	templates := f.api.createdOf(omeka.ResourceTemplates)
	require.Len(t, templates, 1)
	props := templates[0]["o:resource_template_property"].([]interface{})
	require.Len(t, props, 1)
	assert.Equal(t, map[string]interface{}{"o:id": float64(1)}, props[0].(map[string]interface{})["o:property"])

	stageResult := stage(t, result, StageTemplates)
	assert.Equal(t, 1, stageResult.Count(OutcomeOK))
	assert.Equal(t, 1, stageResult.Count(OutcomeError))
	assert.Equal(t, 0, stageResult.Count(OutcomeWarning), "resolution warnings are reported, not counted")
	assert.Equal(t, []string{"Vocabulary 'http://bogus.example/' not found. Property 'Shade' skipped."}, f.rec.Texts(report.LevelWarning))

	// A second run finds the template by label
	f.rec.Messages = nil
	result = f.seeder().Seed(context.Background(), m, &config.Config{})
	assert.Equal(t, 1, stage(t, result, StageTemplates).Count(OutcomeNote))
	assert.Len(t, f.api.createdOf(omeka.ResourceTemplates), 1)
}

func TestSeedRunsEveryStage(t *testing.T) {
	f := newFixture(t)
	f.modules.On("GetModule", mock.Anything, "Ghost").Return(nil, nil)

	result := f.seeder().Seed(context.Background(), &manifest.Manifest{
		Modules: []manifest.PackageRef{{Name: "Ghost"}},
	}, &config.Config{Site: &config.SiteConfig{Title: "Archive"}})

	require.Len(t, result.Stages, 5)
	assert.Equal(t, 1, stage(t, result, StageSite).Count(OutcomeOK), "site is created after a module failure")
	assert.False(t, result.Success())

	rows := result.Rows()
	assert.Equal(t, report.StageRow{Stage: StageModules, Warnings: 1}, rows[0])
	assert.Equal(t, report.StageRow{Stage: StageSite, OK: 1}, rows[1])
}

func TestSeedStopsWhenCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.seeder().Seed(ctx, &manifest.Manifest{Modules: []manifest.PackageRef{{Name: "Mapping"}}}, &config.Config{})
	assert.Empty(t, result.Stages)
	f.modules.AssertNotCalled(t, "GetModule", mock.Anything, mock.Anything)
}
