// Package seed populates a freshly installed Omeka S instance with the
// modules, site, vocabularies, taxonomies and resource templates a
// distribution declares.
//
// Every sub-stage runs regardless of how the previous one went. Within a
// sub-stage each item is reported and recorded on its own, and a failing
// item never stops the loop.
package seed

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
	"github.com/ngc-omeka/omeka-dist/pkg/manifest"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
	"github.com/ngc-omeka/omeka-dist/pkg/paths"
	"github.com/ngc-omeka/omeka-dist/pkg/report"
	"github.com/ngc-omeka/omeka-dist/pkg/resolve"
)

// Sub-stage names as shown in the summary
const (
	StageModules      = "modules"
	StageSite         = "site"
	StageVocabularies = "vocabularies"
	StageTaxonomies   = "taxonomies"
	StageTemplates    = "resource templates"
)

// Seeder runs the seeding sub-stages against one installation
type Seeder struct {
	api      omeka.API
	modules  omeka.ModuleRegistry
	importer omeka.RdfImporter
	resolver *resolve.Resolver
	fs       afero.Fs
	layout   paths.Paths
	rep      report.Reporter
	logger   zerolog.Logger
}

// New creates a Seeder. Seed files are read from fs under layout.
func New(api omeka.API, modules omeka.ModuleRegistry, importer omeka.RdfImporter, fs afero.Fs, layout paths.Paths, rep report.Reporter) *Seeder {
	return &Seeder{
		api:      api,
		modules:  modules,
		importer: importer,
		resolver: resolve.NewResolver(api),
		fs:       fs,
		layout:   layout,
		rep:      rep,
		logger:   logging.GetLogger("seed"),
	}
}

// Seed runs every sub-stage in order
func (s *Seeder) Seed(ctx context.Context, m *manifest.Manifest, cfg *config.Config) *Result {
	result := &Result{}
	steps := []struct {
		name string
		run  func(context.Context, *recorder)
	}{
		{StageModules, func(ctx context.Context, r *recorder) { s.seedModules(ctx, m.Modules, r) }},
		{StageSite, func(ctx context.Context, r *recorder) { s.seedSite(ctx, cfg.Site, r) }},
		{StageVocabularies, func(ctx context.Context, r *recorder) { s.seedVocabularies(ctx, m.Vocabularies, r) }},
		{StageTaxonomies, func(ctx context.Context, r *recorder) { s.seedTaxonomies(ctx, m.Taxonomies, r) }},
		{StageTemplates, func(ctx context.Context, r *recorder) { s.seedTemplates(ctx, m.ResourceTemplates, r) }},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			break
		}
		rec := &recorder{stage: StageResult{Name: step.name}, rep: s.rep}
		step.run(ctx, rec)
		result.Stages = append(result.Stages, rec.stage)
		s.logger.Debug().
			Str("stage", step.name).
			Int("items", len(rec.stage.Items)).
			Bool("failed", rec.stage.Failed()).
			Msg("Seeding stage finished")
	}
	return result
}

// recorder reports item outcomes and records them on the stage result
type recorder struct {
	stage StageResult
	rep   report.Reporter
}

func (r *recorder) record(item string, outcome Outcome, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch outcome {
	case OutcomeOK:
		r.rep.Success("%s", msg)
	case OutcomeNote:
		r.rep.Note("%s", msg)
	case OutcomeWarning:
		r.rep.Warning("%s", msg)
	default:
		r.rep.Error("%s", msg)
	}
	r.stage.Items = append(r.stage.Items, ItemResult{Item: item, Outcome: outcome, Message: msg})
}

func (r *recorder) ok(item, format string, args ...interface{}) {
	r.record(item, OutcomeOK, format, args...)
}

func (r *recorder) note(item, format string, args ...interface{}) {
	r.record(item, OutcomeNote, format, args...)
}

func (r *recorder) warn(item, format string, args ...interface{}) {
	r.record(item, OutcomeWarning, format, args...)
}

func (r *recorder) fail(item, format string, args ...interface{}) {
	r.record(item, OutcomeError, format, args...)
}

func (s *Seeder) seedModules(ctx context.Context, refs []manifest.PackageRef, rec *recorder) {
	for _, ref := range refs {
		if ctx.Err() != nil {
			return
		}
		if ref.Name == "" {
			rec.fail("", "Module name missing in distribution.json.")
			continue
		}
		ver := ref.DisplayVersion()
		s.rep.Info("Installing module: %s(%s)...", ref.Name, ver)

		mod, err := s.modules.GetModule(ctx, ref.Name)
		if err != nil {
			rec.fail(ref.Name, "Module lookup failed: %s", errors.Message(err))
			continue
		}
		if mod == nil {
			rec.warn(ref.Name, "Module %s could not be found. Skip...", ref.Name)
			continue
		}
		s.compareVersions(ref, mod)
		if mod.State != omeka.ModuleStateNotInstalled {
			rec.note(ref.Name, "Module %s is already installed. Skip...", ref.Name)
			continue
		}
		if err := s.modules.Install(ctx, mod); err != nil {
			rec.fail(ref.Name, "Module installation failed: %s", errors.Message(err))
			continue
		}
		rec.ok(ref.Name, "Module %s(%s) installed successfully.", ref.Name, ver)
	}
}

// compareVersions notes when the module found on disk is not the version
// the manifest asked for. Unparseable versions are ignored.
func (s *Seeder) compareVersions(ref manifest.PackageRef, mod *omeka.Module) {
	want, err := version.NewVersion(ref.Version)
	if err != nil {
		return
	}
	have, err := version.NewVersion(mod.Version)
	if err != nil {
		return
	}
	if !want.Equal(have) {
		s.rep.Note("Module %s is version %s, distribution.json declares %s.", ref.Name, have, want)
	}
}

func (s *Seeder) seedSite(ctx context.Context, site *config.SiteConfig, rec *recorder) {
	if site == nil {
		return
	}
	cfg := site.WithDefaults()

	if cfg.Slug != "" {
		sites, err := s.api.Search(ctx, omeka.ResourceSites, nil)
		if err != nil {
			rec.fail(cfg.Title, "Site creation failed: %s", errors.Message(err))
			return
		}
		for _, existing := range sites {
			if existing.Slug == cfg.Slug {
				rec.note(cfg.Title, "Site with slug '%s' already exists. Skip...", cfg.Slug)
				return
			}
		}
	}

	_, err := s.api.Create(ctx, omeka.ResourceSites, map[string]interface{}{
		"o:title":   cfg.Title,
		"o:slug":    cfg.Slug,
		"o:summary": cfg.Summary,
		"o:theme":   cfg.Theme,
	})
	if err != nil {
		rec.fail(cfg.Title, "Site creation failed: %s", errors.Message(err))
		return
	}
	rec.ok(cfg.Title, "Site '%s' created successfully.", cfg.Title)
}

func (s *Seeder) seedVocabularies(ctx context.Context, specs []manifest.VocabSpec, rec *recorder) {
	for _, v := range specs {
		if ctx.Err() != nil {
			return
		}
		if v.Label == "" || v.NamespaceURI == "" || v.Prefix == "" || v.File == "" {
			rec.fail(v.Label, "Vocabulary information incomplete in distribution.json.")
			continue
		}
		path := s.layout.VocabularyPath(v.File)
		if ok, _ := afero.Exists(s.fs, path); !ok {
			rec.fail(v.Label, "Vocabulary file %s not found.", v.File)
			continue
		}

		existing, err := s.api.SearchOne(ctx, omeka.ResourceVocabularies, omeka.Query{"namespace_uri": v.NamespaceURI})
		if err != nil {
			rec.fail(v.Label, "Vocabulary import failed: %s", errors.Message(err))
			continue
		}
		if existing != nil {
			rec.note(v.Label, "Vocabulary '%s' is already imported as '%s'. Skip...", v.Label, existing.Prefix)
			continue
		}

		s.rep.Info("Importing vocabulary: %s...", v.Label)
		err = s.importer.Import(ctx, omeka.RdfImportSourceFile,
			map[string]interface{}{
				"o:label":         v.Label,
				"o:comment":       v.Comment,
				"o:namespace_uri": v.NamespaceURI,
				"o:prefix":        v.Prefix,
			},
			map[string]interface{}{
				"format": v.ImportFormat(),
				"file":   path,
			})
		if err != nil {
			rec.fail(v.Label, "Vocabulary import failed: %s", errors.Message(err))
			continue
		}
		rec.ok(v.Label, "Vocabulary '%s' imported successfully.", v.Label)
	}
}
