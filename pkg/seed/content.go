package seed

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/manifest"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
	"github.com/ngc-omeka/omeka-dist/pkg/resolve"
)

func (s *Seeder) seedTaxonomies(ctx context.Context, specs []manifest.TaxonomySpec, rec *recorder) {
	// Labels of custom vocabularies present before and during this stage
	var existing map[string]bool

	for _, t := range specs {
		if ctx.Err() != nil {
			return
		}
		if t.Label == "" || t.File == "" {
			rec.fail(t.Label, "Taxonomy information incomplete in distribution.json.")
			continue
		}
		path := s.layout.TaxonomyPath(t.File)
		data, err := afero.ReadFile(s.fs, path)
		if err != nil {
			rec.fail(t.Label, "Taxonomy file %s not found.", t.File)
			continue
		}

		var doc map[string]interface{}
		if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
			rec.fail(t.Label, "Taxonomy file %s is not a valid JSON object.", t.File)
			continue
		}
		if _, ok := doc["o:lang"]; !ok {
			doc["o:lang"] = ""
		}
		label, _ := doc["o:label"].(string)
		if label == "" {
			label = t.Label
			doc["o:label"] = label
		}

		if existing == nil {
			all, err := s.api.Search(ctx, omeka.ResourceCustomVocabs, nil)
			if err != nil {
				rec.fail(t.Label, "Taxonomy import failed: %s", errors.Message(err))
				continue
			}
			existing = lo.SliceToMap(all, func(r omeka.Resource) (string, bool) { return r.Label, true })
		}
		if existing[label] {
			rec.note(t.Label, "Taxonomy '%s' already exists. Skip...", label)
			continue
		}

		s.rep.Info("Importing taxonomy: %s...", t.Label)
		if _, err := s.api.Create(ctx, omeka.ResourceCustomVocabs, doc); err != nil {
			rec.fail(t.Label, "Taxonomy import failed: %s", errors.Message(err))
			continue
		}
		existing[label] = true
		rec.ok(t.Label, "Taxonomy '%s' imported successfully.", t.Label)
	}
}

func (s *Seeder) seedTemplates(ctx context.Context, specs []manifest.TemplateSpec, rec *recorder) {
	for _, t := range specs {
		if ctx.Err() != nil {
			return
		}
		if t.Label == "" || t.File == "" {
			rec.fail(t.Label, "Resource template information incomplete in distribution.json.")
			continue
		}
		path := s.layout.ResourceTemplatePath(t.File)
		data, err := afero.ReadFile(s.fs, path)
		if err != nil {
			rec.fail(t.Label, "Resource template file %s not found.", t.File)
			continue
		}

		tpl, err := resolve.DecodeTemplate(data)
		if err != nil {
			rec.fail(t.Label, "Resource template file %s is invalid: %s", t.File, errors.Message(err))
			continue
		}
		if tpl.Label == "" {
			tpl.Label = t.Label
		}

		existing, err := s.api.SearchOne(ctx, omeka.ResourceTemplates, omeka.Query{"label": tpl.Label})
		if err != nil {
			rec.fail(t.Label, "Resource template import failed: %s", errors.Message(err))
			continue
		}
		if existing != nil && existing.Label == tpl.Label {
			rec.note(t.Label, "Resource template '%s' already exists. Skip...", tpl.Label)
			continue
		}

		s.rep.Info("Importing resource template: %s...", t.Label)
		res, err := s.resolver.Resolve(ctx, tpl)
		if err != nil {
			rec.fail(t.Label, "Resource template import failed: %s", errors.Message(err))
			continue
		}
		// Unresolved references are data-quality warnings, not item failures
		for _, w := range res.Warnings {
			s.rep.Warning("%s", w)
		}

		if _, err := s.api.Create(ctx, omeka.ResourceTemplates, res.Template); err != nil {
			rec.fail(t.Label, "Resource template import failed: %s", errors.Message(err))
			continue
		}
		rec.ok(t.Label, "Resource template '%s' imported successfully.", t.Label)
	}
}
