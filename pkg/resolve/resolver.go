// Package resolve rewrites the vocabulary, class, property and custom
// vocabulary references of an exported resource template into the
// identifiers of the target installation.
//
// A reference is only given an identifier after the installation confirmed
// it. Unresolved references produce warnings and are left without an
// identifier, or dropped when the whole entry depends on them.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
)

// Resolution is a resolved template and the references that could not be
// resolved
type Resolution struct {
	Template *Template
	Warnings []string
}

// Resolver resolves templates against one installation. It caches
// vocabulary lookups and the custom vocabulary index for its lifetime, so
// one Resolver serves one run.
type Resolver struct {
	api    omeka.API
	logger zerolog.Logger

	vocabularies map[string]*omeka.Resource
	customVocabs map[string]int
}

// NewResolver creates a Resolver backed by api
func NewResolver(api omeka.API) *Resolver {
	return &Resolver{
		api:          api,
		logger:       logging.GetLogger("resolve"),
		vocabularies: make(map[string]*omeka.Resource),
	}
}

// Resolve returns a rewritten copy of tpl. Lookup misses become warnings;
// only failures to reach the installation are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, tpl *Template) (*Resolution, error) {
	out := tpl.clone()
	res := &Resolution{Template: out}
	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		r.logger.Debug().Str("template", tpl.Label).Msg(msg)
		res.Warnings = append(res.Warnings, msg)
	}

	if ref := out.ResourceClass; ref != nil {
		state, err := r.resolveTerm(ctx, ref, omeka.ResourceClasses)
		if err != nil {
			return nil, err
		}
		switch state {
		case vocabularyMissing:
			warn("Vocabulary '%s' not found for resource class '%s'.", ref.NamespaceURI, ref.LocalName)
		case termMissing:
			warn("Resource class '%s' not found.", ref.LocalName)
		}
	}

	for _, p := range []struct {
		key string
		ref *TermRef
	}{
		{keyTitleProperty, out.TitleProperty},
		{keyDescriptionProperty, out.DescriptionProperty},
	} {
		if p.ref == nil {
			continue
		}
		state, err := r.resolveTerm(ctx, p.ref, omeka.ResourceProperties)
		if err != nil {
			return nil, err
		}
		switch state {
		case vocabularyMissing:
			warn("Vocabulary '%s' not found for %s.", p.ref.NamespaceURI, p.key)
		case termMissing:
			warn("Property '%s' not found for %s.", p.ref.LocalName, p.key)
		}
	}

	properties := make([]TemplateProperty, 0, len(out.Properties))
	for _, prop := range out.Properties {
		kept, err := r.resolveProperty(ctx, prop, warn)
		if err != nil {
			return nil, err
		}
		if kept != nil {
			properties = append(properties, *kept)
		}
	}
	out.Properties = properties

	return res, nil
}

type termState int

const (
	termResolved termState = iota
	termMissing
	vocabularyMissing
)

// resolveTerm sets the vocabulary prefix and the id on ref. Both stay
// empty when the installation does not confirm them.
func (r *Resolver) resolveTerm(ctx context.Context, ref *TermRef, resource string) (termState, error) {
	ref.ID = 0
	ref.VocabularyPrefix = ""

	vocab, err := r.vocabulary(ctx, ref.NamespaceURI)
	if err != nil {
		return 0, err
	}
	if vocab == nil {
		return vocabularyMissing, nil
	}
	ref.VocabularyPrefix = vocab.Prefix

	term, err := r.api.SearchOne(ctx, resource, omeka.Query{
		"vocabulary_namespace_uri": ref.NamespaceURI,
		"local_name":               ref.LocalName,
	})
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrAPIRequest, "failed to look up %s:%s", vocab.Prefix, ref.LocalName)
	}
	if term == nil {
		return termMissing, nil
	}
	ref.ID = term.ID
	return termResolved, nil
}

// resolveProperty returns nil when the entry is dropped
func (r *Resolver) resolveProperty(ctx context.Context, prop TemplateProperty, warn func(string, ...interface{})) (*TemplateProperty, error) {
	state, err := r.resolveTerm(ctx, &prop.TermRef, omeka.ResourceProperties)
	if err != nil {
		return nil, err
	}
	prop.PropertyID = prop.ID
	prop.ID = 0
	switch state {
	case vocabularyMissing:
		warn("Vocabulary '%s' not found. Property '%s' skipped.", prop.NamespaceURI, propertyName(prop))
		return nil, nil
	case termMissing:
		warn("Property '%s' not found.", prop.LocalName)
		return &prop, nil
	}

	var indexErr error
	prop.DataTypes = lo.FilterMap(prop.DataTypes, func(dt DataType, _ int) (DataType, bool) {
		if indexErr != nil || !strings.HasPrefix(dt.Name, omeka.CustomVocabDataTypePrefix) {
			return dt, true
		}
		label := dt.LabelText()
		if label == "" {
			label = strings.TrimPrefix(dt.Name, omeka.CustomVocabDataTypePrefix)
		}
		vocabID, ok, err := r.customVocab(ctx, label)
		if err != nil {
			indexErr = err
			return dt, true
		}
		if !ok {
			warn("Custom vocabulary '%s' not found. Removed from property '%s'.", label, propertyName(prop))
			return dt, false
		}
		dt.Name = fmt.Sprintf("%s%d", omeka.CustomVocabDataTypePrefix, vocabID)
		return dt, true
	})
	if indexErr != nil {
		return nil, indexErr
	}
	prop.DataTypeNames = lo.Map(prop.DataTypes, func(dt DataType, _ int) string { return dt.Name })
	return &prop, nil
}

// vocabulary returns nil when no vocabulary has the namespace URI. Misses
// are not cached.
func (r *Resolver) vocabulary(ctx context.Context, namespaceURI string) (*omeka.Resource, error) {
	if vocab, ok := r.vocabularies[namespaceURI]; ok {
		return vocab, nil
	}
	vocab, err := r.api.SearchOne(ctx, omeka.ResourceVocabularies, omeka.Query{"namespace_uri": namespaceURI})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrAPIRequest, "failed to look up vocabulary %s", namespaceURI)
	}
	if vocab != nil {
		r.vocabularies[namespaceURI] = vocab
	}
	return vocab, nil
}

// customVocab looks up a custom vocabulary id by label, listing all custom
// vocabularies on first use
func (r *Resolver) customVocab(ctx context.Context, label string) (int, bool, error) {
	if r.customVocabs == nil {
		all, err := r.api.Search(ctx, omeka.ResourceCustomVocabs, nil)
		if err != nil {
			return 0, false, errors.Wrap(err, errors.ErrAPIRequest, "failed to list custom vocabularies")
		}
		index := make(map[string]int, len(all))
		for _, cv := range all {
			if _, dup := index[cv.Label]; !dup {
				index[cv.Label] = cv.ID
			}
		}
		r.customVocabs = index
		r.logger.Debug().Int("count", len(index)).Msg("Indexed custom vocabularies")
	}
	id, ok := r.customVocabs[label]
	return id, ok, nil
}

func propertyName(p TemplateProperty) string {
	if p.Label != "" {
		return p.Label
	}
	return p.LocalName
}
