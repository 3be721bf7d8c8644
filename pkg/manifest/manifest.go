// Package manifest models the declarative distribution manifest: the core
// package, add-on modules and themes, and the seed content imported after
// installation.
package manifest

import (
	"bytes"
	stdjson "encoding/json"

	"github.com/goccy/go-json"
)

// UnknownVersion is displayed when a package declares no version
const UnknownVersion = "unknown"

// DefaultVocabularyFormat lets the RDF importer detect the file format
const DefaultVocabularyFormat = "guess"

// Manifest is the parsed distribution manifest. It is loaded once and
// treated as immutable afterwards.
type Manifest struct {
	Core              *PackageRef    `json:"core,omitempty" yaml:"core,omitempty"`
	Modules           []PackageRef   `json:"modules,omitempty" yaml:"modules,omitempty"`
	Themes            []PackageRef   `json:"themes,omitempty" yaml:"themes,omitempty"`
	Vocabularies      []VocabSpec    `json:"vocabularies,omitempty" yaml:"vocabularies,omitempty"`
	Taxonomies        []TaxonomySpec `json:"taxonomies,omitempty" yaml:"taxonomies,omitempty"`
	ResourceTemplates []TemplateSpec `json:"resource_templates,omitempty" yaml:"resource_templates,omitempty"`
}

// PackageRef points at a downloadable archive
type PackageRef struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
}

// UnmarshalJSON accepts a numeric version and keeps its literal text, so
// 2.10 stays "2.10". Null fields decode as empty.
func (p *PackageRef) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name    string             `json:"name"`
		Version stdjson.RawMessage `json:"version"`
		URL     string             `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	version := bytes.TrimSpace(raw.Version)
	switch {
	case len(version) == 0 || bytes.Equal(version, []byte("null")):
		p.Version = ""
	case version[0] == '"':
		if err := json.Unmarshal(version, &p.Version); err != nil {
			return err
		}
	default:
		p.Version = string(version)
	}
	p.Name = raw.Name
	p.URL = raw.URL
	return nil
}

// DisplayVersion returns the declared version or "unknown"
func (p PackageRef) DisplayVersion() string {
	if p.Version == "" {
		return UnknownVersion
	}
	return p.Version
}

// VocabSpec declares an RDF vocabulary bundled under vocabularies/
type VocabSpec struct {
	Label        string `json:"label,omitempty" yaml:"label,omitempty"`
	Comment      string `json:"comment,omitempty" yaml:"comment,omitempty"`
	NamespaceURI string `json:"namespace_uri,omitempty" yaml:"namespace_uri,omitempty"`
	Prefix       string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	File         string `json:"file,omitempty" yaml:"file,omitempty"`
	Format       string `json:"format,omitempty" yaml:"format,omitempty"`
}

// ImportFormat returns the declared format or "guess"
func (v VocabSpec) ImportFormat() string {
	if v.Format == "" {
		return DefaultVocabularyFormat
	}
	return v.Format
}

// TaxonomySpec declares a custom vocabulary bundled under taxonomies/
type TaxonomySpec struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// TemplateSpec declares a resource template bundled under resource_templates/
type TemplateSpec struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Counts summarizes the manifest sections for display
func (m *Manifest) Counts() map[string]int {
	core := 0
	if m.Core != nil {
		core = 1
	}
	return map[string]int{
		"core":               core,
		"modules":            len(m.Modules),
		"themes":             len(m.Themes),
		"vocabularies":       len(m.Vocabularies),
		"taxonomies":         len(m.Taxonomies),
		"resource_templates": len(m.ResourceTemplates),
	}
}
