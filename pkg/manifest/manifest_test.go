package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
)

const sampleManifest = `{
  "core": {"name": "omeka-s", "version": "4.1.1", "url": "https://example.org/omeka-s.zip"},
  "modules": [
    {"name": "CustomVocab", "version": "2.0.0", "url": "https://example.org/CustomVocab.zip"},
    {"name": "NumericDataTypes", "url": "https://example.org/NumericDataTypes.zip"}
  ],
  "themes": [{"name": "default", "url": "https://example.org/default.zip"}],
  "vocabularies": [
    {"label": "Schema", "namespace_uri": "https://schema.org/", "prefix": "schema", "file": "schema.ttl"}
  ],
  "taxonomies": [{"label": "Colors", "file": "colors.json"}],
  "resource_templates": [{"label": "Book", "file": "book.json"}]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadJSON(t *testing.T) {
	m, err := Load(writeFile(t, "distribution.json", sampleManifest))
	require.NoError(t, err)

	require.NotNil(t, m.Core)
	assert.Equal(t, "https://example.org/omeka-s.zip", m.Core.URL)
	require.Len(t, m.Modules, 2)
	assert.Equal(t, "2.0.0", m.Modules[0].DisplayVersion())
	assert.Equal(t, UnknownVersion, m.Modules[1].DisplayVersion())
	require.Len(t, m.Vocabularies, 1)
	assert.Equal(t, DefaultVocabularyFormat, m.Vocabularies[0].ImportFormat())
	assert.Equal(t, "Colors", m.Taxonomies[0].Label)
	assert.Equal(t, "book.json", m.ResourceTemplates[0].File)

	assert.Equal(t, map[string]int{
		"core": 1, "modules": 2, "themes": 1,
		"vocabularies": 1, "taxonomies": 1, "resource_templates": 1,
	}, m.Counts())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "distribution.yaml", `
core:
  url: https://example.org/omeka-s.zip
modules:
  - name: Mapping
    version: "2.1"
    url: https://example.org/Mapping.zip
vocabularies:
  - label: FOAF
    namespace_uri: http://xmlns.com/foaf/0.1/
    prefix: foaf
    file: foaf.rdf
    format: rdfxml
`)
	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, UnknownVersion, m.Core.DisplayVersion())
	assert.Equal(t, "Mapping", m.Modules[0].Name)
	assert.Equal(t, "rdfxml", m.Vocabularies[0].ImportFormat())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		code    errors.ErrorCode
	}{
		{"not_json", "distribution.json", `{"modules": [`, errors.ErrManifestInvalid},
		{"not_object", "distribution.json", `["core"]`, errors.ErrManifestInvalid},
		{"modules_not_array", "distribution.json", `{"modules": {"name": "x"}}`, errors.ErrManifestInvalid},
		{"url_not_string", "distribution.json", `{"core": {"url": 42}}`, errors.ErrManifestInvalid},
		{"bad_yaml", "distribution.yml", "modules: [", errors.ErrManifestInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.code), "got %v", err)
			assert.True(t, errors.IsFatal(err))
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "distribution.json"))
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrManifestNotFound))
		assert.True(t, errors.IsFatal(err))
	})
}

func TestEmptyManifest(t *testing.T) {
	m, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, m.Core)
	assert.Empty(t, m.Modules)
}

func TestToYAML(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	out, err := m.ToYAML()
	require.NoError(t, err)

	var decoded Manifest
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, *m, decoded)
	assert.Contains(t, string(out), "resource_templates:")
}

func TestNullEntriesAreItemLevel(t *testing.T) {
	m, err := Parse([]byte(`{
  "core": null,
  "modules": [
    null,
    {"name": "Mapping", "version": 2.10, "url": null},
    {"name": null, "version": null, "url": "https://example.org/x.zip"}
  ],
  "themes": [null],
  "vocabularies": [null],
  "taxonomies": [{"label": null, "file": "colors.json"}],
  "resource_templates": null
}`))
	require.NoError(t, err)

	assert.Nil(t, m.Core)
	require.Len(t, m.Modules, 3)
	assert.Equal(t, PackageRef{}, m.Modules[0])
	assert.Equal(t, PackageRef{Name: "Mapping", Version: "2.10"}, m.Modules[1])
	assert.Equal(t, PackageRef{URL: "https://example.org/x.zip"}, m.Modules[2])
	assert.Equal(t, UnknownVersion, m.Modules[2].DisplayVersion())
	assert.Equal(t, []PackageRef{{}}, m.Themes)
	assert.Equal(t, []VocabSpec{{}}, m.Vocabularies)
	assert.Equal(t, "colors.json", m.Taxonomies[0].File)
	assert.Empty(t, m.ResourceTemplates)
}

func TestInvalidFieldTypesAreFatal(t *testing.T) {
	for name, doc := range map[string]string{
		"boolean_version": `{"modules": [{"name": "Mapping", "version": true}]}`,
		"string_entry":    `{"modules": ["Mapping"]}`,
		"numeric_url":     `{"core": {"url": 5}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrManifestInvalid))
			assert.True(t, errors.IsFatal(err))
		})
	}
}
