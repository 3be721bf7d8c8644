package manifest

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
)

//go:embed schema/manifest.schema.json
var schemaJSON []byte

const schemaResource = "distribution.schema.json"

var (
	manifestSchema     *jsonschema.Schema
	manifestSchemaOnce sync.Once
	manifestSchemaErr  error
)

func loadSchema() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaResource, bytes.NewReader(schemaJSON)); err != nil {
			manifestSchemaErr = err
			return
		}
		manifestSchema, manifestSchemaErr = compiler.Compile(schemaResource)
	})
	return manifestSchema, manifestSchemaErr
}

// Load reads and validates the manifest at path. JSON and YAML documents
// are accepted, chosen by extension. Every failure is fatal.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrManifestNotFound, "%s not found", filepath.Base(path)).
				WithDetail("path", path).Fatal()
		}
		return nil, errors.Wrapf(err, errors.ErrManifestInvalid, "failed to read %s", path).Fatal()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrManifestInvalid, "manifest is not valid YAML").Fatal()
		}
	}

	return Parse(data)
}

// Parse validates a JSON manifest document against the embedded schema
// and decodes it
func Parse(data []byte) (*Manifest, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrManifestInvalid, "failed to decode manifest").Fatal()
	}
	return &m, nil
}

// Validate checks a JSON manifest document against the embedded schema
func Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, errors.ErrManifestInvalid, "manifest is not valid JSON").Fatal()
	}

	schema, err := loadSchema()
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to load manifest schema").Fatal()
	}

	if err := schema.Validate(doc); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return errors.Newf(errors.ErrManifestInvalid, "manifest validation failed: %s", verr).Fatal()
		}
		return errors.Wrap(err, errors.ErrManifestInvalid, "manifest validation failed").Fatal()
	}
	return nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return json.Marshal(doc)
}

// ToYAML renders the manifest as YAML for display
func (m *Manifest) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render manifest")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render manifest")
	}
	return buf.Bytes(), nil
}
