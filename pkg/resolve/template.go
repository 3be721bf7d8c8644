package resolve

import (
	"bytes"
	_ "embed"
	stdjson "encoding/json"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
)

//go:embed schema/template.schema.json
var schemaJSON []byte

const schemaResource = "resource-template.schema.json"

var (
	templateSchema     *jsonschema.Schema
	templateSchemaOnce sync.Once
	templateSchemaErr  error
)

// Template is a resource template as exported by Omeka S. The references
// the resolver rewrites are typed; every other key is kept in Extra and
// submitted unchanged.
type Template struct {
	Label               string
	ResourceClass       *TermRef
	TitleProperty       *TermRef
	DescriptionProperty *TermRef
	Properties          []TemplateProperty
	Extra               map[string]stdjson.RawMessage
}

// TermRef references a class or property by vocabulary namespace and
// local name. ID and VocabularyPrefix are only set by resolution.
type TermRef struct {
	ID               int
	NamespaceURI     string
	LocalName        string
	Label            string
	VocabularyLabel  string
	VocabularyPrefix string
	Extra            map[string]stdjson.RawMessage
}

// TemplateProperty is one entry of o:resource_template_property
type TemplateProperty struct {
	TermRef
	// PropertyID is written as o:property once the property is resolved
	PropertyID    int
	DataTypes     []DataType
	DataTypeNames []string
}

// DataType is a data type attached to a template property. Custom
// vocabularies are referenced as "customvocab:" followed by a placeholder
// until resolution replaces it with the numeric id. Label is nil when the
// file has no string label; a null label stays in Extra and is written back
// unchanged.
type DataType struct {
	Name  string
	Label *string
	Extra map[string]stdjson.RawMessage
}

// LabelText returns the label, or "" when there is none
func (d DataType) LabelText() string {
	if d.Label == nil {
		return ""
	}
	return *d.Label
}

const (
	keyID                  = "o:id"
	keyLabel               = "o:label"
	keyResourceClass       = "o:resource_class"
	keyTitleProperty       = "o:title_property"
	keyDescriptionProperty = "o:description_property"
	keyProperties          = "o:resource_template_property"
	keyProperty            = "o:property"
	keyDataType            = "o:data_type"
	keyNamespaceURI        = "vocabulary_namespace_uri"
	keyVocabularyLabel     = "vocabulary_label"
	keyVocabularyPrefix    = "vocabulary_prefix"
	keyLocalName           = "local_name"
	keyTermLabel           = "label"
	keyDataTypes           = "data_types"
	keyName                = "name"
)

// DecodeTemplate validates a template document and decodes it. Malformed
// documents fail with ErrTemplateInvalid.
func DecodeTemplate(data []byte) (*Template, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrTemplateInvalid, "template is not valid JSON")
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load template schema")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrTemplateInvalid, "template validation failed")
	}

	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, errors.Wrap(err, errors.ErrTemplateInvalid, "failed to decode template")
	}
	return &tpl, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	templateSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaResource, bytes.NewReader(schemaJSON)); err != nil {
			templateSchemaErr = err
			return
		}
		templateSchema, templateSchemaErr = compiler.Compile(schemaResource)
	})
	return templateSchema, templateSchemaErr
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Template) UnmarshalJSON(data []byte) error {
	fields, err := splitObject(data)
	if err != nil {
		return err
	}
	*t = Template{}
	if err := take(fields, keyLabel, &t.Label); err != nil {
		return err
	}
	for key, dst := range map[string]**TermRef{
		keyResourceClass:       &t.ResourceClass,
		keyTitleProperty:       &t.TitleProperty,
		keyDescriptionProperty: &t.DescriptionProperty,
	} {
		if err := take(fields, key, dst); err != nil {
			return err
		}
	}
	if err := take(fields, keyProperties, &t.Properties); err != nil {
		return err
	}
	t.Extra = fields
	return nil
}

// MarshalJSON implements json.Marshaler. Keys are emitted in sorted order.
func (t Template) MarshalJSON() ([]byte, error) {
	out := withExtra(t.Extra)
	setString(out, keyLabel, t.Label)
	if t.ResourceClass != nil {
		out[keyResourceClass] = t.ResourceClass
	}
	if t.TitleProperty != nil {
		out[keyTitleProperty] = t.TitleProperty
	}
	if t.DescriptionProperty != nil {
		out[keyDescriptionProperty] = t.DescriptionProperty
	}
	props := t.Properties
	if props == nil {
		props = []TemplateProperty{}
	}
	out[keyProperties] = props
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. A stale o:id is discarded.
func (r *TermRef) UnmarshalJSON(data []byte) error {
	fields, err := splitObject(data)
	if err != nil {
		return err
	}
	return r.decodeFields(fields)
}

func (r *TermRef) decodeFields(fields map[string]stdjson.RawMessage) error {
	*r = TermRef{}
	delete(fields, keyID)
	delete(fields, keyVocabularyPrefix)
	for key, dst := range map[string]*string{
		keyNamespaceURI:    &r.NamespaceURI,
		keyLocalName:       &r.LocalName,
		keyTermLabel:       &r.Label,
		keyVocabularyLabel: &r.VocabularyLabel,
	} {
		if err := take(fields, key, dst); err != nil {
			return err
		}
	}
	r.Extra = fields
	return nil
}

// MarshalJSON implements json.Marshaler
func (r TermRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields())
}

func (r TermRef) fields() map[string]interface{} {
	out := withExtra(r.Extra)
	if r.ID != 0 {
		out[keyID] = r.ID
	}
	setString(out, keyNamespaceURI, r.NamespaceURI)
	setString(out, keyLocalName, r.LocalName)
	setString(out, keyTermLabel, r.Label)
	setString(out, keyVocabularyLabel, r.VocabularyLabel)
	setString(out, keyVocabularyPrefix, r.VocabularyPrefix)
	return out
}

// UnmarshalJSON implements json.Unmarshaler. A stale o:property is
// discarded; o:data_type is kept until resolution derives it again.
func (p *TemplateProperty) UnmarshalJSON(data []byte) error {
	fields, err := splitObject(data)
	if err != nil {
		return err
	}
	*p = TemplateProperty{}
	delete(fields, keyProperty)
	if err := take(fields, keyDataTypes, &p.DataTypes); err != nil {
		return err
	}
	if err := take(fields, keyDataType, &p.DataTypeNames); err != nil {
		return err
	}
	return p.TermRef.decodeFields(fields)
}

// MarshalJSON implements json.Marshaler
func (p TemplateProperty) MarshalJSON() ([]byte, error) {
	out := p.TermRef.fields()
	// o:id only applies to class and title references
	delete(out, keyID)
	if p.PropertyID != 0 {
		out[keyProperty] = map[string]int{keyID: p.PropertyID}
	}
	if p.DataTypes != nil {
		out[keyDataTypes] = p.DataTypes
	}
	if p.DataTypeNames != nil {
		out[keyDataType] = p.DataTypeNames
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (d *DataType) UnmarshalJSON(data []byte) error {
	fields, err := splitObject(data)
	if err != nil {
		return err
	}
	*d = DataType{}
	if err := take(fields, keyName, &d.Name); err != nil {
		return err
	}
	if raw, ok := fields[keyTermLabel]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := take(fields, keyTermLabel, &d.Label); err != nil {
			return err
		}
	}
	d.Extra = fields
	return nil
}

// MarshalJSON implements json.Marshaler
func (d DataType) MarshalJSON() ([]byte, error) {
	out := withExtra(d.Extra)
	out[keyName] = d.Name
	if d.Label != nil {
		out[keyTermLabel] = *d.Label
	}
	return json.Marshal(out)
}

func splitObject(data []byte) (map[string]stdjson.RawMessage, error) {
	var fields map[string]stdjson.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]stdjson.RawMessage{}
	}
	return fields, nil
}

// take decodes fields[key] into dst and removes it. Missing keys and
// nulls leave dst untouched.
func take(fields map[string]stdjson.RawMessage, key string, dst interface{}) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	delete(fields, key)
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func withExtra(extra map[string]stdjson.RawMessage) map[string]interface{} {
	out := make(map[string]interface{}, len(extra)+8)
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func setString(out map[string]interface{}, key, value string) {
	if value != "" {
		out[key] = value
	}
}

// clone returns a copy that shares no slices or references with t. Extra
// maps are shared; they are never modified.
func (t *Template) clone() *Template {
	c := *t
	c.ResourceClass = cloneRef(t.ResourceClass)
	c.TitleProperty = cloneRef(t.TitleProperty)
	c.DescriptionProperty = cloneRef(t.DescriptionProperty)
	c.Properties = make([]TemplateProperty, len(t.Properties))
	for i, p := range t.Properties {
		p.DataTypes = slices.Clone(p.DataTypes)
		p.DataTypeNames = slices.Clone(p.DataTypeNames)
		c.Properties[i] = p
	}
	return &c
}

func cloneRef(r *TermRef) *TermRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
