// Package omeka defines the boundary to an Omeka S installation: the
// collaborators the provisioning stages call and the records they exchange.
//
// Two implementations exist. Package api talks to the REST API for object
// creation and search; package bridge runs a PHP script inside the
// installation for the installer, module manager, RDF importer and API-key
// issuance, which the REST API does not expose.
package omeka

import (
	"context"
	"encoding/json"
)

// Resource names used by the provisioning stages
const (
	ResourceVocabularies      = "vocabularies"
	ResourceProperties        = "properties"
	ResourceClasses           = "resource_classes"
	ResourceTemplates         = "resource_templates"
	ResourceCustomVocabs      = "custom_vocabs"
	ResourceSites             = "sites"
	RdfImportSourceFile       = "file"
	ModuleStateNotInstalled   = "not_installed"
	ModuleStateActive         = "active"
	TaskCreateFirstUser       = `Omeka\Installation\Task\CreateFirstUserTask`
	TaskAddDefaultSettings    = `Omeka\Installation\Task\AddDefaultSettingsTask`
	CustomVocabDataTypePrefix = "customvocab:"
)

// Resource is one API object. Only the fields the provisioning stages read
// are decoded; Raw keeps the full representation.
type Resource struct {
	ID           int             `json:"o:id"`
	Label        string          `json:"o:label,omitempty"`
	Title        string          `json:"o:title,omitempty"`
	Slug         string          `json:"o:slug,omitempty"`
	Prefix       string          `json:"o:prefix,omitempty"`
	NamespaceURI string          `json:"o:namespace_uri,omitempty"`
	LocalName    string          `json:"o:local_name,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

// Module is a module registry entry
type Module struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	State   string `json:"state"`
}

// Credentials is an API key
type Credentials struct {
	KeyIdentity   string `json:"key_identity"`
	KeyCredential string `json:"key_credential"`
}

// Empty reports whether no key is set
func (c Credentials) Empty() bool {
	return c.KeyIdentity == "" || c.KeyCredential == ""
}

// Query is a set of search parameters
type Query map[string]string

// API creates and searches objects
type API interface {
	Create(ctx context.Context, resource string, payload interface{}) (*Resource, error)
	Search(ctx context.Context, resource string, query Query) ([]Resource, error)
	// SearchOne returns nil when nothing matches
	SearchOne(ctx context.Context, resource string, query Query) (*Resource, error)
}

// Installer drives the application's installation routine
type Installer interface {
	IsInstalled(ctx context.Context) (bool, error)
	RegisterVars(task string, vars map[string]interface{})
	Install(ctx context.Context) (bool, error)
	Errors() []string
}

// ModuleRegistry looks up and installs modules
type ModuleRegistry interface {
	// GetModule returns nil when the module is unknown
	GetModule(ctx context.Context, name string) (*Module, error)
	Install(ctx context.Context, module *Module) error
}

// RdfImporter imports an RDF vocabulary file
type RdfImporter interface {
	Import(ctx context.Context, sourceKind string, metadata map[string]interface{}, options map[string]interface{}) error
}

// Authenticator issues API credentials for a user
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Credentials, error)
}

// KeySetter accepts credentials obtained after installation
type KeySetter interface {
	SetCredentials(creds Credentials)
}
