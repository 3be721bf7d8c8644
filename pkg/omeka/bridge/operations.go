package bridge

import (
	"context"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
)

// Installer drives the Omeka S installer through the bridge
type Installer struct {
	client *Client
	vars   map[string]map[string]interface{}
	errors []string
}

// Installer returns an installer bound to this client
func (c *Client) Installer() *Installer {
	return &Installer{client: c, vars: map[string]map[string]interface{}{}}
}

type statusResult struct {
	Installed bool `json:"installed"`
}

// IsInstalled asks the installation whether it has been installed
func (i *Installer) IsInstalled(ctx context.Context) (bool, error) {
	response, err := i.client.Call(ctx, OpStatus, nil)
	if err != nil {
		return false, err
	}
	var status statusResult
	if err := i.client.decode(OpStatus, response, &status); err != nil {
		return false, err
	}
	return status.Installed, nil
}

// RegisterVars stores variables for an installation task. They are sent
// with the next Install call.
func (i *Installer) RegisterVars(task string, vars map[string]interface{}) {
	i.vars[task] = vars
}

// Install runs the installer with every registered task variable. A false
// result with a nil error means the installer reported errors, available
// from Errors.
func (i *Installer) Install(ctx context.Context) (bool, error) {
	i.errors = nil
	response, err := i.client.Call(ctx, OpInstall, map[string]interface{}{"tasks": i.vars})
	if err != nil {
		if response != nil {
			i.errors = response.Errors
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Errors returns the errors reported by the last Install call
func (i *Installer) Errors() []string {
	return i.errors
}

// ModuleRegistry reads and installs modules through the bridge
type ModuleRegistry struct {
	client *Client
}

// Modules returns a module registry bound to this client
func (c *Client) Modules() *ModuleRegistry {
	return &ModuleRegistry{client: c}
}

// GetModule returns the registry entry for name, or nil when unknown
func (m *ModuleRegistry) GetModule(ctx context.Context, name string) (*omeka.Module, error) {
	response, err := m.client.Call(ctx, OpModuleGet, map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	var module *omeka.Module
	if err := m.client.decode(OpModuleGet, response, &module); err != nil {
		return nil, err
	}
	return module, nil
}

// Install installs and activates a module
func (m *ModuleRegistry) Install(ctx context.Context, module *omeka.Module) error {
	if module == nil {
		return errors.New(errors.ErrInvalidInput, "module is nil")
	}
	_, err := m.client.Call(ctx, OpModuleInstall, map[string]string{"id": module.ID})
	return err
}

// Import runs the RDF importer
func (c *Client) Import(ctx context.Context, sourceKind string, metadata, options map[string]interface{}) error {
	_, err := c.Call(ctx, OpVocabularyImport, map[string]interface{}{
		"source":   sourceKind,
		"metadata": metadata,
		"options":  options,
	})
	return err
}

// Authenticate verifies the user's password and issues an API key
func (c *Client) Authenticate(ctx context.Context, email, password string) (omeka.Credentials, error) {
	response, err := c.Call(ctx, OpAuthKey, map[string]string{"email": email, "password": password})
	if err != nil {
		return omeka.Credentials{}, errors.Wrapf(err, errors.ErrAuthFailed, "authenticate %s", email)
	}
	var creds omeka.Credentials
	if err := c.decode(OpAuthKey, response, &creds); err != nil {
		return omeka.Credentials{}, err
	}
	if creds.Empty() {
		return omeka.Credentials{}, errors.Newf(errors.ErrAuthFailed, "authenticate %s: no key issued", email)
	}
	return creds, nil
}
