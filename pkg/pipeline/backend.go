package pipeline

import (
	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka/api"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka/bridge"
	"github.com/ngc-omeka/omeka-dist/pkg/paths"
)

// CreationAPI is the object-creation API together with the hook that
// receives credentials issued during the run
type CreationAPI interface {
	omeka.API
	omeka.KeySetter
}

// Backend bundles the collaborators that reach an Omeka S installation
type Backend struct {
	API       CreationAPI
	Installer omeka.Installer
	Auth      omeka.Authenticator
	Modules   omeka.ModuleRegistry
	Importer  omeka.RdfImporter
	Close     func() error
}

// BackendFactory builds the backend once the configuration is loaded and
// the core is in place
type BackendFactory func(cfg *config.Config, layout paths.Paths) (*Backend, error)

// OmekaBackend reaches the installation through its REST API and the PHP
// bridge
func OmekaBackend(cfg *config.Config, layout paths.Paths) (*Backend, error) {
	var opts []bridge.Option
	if cfg.Bridge.Script != "" {
		opts = append(opts, bridge.WithScript(cfg.Bridge.Script))
	}
	br := bridge.New(cfg.Bridge.PHP, layout.PublicDir(), opts...)

	client := api.New(cfg.API.URL, omeka.Credentials{
		KeyIdentity:   cfg.API.KeyIdentity,
		KeyCredential: cfg.API.KeyCredential,
	})

	return &Backend{
		API:       client,
		Installer: br.Installer(),
		Auth:      br,
		Modules:   br.Modules(),
		Importer:  br,
		Close:     br.Close,
	}, nil
}
