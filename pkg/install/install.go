// Package install delegates the Omeka S installation to the application's
// own installer and obtains API credentials for the seeding stage.
package install

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/errors"
	"github.com/ngc-omeka/omeka-dist/pkg/logging"
	"github.com/ngc-omeka/omeka-dist/pkg/omeka"
	"github.com/ngc-omeka/omeka-dist/pkg/report"
)

// Settings are the instance-wide values passed to the installer
type Settings struct {
	Title    string
	Timezone string
}

// Stage runs the core installation
type Stage struct {
	installer omeka.Installer
	auth      omeka.Authenticator
	keys      omeka.KeySetter
	rep       report.Reporter
	logger    zerolog.Logger
}

// NewStage creates the install stage. Credentials issued after a
// successful installation are handed to keys.
func NewStage(installer omeka.Installer, auth omeka.Authenticator, keys omeka.KeySetter, rep report.Reporter) *Stage {
	return &Stage{
		installer: installer,
		auth:      auth,
		keys:      keys,
		rep:       rep,
		logger:    logging.GetLogger("install"),
	}
}

// Run installs Omeka S unless it is already installed. The boolean reports
// whether an installation took place. Every error is fatal.
func (s *Stage) Run(ctx context.Context, admin *config.AdminConfig, settings Settings) (bool, error) {
	installed, err := s.installer.IsInstalled(ctx)
	if err != nil {
		s.rep.Error("Could not determine installation status: %s", errors.Message(err))
		return false, errors.Wrap(err, errors.ErrInstallFailed, "status check failed").Fatal()
	}
	if installed {
		s.rep.Note("Omeka S is already installed. Skip...")
		return false, nil
	}

	if admin == nil {
		s.rep.Error("Admin user config not found in config.json.")
		return false, errors.New(errors.ErrConfigInvalid, "admin config not found").Fatal()
	}
	a := admin.WithDefaults()

	s.rep.Info("Installing Omeka S...")
	s.installer.RegisterVars(omeka.TaskCreateFirstUser, map[string]interface{}{
		"name":  a.Name,
		"email": a.Email,
		"password-confirm": map[string]interface{}{
			"password":         a.Password,
			"password-confirm": a.Password,
		},
	})
	s.installer.RegisterVars(omeka.TaskAddDefaultSettings, map[string]interface{}{
		"administrator_email": a.Email,
		"installation_title":  settings.Title,
		"time_zone":           settings.Timezone,
		"locale":              "",
	})

	ok, err := s.installer.Install(ctx)
	if err != nil {
		s.rep.Error("There were errors during installation.")
		s.rep.Error("%s", errors.Message(err))
		return false, errors.Wrap(err, errors.ErrInstallFailed, "installation failed").Fatal()
	}
	if !ok {
		s.rep.Error("There were errors during installation.")
		for _, msg := range s.installer.Errors() {
			s.rep.Error("%s", msg)
		}
		return false, errors.New(errors.ErrInstallFailed, "installation failed").
			WithDetail("errors", s.installer.Errors()).Fatal()
	}

	if err := s.Authenticate(ctx, admin); err != nil {
		return true, err
	}
	s.rep.Success("Omeka S has been installed successfully.")
	return true, nil
}

// Authenticate issues an API key for the admin user and passes it to the
// creation API client
func (s *Stage) Authenticate(ctx context.Context, admin *config.AdminConfig) error {
	if admin == nil {
		s.rep.Error("Admin user config not found in config.json.")
		return errors.New(errors.ErrConfigInvalid, "admin config not found").Fatal()
	}
	a := admin.WithDefaults()

	creds, err := s.auth.Authenticate(ctx, a.Email, a.Password)
	if err != nil {
		s.rep.Error("Authentication failed for %s: %s", a.Email, errors.Message(err))
		return errors.Wrap(err, errors.ErrAuthFailed, "authentication failed").Fatal()
	}
	s.keys.SetCredentials(creds)
	s.logger.Debug().Str("email", a.Email).Str("key_identity", creds.KeyIdentity).Msg("Authenticated")
	return nil
}
