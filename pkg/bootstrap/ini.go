package bootstrap

import (
	"bytes"
	"strings"
	"text/template"

	"gopkg.in/ini.v1"

	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/errors"
)

var databaseIniTemplate = template.Must(template.New("database.ini").Parse(
	`host = "{{.Host}}"
port = "{{.Port}}"
user = "{{.Username}}"
password = "{{.Password}}"
dbname = "{{.Database}}"
`))

// RenderDatabaseIni renders the credentials file Omeka S reads at boot.
// Defaults are applied to empty fields. Values that cannot be written
// inside double quotes are rejected.
func RenderDatabaseIni(db config.DBConfig) ([]byte, error) {
	db = db.WithDefaults()

	fields := map[string]string{
		"host":     db.Host,
		"port":     db.Port,
		"username": db.Username,
		"password": db.Password,
		"database": db.Database,
	}
	for name, value := range fields {
		if strings.ContainsAny(value, "\"\r\n") {
			return nil, errors.Newf(errors.ErrConfigInvalid,
				"db.%s contains a double quote or line break", name).Fatal()
		}
	}

	var buf bytes.Buffer
	if err := databaseIniTemplate.Execute(&buf, db); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render database.ini").Fatal()
	}
	return buf.Bytes(), nil
}

// ReadCredentials parses an existing database.ini
func ReadCredentials(path string) (config.DBConfig, error) {
	file, err := ini.Load(path)
	if err != nil {
		return config.DBConfig{}, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read %s", path)
	}
	section := file.Section(ini.DefaultSection)
	return config.DBConfig{
		Host:     section.Key("host").String(),
		Port:     section.Key("port").String(),
		Username: section.Key("user").String(),
		Password: section.Key("password").String(),
		Database: section.Key("dbname").String(),
	}, nil
}
