package config

// Config is the deployment configuration of one distribution
type Config struct {
	DB         *DBConfig    `koanf:"db" toml:"db,omitempty"`
	Admin      *AdminConfig `koanf:"admin" toml:"admin,omitempty"`
	Title      string       `koanf:"title" toml:"title"`
	Timezone   string       `koanf:"timezone" toml:"timezone"`
	Site       *SiteConfig  `koanf:"site" toml:"site,omitempty"`
	ApacheUser string       `koanf:"apache_user" toml:"apache_user"`
	API        APIConfig    `koanf:"api" toml:"api"`
	Bridge     BridgeConfig `koanf:"bridge" toml:"bridge"`
}

// DBConfig holds the database credentials written to database.ini
type DBConfig struct {
	Host     string `koanf:"host" toml:"host"`
	Port     string `koanf:"port" toml:"port"`
	Username string `koanf:"username" toml:"username"`
	Password string `koanf:"password" toml:"password"`
	Database string `koanf:"database" toml:"database"`
}

// AdminConfig describes the first Omeka S user
type AdminConfig struct {
	Name     string `koanf:"name" toml:"name"`
	Email    string `koanf:"email" toml:"email"`
	Password string `koanf:"password" toml:"password"`
}

// SiteConfig describes the site created during seeding
type SiteConfig struct {
	Title   string `koanf:"title" toml:"title"`
	Slug    string `koanf:"slug" toml:"slug"`
	Summary string `koanf:"summary" toml:"summary"`
	Theme   string `koanf:"theme" toml:"theme"`
}

// APIConfig locates the Omeka S REST API. When KeyIdentity and
// KeyCredential are empty an API key is issued for the admin user.
type APIConfig struct {
	URL           string `koanf:"url" toml:"url"`
	KeyIdentity   string `koanf:"key_identity" toml:"key_identity"`
	KeyCredential string `koanf:"key_credential" toml:"key_credential"`
}

// HasKey reports whether a complete API key is configured
func (a APIConfig) HasKey() bool {
	return a.KeyIdentity != "" && a.KeyCredential != ""
}

// BridgeConfig controls the PHP process used to reach Omeka S internals
type BridgeConfig struct {
	PHP    string `koanf:"php" toml:"php"`
	Script string `koanf:"script" toml:"script,omitempty"`
}

// Field defaults
const (
	DefaultDBHost     = "localhost"
	DefaultDBPort     = "3306"
	DefaultDBUser     = "root"
	DefaultDBPassword = ""
	DefaultDBName     = "omeka_s"

	DefaultAdminName     = "admin"
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "password"

	DefaultTitle      = "Omeka S"
	DefaultTimezone   = "UTC"
	DefaultApacheUser = "www-data"

	DefaultSiteTitle = "My Site"
	DefaultSiteTheme = "default"
)

// IsZero reports whether no field is set. An empty db section counts as
// missing.
func (d DBConfig) IsZero() bool {
	return d == DBConfig{}
}

// WithDefaults returns a copy with every empty field defaulted
func (d DBConfig) WithDefaults() DBConfig {
	if d.Host == "" {
		d.Host = DefaultDBHost
	}
	if d.Port == "" {
		d.Port = DefaultDBPort
	}
	if d.Username == "" {
		d.Username = DefaultDBUser
	}
	if d.Database == "" {
		d.Database = DefaultDBName
	}
	return d
}

// WithDefaults returns a copy with every empty field defaulted
func (a AdminConfig) WithDefaults() AdminConfig {
	if a.Name == "" {
		a.Name = DefaultAdminName
	}
	if a.Email == "" {
		a.Email = DefaultAdminEmail
	}
	if a.Password == "" {
		a.Password = DefaultAdminPassword
	}
	return a
}

// WithDefaults returns a copy with title and theme defaulted. Slug and
// summary default to empty strings.
func (s SiteConfig) WithDefaults() SiteConfig {
	if s.Title == "" {
		s.Title = DefaultSiteTitle
	}
	if s.Theme == "" {
		s.Theme = DefaultSiteTheme
	}
	return s
}

// InstanceTitle returns the installation title, defaulted
func (c *Config) InstanceTitle() string {
	if c.Title == "" {
		return DefaultTitle
	}
	return c.Title
}

// InstanceTimezone returns the installation time zone, defaulted
func (c *Config) InstanceTimezone() string {
	if c.Timezone == "" {
		return DefaultTimezone
	}
	return c.Timezone
}

// ServiceUser returns the account that should own writable directories
func (c *Config) ServiceUser() string {
	if c.ApacheUser == "" {
		return DefaultApacheUser
	}
	return c.ApacheUser
}

// Sample returns a fully populated configuration for genconfig
func Sample() *Config {
	db := DBConfig{}.WithDefaults()
	admin := AdminConfig{}.WithDefaults()
	site := SiteConfig{Slug: "my-site"}.WithDefaults()
	return &Config{
		DB:         &db,
		Admin:      &admin,
		Title:      DefaultTitle,
		Timezone:   DefaultTimezone,
		Site:       &site,
		ApacheUser: DefaultApacheUser,
		API:        APIConfig{URL: "http://localhost"},
		Bridge:     BridgeConfig{PHP: "php"},
	}
}
