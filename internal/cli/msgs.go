package cli

// Command descriptions
const (
	MsgRootShort = "Install an Omeka S distribution"
	MsgRootLong  = `omeka-dist installs an Omeka S distribution described by distribution.json:
it downloads the core, modules and themes, writes the database
configuration, runs the Omeka S installer and seeds the instance with
vocabularies, taxonomies, resource templates and a site.

The distribution root defaults to $OMEKA_DIST_ROOT, then the current
directory.`

	MsgInstallShort = "Install the distribution"
	MsgInstallLong  = `Install removes any existing public/ directory, downloads and extracts
the Omeka S core with every module and theme, writes
public/config/database.ini, installs Omeka S unless it is already
installed and seeds it.

Failures of individual modules, themes or seed items are reported and the
run completes with errors. Failures of the core download, the
configuration files or the Omeka S installer stop the run.`
	MsgInstallExample = `  # Install from the current directory
  omeka-dist install

  # Install another distribution and check the database first
  omeka-dist install --root /srv/omeka --check-db`

	MsgResolveShort = "Resolve a resource template against the live installation"
	MsgResolveLong  = `Resolve decodes a resource template file, replaces its vocabulary,
class, property and custom vocabulary references with the identifiers of
the installation and prints the resulting payload. Nothing is created.`
	MsgResolveExample = `  omeka-dist resolve resource_templates/photograph.json`

	MsgCheckShort = "Check the database credentials in public/config/database.ini"

	MsgManifestShort = "Validate distribution.json and print it as YAML"

	MsgGenConfigShort   = "Generate a sample config.toml"
	MsgGenConfigLong    = "Output a sample configuration with every setting at its default value."
	MsgGenConfigExample = `  omeka-dist genconfig        # Output to stdout
  omeka-dist genconfig -w     # Write to config/config.toml`

	MsgVersionShort = "Print version information"
)

// Output messages
const (
	MsgUsingFallbackRoot = "Warning: OMEKA_DIST_ROOT not set and --root not given.\nUsing current directory: %s\n\n"
	MsgDatabaseOK        = "Database connection verified."
	MsgConfigExists      = "%s already exists. Remove it first or print to stdout."
	MsgConfigWritten     = "Sample configuration written to %s."
)
