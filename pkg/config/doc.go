// Package config handles deployment configuration for omeka-dist.
//
// Configuration is layered with koanf, later sources overriding earlier ones:
//
//  1. embedded defaults (embedded/defaults.toml)
//  2. config/config.json or config/config.toml in the distribution root
//  3. OMEKA_DIST_* environment variables, "__" separating nested keys
//     (OMEKA_DIST_DB__HOST sets db.host)
//
// The db, admin and site sections have no embedded defaults. A section that
// is absent decodes to nil so that the stage needing it can fail with a
// clear message; field-level defaults are applied by the With* helpers.
package config
