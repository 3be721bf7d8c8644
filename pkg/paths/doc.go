// Package paths provides centralized path handling for omeka-dist.
//
// A distribution root is the directory that carries the manifest and the
// bundled seed data:
//
//	distribution.json         declared packages and seed content
//	config/config.json        deployment configuration
//	config/local.config.php   optional Omeka S override, copied verbatim
//	vocabularies/             RDF vocabulary files
//	taxonomies/               custom vocabulary JSON documents
//	resource_templates/       resource template JSON documents
//	public/                   the Omeka S installation (recreated each run)
//
// # Environment Variables
//
//   - OMEKA_DIST_ROOT: distribution root (default: current directory)
package paths
