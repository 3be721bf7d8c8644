package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/ngc-omeka/omeka-dist/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/ngc-omeka/omeka-dist/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/ngc-omeka/omeka-dist/internal/version.Date={{.Date}}
)

// String returns a one-line version description
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
