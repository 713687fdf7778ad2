package version

// Build metadata, overridden with -ldflags "-X pricesync/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)
