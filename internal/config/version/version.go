package version

// Build metadata. Release builds override these with -ldflags -X.
var (
	Version      = "0.1.0"            // Version of cef-composer
	Toolname     = "cef-composer-dev" // Name of the tool
	Organization = "unknown"          // Organization that built the tool
	BuildDate    = "unknown"          // Date when the tool was built
	CommitSHA    = "unknown"          // Commit SHA of the tool
)
