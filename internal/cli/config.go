package cli

// Config holds the configuration for the CLI generator
type Config struct {
	// Directories is the list of directories to scan for annotated Go files
	Directories []string

	// ModuleName is the custom module name for imports
	// If empty, will be determined from go.mod file
	ModuleName string

	// WebPackage is the package name that roots action URLs
	WebPackage string

	// Check reports stale generated files instead of writing them
	Check bool

	// WorkDir is where go.mod lookup starts; empty means the working directory
	WorkDir string

	Verbose bool
}
