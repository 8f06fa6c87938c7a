// Package runtime assembles the dispatch engine from configuration and
// carries runtime metadata separate from user configuration.
package runtime

// Context contains runtime metadata that is not user-configurable.
// This data is injected at application startup and should not be part
// of the configuration system.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}
