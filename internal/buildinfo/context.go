// Package buildinfo holds build-time metadata injected at startup.
package buildinfo

// UnknownValue is reported for metadata that was not set at build time
const UnknownValue = "unknown"

// ProjectName identifies the service in API banners and telemetry
const ProjectName = "image-analyzer"

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
	GetProject() string
}

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// GetProject implements BuildInfo.GetProject
func (c *Context) GetProject() string {
	return ProjectName
}
