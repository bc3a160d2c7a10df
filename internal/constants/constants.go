// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Web server constants
const (
	// DefaultWebPort is the default port for the web server
	DefaultWebPort = 8080

	// DefaultWebHost is the default bind host for the web server
	DefaultWebHost = "0.0.0.0"

	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// AI analyzer constants
const (
	// AnalyzerMaxImageSize is the maximum dimension (width or height) sent to analyzers
	AnalyzerMaxImageSize = 800

	// AnalyzerMaxRetries is the number of attempts to get parseable analyzer output
	AnalyzerMaxRetries = 5
)
