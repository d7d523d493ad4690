// Package source provides the debug log line sources. The journal and
// serial implementations are equivalent from the core's perspective:
// both deliver batches of complete lines and fail stop.
package source

// LineSource produces textual debug log lines.
type LineSource interface {
	// Poll blocks for up to the source's own timeout and returns any
	// complete lines read, possibly none. A non-nil error means the
	// source is permanently unusable and ingestion must stop.
	Poll() ([]string, error)

	// Close releases the underlying resources.
	Close() error
}
