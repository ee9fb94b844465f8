// Package blob defines the attachment storage abstraction.
package blob

// Provider is the interface for binary attachment operations. Keys are
// opaque relative paths assigned at capture time.
type Provider interface {
	// Read returns the raw bytes stored under key.
	Read(key string) ([]byte, error)
	// Write atomically stores content under key.
	Write(key string, content []byte) error
	// Delete removes the blob stored under key.
	Delete(key string) error
	// Exists reports whether a blob is stored under key.
	Exists(key string) bool
}
