// Package archive implements the backup archive pipeline: a bidirectional
// transcoder between the live data set (items, tags, attachments) and a
// single portable ZIP file. The writer produces the archive, the validator
// structurally checks untrusted archives without side effects, and the
// importer replays a validated archive against a destination store with
// tag-ID remapping and per-entity failure accounting.
package archive

import (
	"path"
	"strings"
	"time"

	"github.com/selfhq/self/internal/models"
)

// Fixed entry names inside the archive container.
const (
	// ManifestName is the well-known manifest path shared by writer and reader.
	ManifestName = "manifest.json"
	// ViewerName is the cosmetic HTML rendering; it carries no data and is
	// excluded from binary-entry accounting.
	ViewerName = "index.html"
	// SchemaVersion is written by the producer and checked (not enforced)
	// by the consumer.
	SchemaVersion = "1.0"
)

// Binary bucket prefixes, selected by item type.
const (
	BucketImages = "images"
	BucketVideos = "videos"
	BucketFiles  = "files"
)

// ArchiveTagRef is an opaque, archive-scoped tag identity. It is never valid
// against a destination store; the importer builds an explicit remap table
// from it to StoreTagID.
type ArchiveTagRef string

// StoreTagID is a destination-scoped tag identity assigned by the store at
// creation time.
type StoreTagID string

// Manifest is the structured index inside an archive describing all items
// and tags.
type Manifest struct {
	Version    string       `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	Items      []ExportItem `json:"items"`
	Tags       []ExportTag  `json:"tags"`
}

// ExportItem is the archive's serializable snapshot of a live item. Its ID
// and tag references live in the archive-local identity space.
type ExportItem struct {
	ID          string          `json:"id"`
	Type        models.ItemType `json:"type"`
	Content     string          `json:"content"`
	HTMLContent string          `json:"htmlContent,omitempty"`
	Title       string          `json:"title,omitempty"`

	OGImage       string `json:"ogImage,omitempty"`
	OGTitle       string `json:"ogTitle,omitempty"`
	OGDescription string `json:"ogDescription,omitempty"`

	Tags []ArchiveTagRef `json:"tags"`

	IsFavorite  bool `json:"isFavorite"`
	IsEncrypted bool `json:"isEncrypted"`
	IsCode      bool `json:"isCode,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	// Attachment metadata; FilePath points into a binary bucket and is only
	// set when the bytes were actually written into the archive. Checksum is
	// the SHA-256 of those bytes.
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	FilePath string `json:"filePath,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}

// ExportTag is the archive's serializable snapshot of a tag.
type ExportTag struct {
	ID           ArchiveTagRef `json:"id"`
	Name         string        `json:"name"`
	Color        string        `json:"color,omitempty"`
	AutoKeywords []string      `json:"autoKeywords,omitempty"`
}

// bucketFor maps an item type to its binary bucket prefix.
func bucketFor(t models.ItemType) string {
	switch t {
	case models.TypeImage:
		return BucketImages
	case models.TypeVideo:
		return BucketVideos
	default:
		return BucketFiles
	}
}

// entryPath builds the deterministic archive path for an item's attachment:
// {bucket}/{itemID}.{ext}, with the extension taken from the original file
// name and defaulting to "bin".
func entryPath(itemID string, t models.ItemType, fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = "bin"
	}
	return bucketFor(t) + "/" + itemID + "." + ext
}
