// Package models defines the domain types for Self.
package models

import "time"

// ItemType classifies a captured item.
type ItemType string

const (
	TypeText  ItemType = "text"
	TypeLink  ItemType = "link"
	TypeImage ItemType = "image"
	TypeVideo ItemType = "video"
	TypeFile  ItemType = "file"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case TypeText, TypeLink, TypeImage, TypeVideo, TypeFile:
		return true
	}
	return false
}

// Item represents one captured piece of content in the feed.
type Item struct {
	ID          string   `json:"id"`
	Type        ItemType `json:"type"`
	Content     string   `json:"content"`
	HTMLContent string   `json:"html_content,omitempty"`
	Title       string   `json:"title,omitempty"`

	// Rich-link metadata, populated for link items when available.
	OGImage       string `json:"og_image,omitempty"`
	OGTitle       string `json:"og_title,omitempty"`
	OGDescription string `json:"og_description,omitempty"`

	// Tags holds tag IDs, not names.
	Tags []string `json:"tags"`

	IsFavorite  bool `json:"is_favorite"`
	IsEncrypted bool `json:"is_encrypted"`
	IsCode      bool `json:"is_code,omitempty"`

	// Attachment metadata; AttachmentKey is empty for items without one.
	AttachmentKey string `json:"attachment_key,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	FileSize      int64  `json:"file_size,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAttachment reports whether the item owns a stored binary payload.
func (i *Item) HasAttachment() bool {
	return i.AttachmentKey != ""
}
