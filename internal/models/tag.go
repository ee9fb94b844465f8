package models

import "time"

// Tag is a user-defined label for organizing items.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`

	// AutoKeywords drive upstream auto-classification; the backup pipeline
	// carries them through without interpreting them.
	AutoKeywords []string `json:"auto_keywords,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
