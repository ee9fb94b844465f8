package api

import (
	"github.com/selfhq/self/internal/models"
)

// CreateItemRequest is the JSON request body for creating a text or link item.
// Items with binary payloads use the multipart form variant instead.
type CreateItemRequest struct {
	Type        string   `json:"type,omitempty"`
	Content     string   `json:"content"`
	HTMLContent string   `json:"html_content,omitempty"`
	Title       string   `json:"title,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsFavorite  bool     `json:"is_favorite,omitempty"`
	IsEncrypted bool     `json:"is_encrypted,omitempty"`
	IsCode      bool     `json:"is_code,omitempty"`
}

// UpdateItemRequest is the request body for updating an item. Nil pointers
// leave the corresponding field unchanged.
type UpdateItemRequest struct {
	Content     *string   `json:"content,omitempty"`
	HTMLContent *string   `json:"html_content,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	IsFavorite  *bool     `json:"is_favorite,omitempty"`
	IsCode      *bool     `json:"is_code,omitempty"`
}

// TagRequest is the request body for creating or updating a tag.
type TagRequest struct {
	Name         string   `json:"name"`
	Color        string   `json:"color,omitempty"`
	AutoKeywords []string `json:"auto_keywords,omitempty"`
}

// ItemListResponse wraps paginated item listings.
type ItemListResponse struct {
	Items []models.Item `json:"items"`
	Total int           `json:"total"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}
