package capture

import (
	"net/url"
	"strings"

	"github.com/selfhq/self/internal/models"
)

// DetectType classifies pasted content: anything that parses as an absolute
// http(s) URL with a host becomes a link, everything else is text.
func DetectType(content string) models.ItemType {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\n") {
		return models.TypeText
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return models.TypeText
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return models.TypeLink
	}
	return models.TypeText
}

// TypeForMime maps a sniffed MIME type to the item type bucket used for
// file captures.
func TypeForMime(mime string) models.ItemType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return models.TypeImage
	case strings.HasPrefix(mime, "video/"):
		return models.TypeVideo
	default:
		return models.TypeFile
	}
}
