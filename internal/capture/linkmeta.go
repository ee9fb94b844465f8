package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// OGMetadata holds the Open Graph fields extracted from a link target.
type OGMetadata struct {
	Title       string
	Description string
	Image       string
}

// maxOGBody caps how much of a page is read while looking for meta tags.
const maxOGBody = 1 << 20 // 1 MB

// OGFetcher resolves Open Graph metadata for a URL. Implementations are
// best-effort; a nil fetcher or any error simply leaves the fields empty.
type OGFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*OGMetadata, error)
}

// HTTPOGFetcher fetches the page over HTTP and parses its meta tags.
type HTTPOGFetcher struct {
	Client *http.Client
}

// Fetch downloads the page head and extracts og:title/og:description/og:image.
func (f *HTTPOGFetcher) Fetch(ctx context.Context, rawURL string) (*OGMetadata, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return ExtractOG(io.LimitReader(resp.Body, maxOGBody))
}

// ExtractOG parses HTML and returns its Open Graph metadata, falling back to
// the <title> element when og:title is absent.
func ExtractOG(r io.Reader) (*OGMetadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	meta := &OGMetadata{}
	var pageTitle string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				prop, content := metaAttrs(n)
				switch prop {
				case "og:title":
					if meta.Title == "" {
						meta.Title = content
					}
				case "og:description":
					if meta.Description == "" {
						meta.Description = content
					}
				case "og:image":
					if meta.Image == "" {
						meta.Image = content
					}
				}
			case "title":
				if pageTitle == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					pageTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if meta.Title == "" {
		meta.Title = pageTitle
	}
	return meta, nil
}

func metaAttrs(n *html.Node) (prop, content string) {
	for _, a := range n.Attr {
		switch a.Key {
		case "property", "name":
			if prop == "" {
				prop = a.Val
			}
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	return prop, content
}
