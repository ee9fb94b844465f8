package archive

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// renderViewer produces the cosmetic index.html bundled with an archive: a
// Markdown summary of the manifest rendered to HTML. It carries no data the
// reader depends on.
func renderViewer(m *Manifest) ([]byte, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "# Self backup\n\n")
	fmt.Fprintf(&md, "Exported %s — %d items, %d tags.\n\n",
		m.ExportedAt.Format("2006-01-02 15:04 MST"), len(m.Items), len(m.Tags))

	if len(m.Tags) > 0 {
		md.WriteString("## Tags\n\n")
		for _, t := range m.Tags {
			fmt.Fprintf(&md, "- %s\n", t.Name)
		}
		md.WriteString("\n")
	}

	if len(m.Items) > 0 {
		md.WriteString("## Items\n\n")
		for _, it := range m.Items {
			label := it.Title
			if label == "" {
				label = firstLine(it.Content)
			}
			if label == "" {
				label = it.ID
			}
			fmt.Fprintf(&md, "- **%s** (%s)", label, it.Type)
			if it.FilePath != "" {
				fmt.Fprintf(&md, " — [%s](%s)", it.FileName, it.FilePath)
			}
			md.WriteString("\n")
		}
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(md.String()), &html); err != nil {
		return nil, err
	}
	return html.Bytes(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80] + "…"
	}
	return s
}
