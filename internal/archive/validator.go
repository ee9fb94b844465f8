package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Report is the outcome of structural validation. Counts are populated from
// whatever could be read even when Valid is false, so callers can show
// partial diagnostics.
type Report struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	ItemCount     int      `json:"itemCount"`
	TagCount      int      `json:"tagCount"`
	FileCount     int      `json:"fileCount"`
	TotalFileSize int64    `json:"totalFileSize"`

	// Manifest is the decoded manifest when it could be fully parsed; it is
	// reused by the importer to avoid a second decode.
	Manifest *Manifest `json:"-"`
}

// itemProbe distinguishes missing fields from empty ones. An empty content
// string is valid; an absent content field is not.
type itemProbe struct {
	ID      *string `json:"id"`
	Type    *string `json:"type"`
	Content *string `json:"content"`
}

// Validate structurally checks untrusted archive bytes. It never mutates any
// destination state and never panics on malformed input: every failure mode
// is converted into entries in the returned error list.
func Validate(data []byte) *Report {
	rep := &Report{Errors: []string{}}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		rep.Errors = append(rep.Errors, "file is not a valid archive")
		return rep
	}

	var manifestFile *zip.File
	for _, f := range zr.File {
		if f.Name == ManifestName {
			manifestFile = f
			break
		}
	}
	if manifestFile == nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("archive is missing %s", ManifestName))
		return rep
	}

	manifestBytes, err := readEntry(manifestFile)
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("failed to read %s: %v", ManifestName, err))
		return rep
	}

	var raw struct {
		Version *string         `json:"version"`
		Items   json.RawMessage `json:"items"`
		Tags    json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal(manifestBytes, &raw); err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("%s is not valid JSON: %v", ManifestName, err))
		return rep
	}

	// Structural checks. Each is independent; all run even when earlier ones
	// record errors.
	if raw.Version == nil {
		rep.Errors = append(rep.Errors, "manifest is missing the version field")
	}

	var items []itemProbe
	if raw.Items == nil || json.Unmarshal(raw.Items, &items) != nil {
		rep.Errors = append(rep.Errors, "manifest items is not a list")
	} else {
		rep.ItemCount = len(items)
		for i, it := range items {
			label := fmt.Sprintf("item %d", i)
			if it.ID != nil && *it.ID != "" {
				label = fmt.Sprintf("item %s", *it.ID)
			}
			if it.ID == nil || *it.ID == "" {
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: missing id", label))
			}
			if it.Type == nil || *it.Type == "" {
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: missing type", label))
			}
			if it.Content == nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: content is undefined", label))
			}
		}
	}

	var tags []json.RawMessage
	if raw.Tags == nil || json.Unmarshal(raw.Tags, &tags) != nil {
		rep.Errors = append(rep.Errors, "manifest tags is not a list")
	} else {
		rep.TagCount = len(tags)
	}

	// Enumerate every binary entry besides the manifest and the cosmetic
	// viewer, decompressing each fully to obtain its true size. This is the
	// dominant cost of validation and is done unconditionally.
	for _, f := range zr.File {
		if f.Name == ManifestName || f.Name == ViewerName || strings.HasSuffix(f.Name, "/") {
			continue
		}
		rep.FileCount++
		n, err := entrySize(f)
		if err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("failed to decompress entry %s: %v", f.Name, err))
			continue
		}
		rep.TotalFileSize += n
	}

	rep.Valid = len(rep.Errors) == 0

	// Best-effort full decode for reuse by the importer.
	var m Manifest
	if err := json.Unmarshal(manifestBytes, &m); err == nil {
		rep.Manifest = &m
	}
	return rep
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func entrySize(f *zip.File) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return io.Copy(io.Discard, rc)
}
