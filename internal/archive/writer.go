package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/selfhq/self/internal/checksum"
	"github.com/selfhq/self/internal/models"
)

// Source provides full-batch reads of the live data set.
type Source interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
}

// AttachmentSource fetches attachment bytes by key. A per-key failure is
// non-fatal to export.
type AttachmentSource interface {
	FetchAttachment(ctx context.Context, key string) ([]byte, error)
}

// Writer builds a backup archive from the live store. It never mutates
// anything; its only side effects are the accessor reads.
type Writer struct {
	src         Source
	attachments AttachmentSource
	logger      *slog.Logger
	now         func() time.Time
}

// NewWriter creates a Writer over the given accessors.
func NewWriter(src Source, attachments AttachmentSource, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{src: src, attachments: attachments, logger: logger, now: time.Now}
}

// Export reads the full data set and returns the finalized archive bytes.
// It fails only when a batch read fails; a failed attachment fetch is logged
// and the owning item is exported without its attachment.
func (w *Writer) Export(ctx context.Context, report ProgressFunc) ([]byte, error) {
	report.report(Progress{Phase: PhaseFetchingItems, Message: "fetching items and tags"})

	items, err := w.src.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: list items: %w", err)
	}
	tags, err := w.src.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: list tags: %w", err)
	}

	report.report(Progress{
		Phase:   PhaseFetchingItems,
		Current: len(items),
		Total:   len(items),
		Message: fmt.Sprintf("fetched %d items and %d tags", len(items), len(tags)),
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	withFiles := 0
	for i := range items {
		if items[i].HasAttachment() {
			withFiles++
		}
	}

	manifest := Manifest{
		Version:    SchemaVersion,
		ExportedAt: w.now().UTC(),
		Items:      make([]ExportItem, 0, len(items)),
		Tags:       make([]ExportTag, 0, len(tags)),
	}

	done := 0
	for i := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("archive: export cancelled: %w", err)
		}
		snap := snapshotItem(&items[i])

		if items[i].HasAttachment() {
			data, fetchErr := w.attachments.FetchAttachment(ctx, items[i].AttachmentKey)
			if fetchErr != nil {
				w.logger.Warn("export: attachment fetch failed, exporting item without it",
					slog.String("item", items[i].ID),
					slog.String("key", items[i].AttachmentKey),
					slog.String("error", fetchErr.Error()))
			} else {
				p := entryPath(items[i].ID, items[i].Type, items[i].FileName)
				if err := writeEntry(zw, p, data); err != nil {
					return nil, fmt.Errorf("archive: write entry %s: %w", p, err)
				}
				snap.FilePath = p
				snap.Checksum = checksum.Sum(data)
			}
			done++
			report.report(Progress{
				Phase:   PhaseDownloadingFiles,
				Current: done,
				Total:   withFiles,
				Message: fmt.Sprintf("downloading attachments (%d/%d)", done, withFiles),
			})
		}

		manifest.Items = append(manifest.Items, snap)
	}

	for _, t := range tags {
		manifest.Tags = append(manifest.Tags, ExportTag{
			ID:           ArchiveTagRef(t.ID),
			Name:         t.Name,
			Color:        t.Color,
			AutoKeywords: t.AutoKeywords,
		})
	}

	report.report(Progress{Phase: PhaseCreatingZip, Current: 0, Total: 100, Message: "creating archive"})

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("archive: marshal manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestName, manifestJSON); err != nil {
		return nil, fmt.Errorf("archive: write manifest: %w", err)
	}

	// Cosmetic, human-viewable rendering. Failures here never abort an export.
	if viewer, vErr := renderViewer(&manifest); vErr == nil {
		if err := writeEntry(zw, ViewerName, viewer); err != nil {
			w.logger.Warn("export: viewer entry write failed", slog.String("error", err.Error()))
		}
	} else {
		w.logger.Warn("export: viewer rendering failed", slog.String("error", vErr.Error()))
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: finalize: %w", err)
	}

	report.report(Progress{Phase: PhaseCreatingZip, Current: 100, Total: 100, Message: "archive ready"})
	return buf.Bytes(), nil
}

// snapshotItem converts a live item into its archive representation. The
// live tag IDs become archive-local references; FilePath is set by the
// caller once the attachment bytes are actually in the archive.
func snapshotItem(item *models.Item) ExportItem {
	refs := make([]ArchiveTagRef, 0, len(item.Tags))
	for _, id := range item.Tags {
		refs = append(refs, ArchiveTagRef(id))
	}
	snap := ExportItem{
		ID:            item.ID,
		Type:          item.Type,
		Content:       item.Content,
		HTMLContent:   item.HTMLContent,
		Title:         item.Title,
		OGImage:       item.OGImage,
		OGTitle:       item.OGTitle,
		OGDescription: item.OGDescription,
		Tags:          refs,
		IsFavorite:    item.IsFavorite,
		IsEncrypted:   item.IsEncrypted,
		IsCode:        item.IsCode,
		CreatedAt:     item.CreatedAt,
	}
	if item.HasAttachment() {
		snap.FileName = item.FileName
		snap.FileSize = item.FileSize
		snap.MimeType = item.MimeType
	}
	return snap
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}
