package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/selfhq/self/internal/checksum"
	"github.com/selfhq/self/internal/models"
)

// TagDraft is the payload for creating a tag in the destination store. The
// archive-local id is deliberately absent: the store assigns a new identity.
type TagDraft struct {
	Name         string
	Color        string
	AutoKeywords []string
}

// ItemDraft is the payload for creating an item in the destination store.
// Tag references have already been remapped into the destination identity
// space.
type ItemDraft struct {
	Type        models.ItemType
	Content     string
	HTMLContent string
	Title       string

	OGImage       string
	OGTitle       string
	OGDescription string

	Tags []StoreTagID

	IsFavorite  bool
	IsEncrypted bool
	IsCode      bool

	FileName string
	FileSize int64
	MimeType string

	CreatedAt time.Time
}

// Attachment carries the binary payload extracted from the archive for
// upload alongside its item.
type Attachment struct {
	Data     []byte
	MimeType string
	FileName string
}

// TagCreator creates a tag in the destination store and returns its newly
// assigned identity. A per-call failure is non-fatal to import.
type TagCreator interface {
	CreateTag(ctx context.Context, draft TagDraft) (StoreTagID, error)
}

// ItemCreator creates an item in the destination store, performing any
// attachment upload as a side effect. A per-call failure is non-fatal to
// import.
type ItemCreator interface {
	CreateItem(ctx context.Context, draft ItemDraft, attachment *Attachment) error
}

// Result is the outcome of an import run. A non-empty Errors list with
// non-zero counts signals partial success; the entities that were created
// are live and real.
type Result struct {
	ItemsCreated int      `json:"itemsCreated"`
	TagsCreated  int      `json:"tagsCreated"`
	Errors       []string `json:"errors"`
}

// Importer replays a validated archive against a destination store.
type Importer struct {
	tags   TagCreator
	items  ItemCreator
	logger *slog.Logger
}

// NewImporter creates an Importer over the given destination accessors.
func NewImporter(tags TagCreator, items ItemCreator, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{tags: tags, items: items, logger: logger}
}

// Import validates the archive and, if valid, creates all tags first
// (building the archive→store remap table) and then all items, strictly in
// manifest order. Per-entity failures are accumulated, never thrown; an
// invalid archive returns zero counts with the validator's errors and
// performs no destination writes.
func (im *Importer) Import(ctx context.Context, data []byte, report ProgressFunc) Result {
	rep := Validate(data)
	if !rep.Valid {
		return Result{Errors: rep.Errors}
	}
	if rep.Manifest == nil {
		return Result{Errors: []string{"manifest could not be decoded"}}
	}
	manifest := rep.Manifest

	// The container opened during validation, so this cannot fail here; the
	// guard keeps the no-panic promise on adversarial input regardless.
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{Errors: []string{"file is not a valid archive"}}
	}
	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	res := Result{Errors: []string{}}

	// Tag phase. Every tag is created before any item resolves its tag
	// references: the remap table must be complete first.
	remap := make(map[ArchiveTagRef]StoreTagID, len(manifest.Tags))
	for i, t := range manifest.Tags {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("import cancelled: %v", err))
			return res
		}
		newID, err := im.tags.CreateTag(ctx, TagDraft{
			Name:         t.Name,
			Color:        t.Color,
			AutoKeywords: t.AutoKeywords,
		})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("tag %q: %v", t.Name, err))
		} else {
			remap[t.ID] = newID
			res.TagsCreated++
		}
		report.report(Progress{
			Phase:   PhaseCreatingTags,
			Current: i + 1,
			Total:   len(manifest.Tags),
			Message: fmt.Sprintf("creating tags (%d/%d)", i+1, len(manifest.Tags)),
		})
	}

	// Item phase, in manifest order.
	for i, it := range manifest.Items {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("import cancelled: %v", err))
			return res
		}

		var attachment *Attachment
		if it.FilePath != "" {
			if f, ok := entries[it.FilePath]; ok {
				data, readErr := readEntry(f)
				if readErr != nil {
					im.logger.Warn("import: attachment entry unreadable, creating item without it",
						slog.String("item", it.ID),
						slog.String("path", it.FilePath),
						slog.String("error", readErr.Error()))
				} else {
					if it.Checksum != "" && checksum.Sum(data) != it.Checksum {
						im.logger.Warn("import: attachment checksum mismatch",
							slog.String("item", it.ID),
							slog.String("path", it.FilePath))
					}
					mime := it.MimeType
					if mime == "" {
						mime = "application/octet-stream"
					}
					attachment = &Attachment{Data: data, MimeType: mime, FileName: it.FileName}
				}
			} else {
				im.logger.Warn("import: attachment entry missing from archive, creating item without it",
					slog.String("item", it.ID),
					slog.String("path", it.FilePath))
			}
		}

		// Remap tag references, silently dropping refs whose tag was not
		// created (e.g. its create call failed above).
		tagIDs := make([]StoreTagID, 0, len(it.Tags))
		for _, ref := range it.Tags {
			if id, ok := remap[ref]; ok {
				tagIDs = append(tagIDs, id)
			}
		}

		err := im.items.CreateItem(ctx, ItemDraft{
			Type:          it.Type,
			Content:       it.Content,
			HTMLContent:   it.HTMLContent,
			Title:         it.Title,
			OGImage:       it.OGImage,
			OGTitle:       it.OGTitle,
			OGDescription: it.OGDescription,
			Tags:          tagIDs,
			IsFavorite:    it.IsFavorite,
			IsEncrypted:   it.IsEncrypted,
			IsCode:        it.IsCode,
			FileName:      it.FileName,
			FileSize:      it.FileSize,
			MimeType:      it.MimeType,
			CreatedAt:     it.CreatedAt,
		}, attachment)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("item %s: %v", it.ID, err))
		} else {
			res.ItemsCreated++
		}

		phase := PhaseCreatingItems
		verb := "creating items"
		if it.FilePath != "" {
			phase = PhaseUploadingFiles
			verb = "uploading files"
		}
		report.report(Progress{
			Phase:   phase,
			Current: i + 1,
			Total:   len(manifest.Items),
			Message: fmt.Sprintf("%s (%d/%d)", verb, i+1, len(manifest.Items)),
		})
	}

	return res
}
