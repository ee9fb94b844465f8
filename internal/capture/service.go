// Package capture coordinates the store and blob layers: item/tag CRUD,
// attachment handling, and content classification.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/selfhq/self/internal/apperr"
	"github.com/selfhq/self/internal/blob"
	"github.com/selfhq/self/internal/models"
	"github.com/selfhq/self/internal/store"
)

// Upload carries an incoming attachment.
type Upload struct {
	Data     []byte
	FileName string
	MimeType string // optional; sniffed from Data when empty
}

// ItemInput is the payload for creating or updating an item.
type ItemInput struct {
	Type        models.ItemType // optional; classified when empty
	Content     string
	HTMLContent string
	Title       string

	OGImage       string
	OGTitle       string
	OGDescription string

	Tags []string // tag IDs

	IsFavorite  bool
	IsEncrypted bool
	IsCode      bool

	// CreatedAt overrides the capture timestamp, used when restoring from a
	// backup archive. Zero means "now".
	CreatedAt time.Time

	// restoring marks input replayed from a backup archive: Open Graph
	// fetching is skipped (the archive already carries whatever metadata the
	// item had) and the content-or-file requirement is waived, since a file
	// item whose binary entry was lost may arrive with empty content.
	restoring bool
}

// TagInput is the payload for creating or updating a tag.
type TagInput struct {
	Name         string
	Color        string
	AutoKeywords []string
}

// Service is the domain service for captured content.
type Service struct {
	store  store.ItemStore
	blobs  blob.Provider
	og     OGFetcher // nil disables link enrichment
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates a capture service. og may be nil to disable Open Graph
// enrichment of link items.
func NewService(st store.ItemStore, blobs blob.Provider, og OGFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		blobs:  blobs,
		og:     og,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// CreateItem captures a new item, storing the attachment (if any) and
// enriching link items with Open Graph metadata best-effort.
func (s *Service) CreateItem(ctx context.Context, in ItemInput, file *Upload) (*models.Item, error) {
	if in.Content == "" && file == nil && !in.restoring {
		return nil, fmt.Errorf("%w: content or file is required", apperr.ErrInvalid)
	}

	now := s.now().UTC()
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	item := &models.Item{
		ID:            s.newID(),
		Type:          in.Type,
		Content:       in.Content,
		HTMLContent:   in.HTMLContent,
		Title:         in.Title,
		OGImage:       in.OGImage,
		OGTitle:       in.OGTitle,
		OGDescription: in.OGDescription,
		Tags:          in.Tags,
		IsFavorite:    in.IsFavorite,
		IsEncrypted:   in.IsEncrypted,
		IsCode:        in.IsCode,
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}

	if file != nil {
		mime := file.MimeType
		if mime == "" {
			mime = mimetype.Detect(file.Data).String()
		}
		if item.Type == "" {
			item.Type = TypeForMime(mime)
		}
		key := attachmentKey(item.ID, file.FileName, mime)
		if err := s.blobs.Write(key, file.Data); err != nil {
			return nil, fmt.Errorf("capture: store attachment: %w", err)
		}
		item.AttachmentKey = key
		item.FileName = file.FileName
		item.FileSize = int64(len(file.Data))
		item.MimeType = mime
	}

	if item.Type == "" {
		item.Type = DetectType(item.Content)
	}
	if !item.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown item type %q", apperr.ErrInvalid, item.Type)
	}

	if item.Type == models.TypeLink && s.og != nil && item.OGTitle == "" && !in.restoring {
		if meta, err := s.og.Fetch(ctx, strings.TrimSpace(item.Content)); err != nil {
			s.logger.Debug("capture: og fetch failed", slog.String("url", item.Content), slog.String("error", err.Error()))
		} else {
			item.OGTitle = meta.Title
			item.OGDescription = meta.Description
			item.OGImage = meta.Image
		}
	}

	if err := s.store.CreateItem(item); err != nil {
		// Roll back the blob so a failed create leaves nothing behind.
		if item.AttachmentKey != "" {
			if delErr := s.blobs.Delete(item.AttachmentKey); delErr != nil {
				s.logger.Warn("capture: orphaned attachment cleanup failed",
					slog.String("key", item.AttachmentKey), slog.String("error", delErr.Error()))
			}
		}
		return nil, err
	}
	return item, nil
}

// GetItem returns one item by id.
func (s *Service) GetItem(_ context.Context, id string) (*models.Item, error) {
	return s.store.GetItem(id)
}

// ListItems returns items newest-first with the total count.
func (s *Service) ListItems(_ context.Context, f store.ItemFilter) ([]models.Item, int, error) {
	items, total, err := s.store.ListItems(f)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, total, nil
}

// UpdateItem applies mutable fields to an existing item.
func (s *Service) UpdateItem(_ context.Context, id string, in ItemInput) (*models.Item, error) {
	item, err := s.store.GetItem(id)
	if err != nil {
		return nil, err
	}
	if in.Type != "" {
		if !in.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown item type %q", apperr.ErrInvalid, in.Type)
		}
		item.Type = in.Type
	}
	if in.Content != "" {
		item.Content = in.Content
	}
	item.HTMLContent = in.HTMLContent
	item.Title = in.Title
	item.Tags = in.Tags
	item.IsFavorite = in.IsFavorite
	item.IsEncrypted = in.IsEncrypted
	item.IsCode = in.IsCode
	item.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item and its attachment blob.
func (s *Service) DeleteItem(_ context.Context, id string) error {
	item, err := s.store.GetItem(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteItem(id); err != nil {
		return err
	}
	if item.HasAttachment() {
		if err := s.blobs.Delete(item.AttachmentKey); err != nil {
			s.logger.Warn("capture: attachment delete failed",
				slog.String("key", item.AttachmentKey), slog.String("error", err.Error()))
		}
	}
	return nil
}

// ReadAttachment returns the attachment bytes for an item.
func (s *Service) ReadAttachment(_ context.Context, key string) ([]byte, error) {
	return s.blobs.Read(key)
}

// CreateTag creates a new tag with a server-assigned identity.
func (s *Service) CreateTag(_ context.Context, in TagInput) (*models.Tag, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: tag name is required", apperr.ErrInvalid)
	}
	now := s.now().UTC()
	tag := &models.Tag{
		ID:           s.newID(),
		Name:         strings.TrimSpace(in.Name),
		Color:        in.Color,
		AutoKeywords: in.AutoKeywords,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateTag(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// ListTags returns all tags.
func (s *Service) ListTags(_ context.Context) ([]models.Tag, error) {
	tags, err := s.store.ListTags()
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

// UpdateTag applies mutable fields to an existing tag.
func (s *Service) UpdateTag(_ context.Context, id string, in TagInput) (*models.Tag, error) {
	tag, err := s.store.GetTag(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) != "" {
		tag.Name = strings.TrimSpace(in.Name)
	}
	tag.Color = in.Color
	if in.AutoKeywords != nil {
		tag.AutoKeywords = in.AutoKeywords
	}
	tag.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTag(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// DeleteTag removes a tag and its item links.
func (s *Service) DeleteTag(_ context.Context, id string) error {
	return s.store.DeleteTag(id)
}

// Search delegates full-text search to the store.
func (s *Service) Search(_ context.Context, query string, limit int) ([]store.SearchResult, error) {
	results, err := s.store.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	return results, nil
}

// attachmentKey builds the blob key for an item's attachment, preferring the
// original extension and falling back to one derived from the MIME type.
func attachmentKey(itemID, fileName, mime string) string {
	ext := path.Ext(fileName)
	if ext == "" {
		if mt := mimetype.Lookup(mime); mt != nil {
			ext = mt.Extension()
		}
	}
	if ext == "" {
		ext = ".bin"
	}
	return itemID + ext
}
