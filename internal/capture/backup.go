package capture

import (
	"context"

	"github.com/selfhq/self/internal/archive"
	"github.com/selfhq/self/internal/models"
	"github.com/selfhq/self/internal/store"
)

// ExportArchive builds a backup archive of the full data set.
func (s *Service) ExportArchive(ctx context.Context, report archive.ProgressFunc) ([]byte, error) {
	bridge := &archiveBridge{svc: s}
	return archive.NewWriter(bridge, bridge, s.logger).Export(ctx, report)
}

// ValidateArchive structurally checks archive bytes without touching the store.
func (s *Service) ValidateArchive(data []byte) *archive.Report {
	return archive.Validate(data)
}

// ImportArchive validates and imports an archive into the live store.
func (s *Service) ImportArchive(ctx context.Context, data []byte, report archive.ProgressFunc) archive.Result {
	bridge := &archiveBridge{svc: s}
	return archive.NewImporter(bridge, bridge, s.logger).Import(ctx, data, report)
}

// archiveBridge adapts the capture service to the accessor interfaces the
// archive pipeline is written against.
type archiveBridge struct {
	svc *Service
}

func (b *archiveBridge) ListItems(_ context.Context) ([]models.Item, error) {
	items, _, err := b.svc.store.ListItems(store.ItemFilter{})
	return items, err
}

func (b *archiveBridge) ListTags(_ context.Context) ([]models.Tag, error) {
	return b.svc.store.ListTags()
}

func (b *archiveBridge) FetchAttachment(_ context.Context, key string) ([]byte, error) {
	return b.svc.blobs.Read(key)
}

func (b *archiveBridge) CreateTag(ctx context.Context, draft archive.TagDraft) (archive.StoreTagID, error) {
	tag, err := b.svc.CreateTag(ctx, TagInput{
		Name:         draft.Name,
		Color:        draft.Color,
		AutoKeywords: draft.AutoKeywords,
	})
	if err != nil {
		return "", err
	}
	return archive.StoreTagID(tag.ID), nil
}

func (b *archiveBridge) CreateItem(ctx context.Context, draft archive.ItemDraft, attachment *archive.Attachment) error {
	tags := make([]string, len(draft.Tags))
	for i, id := range draft.Tags {
		tags[i] = string(id)
	}
	var file *Upload
	if attachment != nil {
		file = &Upload{
			Data:     attachment.Data,
			FileName: attachment.FileName,
			MimeType: attachment.MimeType,
		}
	}
	_, err := b.svc.CreateItem(ctx, ItemInput{
		Type:          draft.Type,
		Content:       draft.Content,
		HTMLContent:   draft.HTMLContent,
		Title:         draft.Title,
		OGImage:       draft.OGImage,
		OGTitle:       draft.OGTitle,
		OGDescription: draft.OGDescription,
		Tags:          tags,
		IsFavorite:    draft.IsFavorite,
		IsEncrypted:   draft.IsEncrypted,
		IsCode:        draft.IsCode,
		CreatedAt:     draft.CreatedAt,
		restoring:     true,
	}, file)
	return err
}
