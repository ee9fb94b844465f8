package capture

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/selfhq/self/internal/apperr"
	"github.com/selfhq/self/internal/blob"
	"github.com/selfhq/self/internal/models"
	"github.com/selfhq/self/internal/store"
)

func testService(t *testing.T) *Service {
	t.Helper()

	dbFile, err := os.CreateTemp("", "self-capture-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blobs, err := blob.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(db, blobs, nil, logger)
}

func TestCreateItemClassifiesContent(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	cases := []struct {
		content string
		want    models.ItemType
	}{
		{"just a plain note", models.TypeText},
		{"https://example.com/post", models.TypeLink},
		{"http://example.com", models.TypeLink},
		{"ftp://example.com/file", models.TypeText},
		{"visit https://example.com today", models.TypeText},
	}
	for _, tc := range cases {
		item, err := svc.CreateItem(ctx, ItemInput{Content: tc.content}, nil)
		if err != nil {
			t.Fatalf("CreateItem(%q): %v", tc.content, err)
		}
		if item.Type != tc.want {
			t.Errorf("CreateItem(%q) type = %s, want %s", tc.content, item.Type, tc.want)
		}
	}
}

func TestCreateItemWithAttachment(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	pngHeader := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
	item, err := svc.CreateItem(ctx, ItemInput{Content: "a picture"}, &Upload{
		Data:     pngHeader,
		FileName: "pic.png",
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Type != models.TypeImage {
		t.Fatalf("type = %s, want image (sniffed from bytes)", item.Type)
	}
	if item.MimeType != "image/png" {
		t.Fatalf("mime = %q", item.MimeType)
	}
	if !strings.HasSuffix(item.AttachmentKey, ".png") {
		t.Fatalf("attachment key = %q", item.AttachmentKey)
	}

	data, err := svc.ReadAttachment(ctx, item.AttachmentKey)
	if err != nil {
		t.Fatalf("ReadAttachment: %v", err)
	}
	if len(data) != len(pngHeader) {
		t.Fatalf("attachment size = %d, want %d", len(data), len(pngHeader))
	}

	// Round-trip through the store preserves attachment metadata.
	got, err := svc.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.FileName != "pic.png" || got.FileSize != int64(len(pngHeader)) {
		t.Fatalf("stored item = %+v", got)
	}
}

func TestCreateItemRequiresContentOrFile(t *testing.T) {
	svc := testService(t)
	_, err := svc.CreateItem(context.Background(), ItemInput{}, nil)
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestDeleteItemRemovesAttachment(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, ItemInput{Content: "doc"}, &Upload{
		Data:     []byte("%PDF-1.4 fake"),
		FileName: "doc.pdf",
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := svc.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := svc.GetItem(ctx, item.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("item still present: %v", err)
	}
	if _, err := svc.ReadAttachment(ctx, item.AttachmentKey); err == nil {
		t.Fatal("attachment blob still present after item delete")
	}
}

func TestTagLifecycle(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	tag, err := svc.CreateTag(ctx, TagInput{Name: "pets", Color: "#fa0", AutoKeywords: []string{"cat", "dog"}})
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if tag.ID == "" {
		t.Fatal("tag id not assigned")
	}

	// Duplicate names are rejected.
	if _, err := svc.CreateTag(ctx, TagInput{Name: "pets"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("duplicate tag err = %v", err)
	}

	item, err := svc.CreateItem(ctx, ItemInput{Content: "my cat", Tags: []string{tag.ID}}, nil)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	got, err := svc.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != tag.ID {
		t.Fatalf("item tags = %v", got.Tags)
	}

	// Filter listing by tag.
	items, total, err := svc.ListItems(ctx, store.ItemFilter{TagID: tag.ID})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("filtered list = %d/%d", len(items), total)
	}

	if err := svc.DeleteTag(ctx, tag.ID); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	got, err = svc.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem after tag delete: %v", err)
	}
	if len(got.Tags) != 0 {
		t.Fatalf("dangling tag link: %v", got.Tags)
	}
}

func TestBackupRoundTripThroughLiveStore(t *testing.T) {
	src := testService(t)
	ctx := context.Background()

	tag, err := src.CreateTag(ctx, TagInput{Name: "pets"})
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if _, err := src.CreateItem(ctx, ItemInput{Content: "hello world"}, nil); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	catBytes := make([]byte, 2048)
	if _, err := src.CreateItem(ctx, ItemInput{Type: models.TypeImage, Content: "cat pic", Tags: []string{tag.ID}}, &Upload{
		Data:     catBytes,
		FileName: "cat.png",
		MimeType: "image/png",
	}); err != nil {
		t.Fatalf("CreateItem with file: %v", err)
	}

	data, err := src.ExportArchive(ctx, nil)
	if err != nil {
		t.Fatalf("ExportArchive: %v", err)
	}

	rep := src.ValidateArchive(data)
	if !rep.Valid {
		t.Fatalf("validation: %v", rep.Errors)
	}
	if rep.ItemCount != 2 || rep.TagCount != 1 || rep.TotalFileSize != 2048 {
		t.Fatalf("report = %+v", rep)
	}

	dst := testService(t)
	res := dst.ImportArchive(ctx, data, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("import errors: %v", res.Errors)
	}
	if res.ItemsCreated != 2 || res.TagsCreated != 1 {
		t.Fatalf("import result = %+v", res)
	}

	items, total, err := dst.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 2 {
		t.Fatalf("destination has %d items", total)
	}
	var imported *models.Item
	for i := range items {
		if items[i].Type == models.TypeImage {
			imported = &items[i]
		}
	}
	if imported == nil {
		t.Fatal("image item missing after import")
	}
	if imported.FileName != "cat.png" || imported.FileSize != 2048 {
		t.Fatalf("imported attachment metadata = %+v", imported)
	}
	blobData, err := dst.ReadAttachment(ctx, imported.AttachmentKey)
	if err != nil {
		t.Fatalf("ReadAttachment: %v", err)
	}
	if len(blobData) != 2048 {
		t.Fatalf("imported attachment size = %d", len(blobData))
	}
	tags, err := dst.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "pets" {
		t.Fatalf("destination tags = %+v", tags)
	}
	if tags[0].ID == tag.ID {
		t.Fatal("destination tag reused the archive-local identity")
	}
	if len(imported.Tags) != 1 || imported.Tags[0] != tags[0].ID {
		t.Fatalf("imported item tags = %v, want remapped to %s", imported.Tags, tags[0].ID)
	}
}

func TestImportSurvivesLostAttachmentEntry(t *testing.T) {
	// A truncated archive: the manifest declares a file item with empty
	// content and a filePath whose binary entry is gone. The item must still
	// be created, attachment-less, instead of landing in the error list.
	manifest := []byte(`{
		"version": "1.0",
		"exportedAt": "2025-06-01T00:00:00Z",
		"items": [
			{"id": "i1", "type": "file", "content": "", "tags": [],
			 "isFavorite": false, "isEncrypted": false,
			 "createdAt": "2025-06-01T00:00:00Z",
			 "fileName": "report.pdf", "mimeType": "application/pdf",
			 "filePath": "files/i1.pdf"}
		],
		"tags": []
	}`)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("manifest.json")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := f.Write(manifest); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	svc := testService(t)
	ctx := context.Background()
	res := svc.ImportArchive(ctx, buf.Bytes(), nil)
	if len(res.Errors) != 0 {
		t.Fatalf("import errors: %v", res.Errors)
	}
	if res.ItemsCreated != 1 {
		t.Fatalf("itemsCreated = %d, want 1", res.ItemsCreated)
	}

	items, total, err := svc.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 1 {
		t.Fatalf("destination has %d items", total)
	}
	got := items[0]
	if got.Type != models.TypeFile || got.Content != "" {
		t.Fatalf("imported item = %+v", got)
	}
	if got.AttachmentKey != "" {
		t.Fatalf("attachment key = %q, want none for a lost entry", got.AttachmentKey)
	}
}

func TestExtractOG(t *testing.T) {
	page := `<html><head>
		<title>Fallback Title</title>
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="A description">
		<meta property="og:image" content="https://example.com/cat.jpg">
	</head><body></body></html>`

	meta, err := ExtractOG(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ExtractOG: %v", err)
	}
	if meta.Title != "OG Title" || meta.Description != "A description" || meta.Image != "https://example.com/cat.jpg" {
		t.Fatalf("meta = %+v", meta)
	}

	// Without og:title the <title> element wins.
	meta, err = ExtractOG(strings.NewReader(`<html><head><title>Only Title</title></head></html>`))
	if err != nil {
		t.Fatalf("ExtractOG: %v", err)
	}
	if meta.Title != "Only Title" {
		t.Fatalf("fallback title = %q", meta.Title)
	}
}
