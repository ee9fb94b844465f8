package store

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/selfhq/self/internal/apperr"
	"github.com/selfhq/self/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "self-store-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testItem(id string) *models.Item {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Item{
		ID:        id,
		Type:      models.TypeText,
		Content:   "content of " + id,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testTag(db *DB, t *testing.T, id, name string) *models.Tag {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	tag := &models.Tag{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := db.CreateTag(tag); err != nil {
		t.Fatalf("CreateTag(%s): %v", name, err)
	}
	return tag
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"items", "tags", "item_tags"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestCreateAndGetItem(t *testing.T) {
	db := testDB(t)
	item := testItem("it-1")
	item.Title = "first"
	item.FileName = "a.png"
	item.FileSize = 99
	item.MimeType = "image/png"
	item.AttachmentKey = "it-1.png"

	if err := db.CreateItem(item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	got, err := db.GetItem("it-1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Title != "first" || got.FileSize != 99 || got.AttachmentKey != "it-1.png" {
		t.Errorf("got = %+v", got)
	}
	if !got.CreatedAt.Equal(item.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, item.CreatedAt)
	}
}

func TestGetItemNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetItem("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDuplicateItemID(t *testing.T) {
	db := testDB(t)
	if err := db.CreateItem(testItem("dup")); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateItem(testItem("dup")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestItemTagLinks(t *testing.T) {
	db := testDB(t)
	tag := testTag(db, t, "tg-1", "work")

	item := testItem("it-1")
	item.Tags = []string{tag.ID}
	if err := db.CreateItem(item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	got, err := db.GetItem("it-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "tg-1" {
		t.Errorf("tags = %v", got.Tags)
	}

	// Updating with a different tag set replaces the links.
	tag2 := testTag(db, t, "tg-2", "home")
	got.Tags = []string{tag2.ID}
	if err := db.UpdateItem(got); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	got, _ = db.GetItem("it-1")
	if len(got.Tags) != 1 || got.Tags[0] != "tg-2" {
		t.Errorf("tags after update = %v", got.Tags)
	}

	// Deleting the tag clears the link but not the item.
	if err := db.DeleteTag("tg-2"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	got, err = db.GetItem("it-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 0 {
		t.Errorf("dangling tags = %v", got.Tags)
	}
}

func TestListItemsFilterAndPaging(t *testing.T) {
	db := testDB(t)
	tag := testTag(db, t, "tg-1", "pets")

	for i, id := range []string{"a", "b", "c"} {
		item := testItem(id)
		item.CreatedAt = item.CreatedAt.Add(time.Duration(i) * time.Second)
		if id == "b" {
			item.Type = models.TypeLink
			item.IsFavorite = true
			item.Tags = []string{tag.ID}
		}
		if err := db.CreateItem(item); err != nil {
			t.Fatal(err)
		}
	}

	// Newest first.
	items, total, err := db.ListItems(ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("list = %d/%d", len(items), total)
	}
	if items[0].ID != "c" {
		t.Errorf("order: first = %s, want c", items[0].ID)
	}

	// Paging keeps the full total.
	items, total, err = db.ListItems(ItemFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(items) != 1 || items[0].ID != "b" {
		t.Errorf("page = %+v, total = %d", items, total)
	}

	// Tag filter.
	items, total, _ = db.ListItems(ItemFilter{TagID: tag.ID})
	if total != 1 || items[0].ID != "b" {
		t.Errorf("tag filter = %+v", items)
	}

	// Type filter.
	items, _, _ = db.ListItems(ItemFilter{Type: "link"})
	if len(items) != 1 || items[0].ID != "b" {
		t.Errorf("type filter = %+v", items)
	}

	// Favorite filter.
	fav := true
	items, _, _ = db.ListItems(ItemFilter{Favorite: &fav})
	if len(items) != 1 || items[0].ID != "b" {
		t.Errorf("favorite filter = %+v", items)
	}
}

func TestDeleteItem(t *testing.T) {
	db := testDB(t)
	if err := db.CreateItem(testItem("gone")); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteItem("gone"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := db.DeleteItem("gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestTagCRUD(t *testing.T) {
	db := testDB(t)
	tag := testTag(db, t, "tg-1", "books")
	tag.Name = "reading"
	tag.Color = "#123"
	tag.AutoKeywords = []string{"novel", "isbn"}
	if err := db.UpdateTag(tag); err != nil {
		t.Fatalf("UpdateTag: %v", err)
	}

	got, err := db.GetTag("tg-1")
	if err != nil {
		t.Fatalf("GetTag: %v", err)
	}
	if got.Name != "reading" || got.Color != "#123" || len(got.AutoKeywords) != 2 {
		t.Errorf("got = %+v", got)
	}

	tags, err := db.ListTags()
	if err != nil || len(tags) != 1 {
		t.Fatalf("ListTags = %+v, %v", tags, err)
	}
}

func TestDuplicateTagName(t *testing.T) {
	db := testDB(t)
	testTag(db, t, "tg-1", "same")
	now := time.Now().UTC()
	err := db.CreateTag(&models.Tag{ID: "tg-2", Name: "same", CreatedAt: now, UpdatedAt: now})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	item := testItem("it-1")
	item.Content = "the quick brown fox"
	if err := db.CreateItem(item); err != nil {
		t.Fatal(err)
	}
	other := testItem("it-2")
	other.Content = "unrelated"
	if err := db.CreateItem(other); err != nil {
		t.Fatal(err)
	}

	results, err := db.Search("brown", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "it-1" {
		t.Errorf("results = %+v", results)
	}
}
