package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/selfhq/self/internal/apperr"
	"github.com/selfhq/self/internal/models"
)

// ItemFilter holds the optional filters for listing items.
type ItemFilter struct {
	Limit    int
	Offset   int
	TagID    string
	Type     models.ItemType
	Favorite *bool
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const itemColumns = `id, type, content, html_content, title, og_image, og_title,
	og_description, is_favorite, is_encrypted, is_code, attachment_key,
	file_name, file_size, mime_type, created_at, updated_at`

// CreateItem inserts an item, its tag links, and its FTS entry within a transaction.
func (db *DB) CreateItem(item *models.Item) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, string(item.Type), item.Content, item.HTMLContent, item.Title,
		item.OGImage, item.OGTitle, item.OGDescription,
		item.IsFavorite, item.IsEncrypted, item.IsCode,
		item.AttachmentKey, item.FileName, item.FileSize, item.MimeType,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("store: insert item: %w", err)
	}

	if err := replaceItemTags(tx, item.ID, item.Tags); err != nil {
		return err
	}
	if err := ftsUpsertItem(tx, item.ID, item.Title, item.Content); err != nil {
		return err
	}
	return tx.Commit()
}

// GetItem returns the item with the given id, or apperr.ErrNotFound.
func (db *DB) GetItem(id string) (*models.Item, error) {
	row := db.conn.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get item: %w", err)
	}
	tags, err := db.itemTags(id)
	if err != nil {
		return nil, err
	}
	item.Tags = tags
	return item, nil
}

// ListItems returns items newest-first with total count, applying f.
func (db *DB) ListItems(f ItemFilter) ([]models.Item, int, error) {
	where, args := buildItemWhere(f)

	var total int
	countSQL := `SELECT COUNT(*) FROM items` + where
	if err := db.conn.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count items: %w", err)
	}

	listSQL := `SELECT ` + itemColumns + ` FROM items` + where + ` ORDER BY created_at DESC`
	listArgs := args
	if f.Limit > 0 {
		listSQL += ` LIMIT ? OFFSET ?`
		listArgs = append(append([]any{}, args...), f.Limit, f.Offset)
	}

	rows, err := db.conn.Query(listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list items: %w", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Attach tag IDs per item. Lists are small enough for per-row lookups.
	for i := range out {
		tags, err := db.itemTags(out[i].ID)
		if err != nil {
			return nil, 0, err
		}
		out[i].Tags = tags
	}
	return out, total, nil
}

// UpdateItem replaces a stored item and its tag links.
func (db *DB) UpdateItem(item *models.Item) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		UPDATE items SET
			type = ?, content = ?, html_content = ?, title = ?,
			og_image = ?, og_title = ?, og_description = ?,
			is_favorite = ?, is_encrypted = ?, is_code = ?,
			attachment_key = ?, file_name = ?, file_size = ?, mime_type = ?,
			updated_at = ?
		WHERE id = ?
	`, string(item.Type), item.Content, item.HTMLContent, item.Title,
		item.OGImage, item.OGTitle, item.OGDescription,
		item.IsFavorite, item.IsEncrypted, item.IsCode,
		item.AttachmentKey, item.FileName, item.FileSize, item.MimeType,
		item.UpdatedAt, item.ID)
	if err != nil {
		return fmt.Errorf("store: update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}

	if err := replaceItemTags(tx, item.ID, item.Tags); err != nil {
		return err
	}
	if err := ftsUpsertItem(tx, item.ID, item.Title, item.Content); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteItem removes an item, its tag links, and its FTS entry.
func (db *DB) DeleteItem(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	_, _ = tx.Exec(`DELETE FROM item_tags WHERE item_id = ?`, id)
	ftsDeleteItem(tx, id)
	return tx.Commit()
}

// CreateTag inserts a tag. Names are unique.
func (db *DB) CreateTag(tag *models.Tag) error {
	kw, _ := json.Marshal(nonNil(tag.AutoKeywords))
	_, err := db.conn.Exec(`
		INSERT INTO tags (id, name, color, auto_keywords, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tag.ID, tag.Name, tag.Color, string(kw), tag.CreatedAt, tag.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("store: insert tag: %w", err)
	}
	return nil
}

// GetTag returns the tag with the given id, or apperr.ErrNotFound.
func (db *DB) GetTag(id string) (*models.Tag, error) {
	row := db.conn.QueryRow(`
		SELECT id, name, color, auto_keywords, created_at, updated_at
		FROM tags WHERE id = ?`, id)
	tag, err := scanTag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get tag: %w", err)
	}
	return tag, nil
}

// ListTags returns all tags ordered by name.
func (db *DB) ListTags() ([]models.Tag, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, color, auto_keywords, created_at, updated_at
		FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tag)
	}
	return out, rows.Err()
}

// UpdateTag replaces a stored tag.
func (db *DB) UpdateTag(tag *models.Tag) error {
	kw, _ := json.Marshal(nonNil(tag.AutoKeywords))
	res, err := db.conn.Exec(`
		UPDATE tags SET name = ?, color = ?, auto_keywords = ?, updated_at = ?
		WHERE id = ?
	`, tag.Name, tag.Color, string(kw), tag.UpdatedAt, tag.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrAlreadyExists
		}
		return fmt.Errorf("store: update tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteTag removes a tag and its item links.
func (db *DB) DeleteTag(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	_, _ = tx.Exec(`DELETE FROM item_tags WHERE tag_id = ?`, id)
	return tx.Commit()
}

// itemTags returns the tag IDs linked to an item.
func (db *DB) itemTags(itemID string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT tag_id FROM item_tags WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, fmt.Errorf("store: item tags: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// replaceItemTags deletes old tag links and bulk inserts the new set.
func replaceItemTags(tx *sql.Tx, itemID string, tagIDs []string) error {
	_, _ = tx.Exec(`DELETE FROM item_tags WHERE item_id = ?`, itemID)
	if len(tagIDs) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare tag link insert: %w", err)
	}
	defer stmt.Close()
	for _, tagID := range tagIDs {
		if _, err := stmt.Exec(itemID, tagID); err != nil {
			return fmt.Errorf("store: insert tag link: %w", err)
		}
	}
	return nil
}

func buildItemWhere(f ItemFilter) (string, []any) {
	var conds []string
	var args []any
	if f.TagID != "" {
		conds = append(conds, `id IN (SELECT item_id FROM item_tags WHERE tag_id = ?)`)
		args = append(args, f.TagID)
	}
	if f.Type != "" {
		conds = append(conds, `type = ?`)
		args = append(args, string(f.Type))
	}
	if f.Favorite != nil {
		conds = append(conds, `is_favorite = ?`)
		args = append(args, *f.Favorite)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var typ string
	err := row.Scan(&item.ID, &typ, &item.Content, &item.HTMLContent, &item.Title,
		&item.OGImage, &item.OGTitle, &item.OGDescription,
		&item.IsFavorite, &item.IsEncrypted, &item.IsCode,
		&item.AttachmentKey, &item.FileName, &item.FileSize, &item.MimeType,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Type = models.ItemType(typ)
	return &item, nil
}

func scanTag(row rowScanner) (*models.Tag, error) {
	var tag models.Tag
	var kw string
	err := row.Scan(&tag.ID, &tag.Name, &tag.Color, &kw, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(kw), &tag.AutoKeywords)
	return &tag, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
