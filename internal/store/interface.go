package store

import "github.com/selfhq/self/internal/models"

// ItemStore defines the repository operations consumed by the service and
// API layers. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with mocks.
type ItemStore interface {
	CreateItem(item *models.Item) error
	GetItem(id string) (*models.Item, error)
	ListItems(f ItemFilter) ([]models.Item, int, error)
	UpdateItem(item *models.Item) error
	DeleteItem(id string) error

	CreateTag(tag *models.Tag) error
	GetTag(id string) (*models.Tag, error)
	ListTags() ([]models.Tag, error)
	UpdateTag(tag *models.Tag) error
	DeleteTag(id string) error

	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies ItemStore at compile time.
var _ ItemStore = (*DB)(nil)
