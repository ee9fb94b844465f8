// Package testutil provides shared test helpers for setting up stores and
// blob directories.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/selfhq/self/internal/blob"
	"github.com/selfhq/self/internal/capture"
	"github.com/selfhq/self/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "self-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBlob creates a temporary attachments directory with a blob.Provider.
func TestBlob(t *testing.T) (string, blob.Provider) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blob.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, blobs
}

// TestService wires a capture service over temporary storage. Open Graph
// enrichment is disabled so tests never touch the network.
func TestService(t *testing.T) *capture.Service {
	t.Helper()
	db := TestDB(t)
	_, blobs := TestBlob(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return capture.NewService(db, blobs, nil, logger)
}
