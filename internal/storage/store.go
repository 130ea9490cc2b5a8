// Package storage provides abstractions for archive persistence.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/onecount/internal/models"
)

// ErrFolderNotFound is returned when a folder id is not in the archive.
var ErrFolderNotFound = errors.New("folder not found")

// Store defines the interface for archive storage operations.
// The workspace keeps the archive in memory; a Store mirrors it so that a
// backend can outlive the process (SQLite) or not (memory).
type Store interface {
	// CreateFolder persists a finalized folder.
	// The folder.ID and folder.CreatedAt fields are populated if empty.
	CreateFolder(ctx context.Context, folder *models.Folder) error

	// DeleteFolder removes a folder and everything it owns.
	// Returns ErrFolderNotFound if the folder does not exist.
	DeleteFolder(ctx context.Context, folderID string) error

	// ListFolders returns every folder, newest first.
	ListFolders(ctx context.Context) ([]models.Folder, error)

	// Close releases any resources held by the store.
	Close() error
}
