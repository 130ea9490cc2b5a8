// Package memory provides a process-lifetime implementation of storage.Store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/onecount/internal/models"
	"github.com/mmynk/onecount/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps folders in memory, newest first.
type Store struct {
	mu      sync.RWMutex
	folders []models.Folder
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) CreateFolder(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.New().String()
	}
	if folder.CreatedAt == 0 {
		folder.CreatedAt = time.Now().UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.folders {
		if f.ID == folder.ID {
			return fmt.Errorf("folder already exists: %s", folder.ID)
		}
	}
	s.folders = append([]models.Folder{folder.Clone()}, s.folders...)
	return nil
}

func (s *Store) DeleteFolder(ctx context.Context, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.folders {
		if f.ID == folderID {
			s.folders = append(s.folders[:i:i], s.folders[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", storage.ErrFolderNotFound, folderID)
}

func (s *Store) ListFolders(ctx context.Context) ([]models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneFolders(s.folders), nil
}

func (s *Store) Close() error {
	return nil
}
