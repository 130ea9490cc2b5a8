// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/onecount/internal/models"
	"github.com/mmynk/onecount/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// foreign_keys is a per-connection pragma, so it goes in the DSN
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateFolder persists a folder with its members, items and assignments
// in a single transaction.
func (s *SQLiteStore) CreateFolder(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.New().String()
	}
	if folder.CreatedAt == 0 {
		folder.CreatedAt = time.Now().UnixMilli()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var image any
	if folder.ReceiptImage != nil {
		image = folder.ReceiptImage
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO folders (id, name, date, tip, total, receipt_image, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		folder.ID, folder.Name, folder.Date, folder.Tip, folder.Total, image, folder.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}

	for i, m := range folder.Members {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO folder_members (folder_id, id, position, name, color) VALUES (?, ?, ?, ?, ?)",
			folder.ID, m.ID, i, m.Name, m.Color,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	for i, item := range folder.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO folder_items (folder_id, id, position, name, price) VALUES (?, ?, ?, ?, ?)",
			folder.ID, item.ID, i, item.Name, item.Price,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for j, memberID := range item.AssignedMembers {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO item_assignments (folder_id, item_id, member_id, position) VALUES (?, ?, ?, ?)",
				folder.ID, item.ID, memberID, j,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item assignment: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteFolder removes a folder and its children.
func (s *SQLiteStore) DeleteFolder(ctx context.Context, folderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Children are deleted explicitly so the result does not depend on the pragma
	for _, table := range []string{"item_assignments", "folder_items", "folder_members"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE folder_id = ?", folderID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", folderID)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrFolderNotFound, folderID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListFolders retrieves all folders, newest first, including members and items.
func (s *SQLiteStore) ListFolders(ctx context.Context) ([]models.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, date, tip, total, receipt_image, created_at FROM folders ORDER BY created_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	var folders []models.Folder
	for rows.Next() {
		var f models.Folder
		var image []byte
		if err := rows.Scan(&f.ID, &f.Name, &f.Date, &f.Tip, &f.Total, &image, &f.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		if len(image) > 0 {
			f.ReceiptImage = image
		}
		folders = append(folders, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate folders: %w", err)
	}

	for i := range folders {
		if err := s.loadFolderContents(ctx, &folders[i]); err != nil {
			return nil, err
		}
	}

	return folders, nil
}

// loadFolderContents fills in a folder's members and items.
func (s *SQLiteStore) loadFolderContents(ctx context.Context, folder *models.Folder) error {
	memberRows, err := s.db.QueryContext(ctx,
		"SELECT id, name, color FROM folder_members WHERE folder_id = ? ORDER BY position",
		folder.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var m models.Member
		if err := memberRows.Scan(&m.ID, &m.Name, &m.Color); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		folder.Members = append(folder.Members, m)
	}
	if err := memberRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate members: %w", err)
	}

	assignments, err := s.loadAssignments(ctx, folder.ID)
	if err != nil {
		return err
	}

	itemRows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price FROM folder_items WHERE folder_id = ? ORDER BY position",
		folder.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item models.Item
		if err := itemRows.Scan(&item.ID, &item.Name, &item.Price); err != nil {
			return fmt.Errorf("failed to scan item: %w", err)
		}
		item.AssignedMembers = assignments[item.ID]
		if item.AssignedMembers == nil {
			item.AssignedMembers = []string{}
		}
		folder.Items = append(folder.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate items: %w", err)
	}

	return nil
}

// loadAssignments returns item id -> ordered member ids for one folder.
func (s *SQLiteStore) loadAssignments(ctx context.Context, folderID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id, member_id FROM item_assignments WHERE folder_id = ? ORDER BY item_id, position",
		folderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get item assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[string][]string)
	for rows.Next() {
		var itemID, memberID string
		if err := rows.Scan(&itemID, &memberID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments[itemID] = append(assignments[itemID], memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return assignments, nil
}
