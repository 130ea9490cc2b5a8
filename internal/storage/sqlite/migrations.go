package sqlite

import "database/sql"

// schema contains the SQL statements to set up the archive tables.
// These run on startup to ensure tables exist.
// Children are keyed by (folder_id, ...) because a reopened and re-saved bill
// reuses its item and member ids under a new folder.
const schema = `
CREATE TABLE IF NOT EXISTS folders (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    date TEXT NOT NULL,
    tip REAL NOT NULL,
    total REAL NOT NULL,
    receipt_image BLOB,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS folder_members (
    folder_id TEXT NOT NULL,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    color TEXT NOT NULL,
    PRIMARY KEY (folder_id, id),
    FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS folder_items (
    folder_id TEXT NOT NULL,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    price REAL NOT NULL,
    PRIMARY KEY (folder_id, id),
    FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS item_assignments (
    folder_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (folder_id, item_id, member_id),
    FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_folders_created_at ON folders(created_at);
CREATE INDEX IF NOT EXISTS idx_folder_members_folder_id ON folder_members(folder_id);
CREATE INDEX IF NOT EXISTS idx_folder_items_folder_id ON folder_items(folder_id);
CREATE INDEX IF NOT EXISTS idx_item_assignments_folder_id ON item_assignments(folder_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
