// Package cache is the durable local record of every entity the migration
// has created on the remote side. It is what makes re-runs resumable: all
// six record kinds are loaded into memory-resident indexes at startup for
// O(1) existence checks, and every mutation is written through to SQLite
// before the index is updated.
package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS folders (
	location        TEXT PRIMARY KEY,
	id              TEXT,
	title           TEXT NOT NULL,
	parent_location TEXT,
	parent_id       TEXT,
	level           INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	note_id         TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	folder_id       TEXT NOT NULL,
	markup_kind     INTEGER NOT NULL,
	source_location TEXT NOT NULL,
	created_at      INTEGER,
	updated_at      INTEGER
);

CREATE TABLE IF NOT EXISTS resources (
	resource_id TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	filename    TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	kind        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS internal_links (
	note_id     TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	title       TEXT NOT NULL,
	link_kind   TEXT NOT NULL,
	PRIMARY KEY (note_id, resource_id)
);
CREATE INDEX IF NOT EXISTS idx_internal_links_kind ON internal_links(link_kind);
CREATE INDEX IF NOT EXISTS idx_internal_links_resource ON internal_links(resource_id);

CREATE TABLE IF NOT EXISTS tags (
	tag_id     TEXT PRIMARY KEY,
	title      TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS note_tags (
	note_id    TEXT NOT NULL,
	tag_id     TEXT NOT NULL,
	title      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (note_id, tag_id)
);
`

// Store holds the migration state in SQLite with in-memory indexes keyed by
// natural id. Lookups on missing keys return nil rather than an error, which
// is what the create-if-absent flows rely on.
type Store struct {
	db *sql.DB

	folders     map[string]*FolderRecord // by location
	foldersByID map[string]*FolderRecord // by remote id, created folders only
	notes       map[string]*NoteRecord
	resources   map[string]*ResourceRecord
	tags        map[string]*TagRecord
}

// Open opens (or creates) the store at path and loads all records into the
// in-memory indexes.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadAll() error {
	if err := s.loadFolders(); err != nil {
		return err
	}
	if err := s.loadNotes(); err != nil {
		return err
	}
	if err := s.loadResources(); err != nil {
		return err
	}
	return s.loadTags()
}

func (s *Store) loadFolders() error {
	rows, err := s.db.Query(`SELECT location, id, title, parent_location, parent_id, level FROM folders`)
	if err != nil {
		return fmt.Errorf("cache: load folders: %w", err)
	}
	defer rows.Close()

	s.folders = make(map[string]*FolderRecord)
	s.foldersByID = make(map[string]*FolderRecord)
	for rows.Next() {
		var f FolderRecord
		var id, parentLocation, parentID sql.NullString
		if err := rows.Scan(&f.Location, &id, &f.Title, &parentLocation, &parentID, &f.Level); err != nil {
			return fmt.Errorf("cache: scan folder: %w", err)
		}
		f.RemoteID = id.String
		f.ParentLocation = parentLocation.String
		f.RemoteParentID = parentID.String
		s.indexFolder(&f)
	}
	return rows.Err()
}

func (s *Store) loadNotes() error {
	rows, err := s.db.Query(
		`SELECT note_id, title, folder_id, markup_kind, source_location, created_at, updated_at FROM notes`)
	if err != nil {
		return fmt.Errorf("cache: load notes: %w", err)
	}
	defer rows.Close()

	s.notes = make(map[string]*NoteRecord)
	for rows.Next() {
		var n NoteRecord
		var created, updated sql.NullInt64
		if err := rows.Scan(&n.NoteID, &n.Title, &n.FolderID, &n.MarkupKind,
			&n.SourceLocation, &created, &updated); err != nil {
			return fmt.Errorf("cache: scan note: %w", err)
		}
		n.CreatedTime = created.Int64
		n.UpdatedTime = updated.Int64
		s.notes[n.NoteID] = &n
	}
	return rows.Err()
}

func (s *Store) loadResources() error {
	rows, err := s.db.Query(`SELECT resource_id, title, filename, created_at, kind FROM resources`)
	if err != nil {
		return fmt.Errorf("cache: load resources: %w", err)
	}
	defer rows.Close()

	s.resources = make(map[string]*ResourceRecord)
	for rows.Next() {
		var r ResourceRecord
		if err := rows.Scan(&r.ResourceID, &r.Title, &r.Filename, &r.CreatedTime, &r.Kind); err != nil {
			return fmt.Errorf("cache: scan resource: %w", err)
		}
		s.resources[r.ResourceID] = &r
	}
	return rows.Err()
}

func (s *Store) loadTags() error {
	rows, err := s.db.Query(`SELECT tag_id, title, created_at, updated_at FROM tags`)
	if err != nil {
		return fmt.Errorf("cache: load tags: %w", err)
	}
	defer rows.Close()

	s.tags = make(map[string]*TagRecord)
	for rows.Next() {
		var t TagRecord
		if err := rows.Scan(&t.TagID, &t.Title, &t.CreatedTime, &t.UpdatedTime); err != nil {
			return fmt.Errorf("cache: scan tag: %w", err)
		}
		s.tags[t.TagID] = &t
	}
	return rows.Err()
}

func (s *Store) indexFolder(f *FolderRecord) {
	s.folders[f.Location] = f
	if f.RemoteID != "" {
		s.foldersByID[f.RemoteID] = f
	}
}

// Stats returns summary counts for status reporting.
func (s *Store) Stats() Stats {
	st := Stats{
		Folders:   len(s.folders),
		Notes:     len(s.notes),
		Resources: len(s.resources),
		Tags:      len(s.tags),
	}
	for _, f := range s.folders {
		if f.RemoteID == "" {
			st.FoldersPending++
		}
	}
	return st
}
