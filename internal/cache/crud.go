package cache

import (
	"fmt"
	"sort"
)

// Folder returns the folder record for a location, or nil when the location
// has never been seen.
func (s *Store) Folder(location string) *FolderRecord {
	return s.folders[location]
}

// FolderByRemoteID returns the folder record carrying the given remote id,
// or nil.
func (s *Store) FolderByRemoteID(id string) *FolderRecord {
	return s.foldersByID[id]
}

// Folders returns every folder record. The order is unspecified.
func (s *Store) Folders() []*FolderRecord {
	out := make([]*FolderRecord, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, f)
	}
	return out
}

// InsertFolder persists a new hierarchy node. The write goes to disk before
// the in-memory index is updated.
func (s *Store) InsertFolder(f *FolderRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO folders (location, id, title, parent_location, parent_id, level) VALUES (?, ?, ?, ?, ?, ?)`,
		f.Location, nullable(f.RemoteID), f.Title, nullable(f.ParentLocation), nullable(f.RemoteParentID), f.Level)
	if err != nil {
		return fmt.Errorf("cache: insert folder %q: %w", f.Location, err)
	}
	s.indexFolder(f)
	return nil
}

// SetFolderRemote records the remote id assigned to a folder after a
// successful create. A folder's remote id is set at most once.
func (s *Store) SetFolderRemote(location, remoteID, remoteParentID string) error {
	f := s.folders[location]
	if f == nil {
		return fmt.Errorf("cache: set remote id: unknown location %q", location)
	}
	if f.RemoteID != "" && f.RemoteID != remoteID {
		return fmt.Errorf("cache: folder %q already has remote id %s", location, f.RemoteID)
	}

	_, err := s.db.Exec(`UPDATE folders SET id = ?, parent_id = ? WHERE location = ?`,
		remoteID, nullable(remoteParentID), location)
	if err != nil {
		return fmt.Errorf("cache: update folder %q: %w", location, err)
	}

	f.RemoteID = remoteID
	f.RemoteParentID = remoteParentID
	s.foldersByID[remoteID] = f
	return nil
}

// PendingFolders returns every folder without a remote id, sorted ascending
// by level so parents always come before their children, with the location
// as a deterministic tie break.
func (s *Store) PendingFolders() []*FolderRecord {
	var pending []*FolderRecord
	for _, f := range s.folders {
		if f.RemoteID == "" {
			pending = append(pending, f)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Level != pending[j].Level {
			return pending[i].Level < pending[j].Level
		}
		return pending[i].Location < pending[j].Location
	})
	return pending
}

// Note returns the note record for an id, or nil when the note has not been
// migrated.
func (s *Store) Note(noteID string) *NoteRecord {
	return s.notes[noteID]
}

// InsertNote writes a migrated note together with its tag assignments and
// internal-link records in one local transaction. The remote create has
// already succeeded by the time this runs; grouping the rows means a crash
// can never leave a note half-recorded.
func (s *Store) InsertNote(n *NoteRecord, assignments []TagAssignment, links []LinkRecord) error {
	if s.notes[n.NoteID] != nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(
		`INSERT INTO notes (note_id, title, folder_id, markup_kind, source_location, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.NoteID, n.Title, n.FolderID, n.MarkupKind, n.SourceLocation, n.CreatedTime, n.UpdatedTime)
	if err != nil {
		return fmt.Errorf("cache: insert note %s: %w", n.NoteID, err)
	}

	for _, a := range assignments {
		_, err = tx.Exec(
			`INSERT OR IGNORE INTO note_tags (note_id, tag_id, title, created_at) VALUES (?, ?, ?, ?)`,
			a.NoteID, a.TagID, a.Title, a.CreatedTime)
		if err != nil {
			return fmt.Errorf("cache: insert note tag %s/%s: %w", a.NoteID, a.TagID, err)
		}
	}

	for _, l := range links {
		_, err = tx.Exec(
			`INSERT OR IGNORE INTO internal_links (note_id, resource_id, title, link_kind) VALUES (?, ?, ?, ?)`,
			l.NoteID, l.ResourceID, l.Title, l.Kind)
		if err != nil {
			return fmt.Errorf("cache: insert internal link %s/%s: %w", l.NoteID, l.ResourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache: commit note %s: %w", n.NoteID, err)
	}

	s.notes[n.NoteID] = n
	return nil
}

// Resource returns the resource record for an id, or nil.
func (s *Store) Resource(resourceID string) *ResourceRecord {
	return s.resources[resourceID]
}

// InsertResource persists an uploaded resource.
func (s *Store) InsertResource(r *ResourceRecord) error {
	if s.resources[r.ResourceID] != nil {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO resources (resource_id, title, filename, created_at, kind) VALUES (?, ?, ?, ?, ?)`,
		r.ResourceID, r.Title, r.Filename, r.CreatedTime, r.Kind)
	if err != nil {
		return fmt.Errorf("cache: insert resource %s: %w", r.ResourceID, err)
	}
	s.resources[r.ResourceID] = r
	return nil
}

// Tag returns the tag record for an id, or nil.
func (s *Store) Tag(tagID string) *TagRecord {
	return s.tags[tagID]
}

// InsertTag persists a created tag.
func (s *Store) InsertTag(t *TagRecord) error {
	if s.tags[t.TagID] != nil {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO tags (tag_id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		t.TagID, t.Title, t.CreatedTime, t.UpdatedTime)
	if err != nil {
		return fmt.Errorf("cache: insert tag %s: %w", t.TagID, err)
	}
	s.tags[t.TagID] = t
	return nil
}

// TagsForNote returns the tags assigned to a note. Missing notes yield an
// empty slice.
func (s *Store) TagsForNote(noteID string) ([]TagAssignment, error) {
	rows, err := s.db.Query(
		`SELECT note_id, tag_id, title, created_at FROM note_tags WHERE note_id = ?`, noteID)
	if err != nil {
		return nil, fmt.Errorf("cache: tags for note %s: %w", noteID, err)
	}
	defer rows.Close()

	var out []TagAssignment
	for rows.Next() {
		var a TagAssignment
		if err := rows.Scan(&a.NoteID, &a.TagID, &a.Title, &a.CreatedTime); err != nil {
			return nil, fmt.Errorf("cache: scan note tag: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LinksForNote returns the internal-link records for a note. Missing notes
// yield an empty slice.
func (s *Store) LinksForNote(noteID string) ([]LinkRecord, error) {
	rows, err := s.db.Query(
		`SELECT note_id, resource_id, title, link_kind FROM internal_links WHERE note_id = ?`, noteID)
	if err != nil {
		return nil, fmt.Errorf("cache: links for note %s: %w", noteID, err)
	}
	defer rows.Close()

	var out []LinkRecord
	for rows.Next() {
		var l LinkRecord
		if err := rows.Scan(&l.NoteID, &l.ResourceID, &l.Title, &l.Kind); err != nil {
			return nil, fmt.Errorf("cache: scan internal link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// nullable maps the empty string to SQL NULL so absent values round-trip
// through the schema's nullable columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
