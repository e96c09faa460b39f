package cache

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "w2j.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_EmptyStore(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)

	if got := s.Folder("/a/"); got != nil {
		t.Errorf("Folder() on empty store = %v, want nil", got)
	}
	if got := s.Note("missing"); got != nil {
		t.Errorf("Note() on empty store = %v, want nil", got)
	}
	if got := s.Resource("missing"); got != nil {
		t.Errorf("Resource() on empty store = %v, want nil", got)
	}
	if got := s.Tag("missing"); got != nil {
		t.Errorf("Tag() on empty store = %v, want nil", got)
	}
}

func TestInsertFolder_SurvivesReopen(t *testing.T) {
	t.Parallel()

	s, path := openTestStore(t)

	err := s.InsertFolder(&FolderRecord{
		Location:       "/a/b/",
		Title:          "b",
		ParentLocation: "/a/",
		Level:          2,
	})
	if err != nil {
		t.Fatalf("InsertFolder() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	f := reopened.Folder("/a/b/")
	if f == nil {
		t.Fatal("Folder() after reopen = nil")
	}
	if f.Title != "b" || f.ParentLocation != "/a/" || f.Level != 2 {
		t.Errorf("folder after reopen = %+v", f)
	}
	if f.RemoteID != "" {
		t.Errorf("RemoteID should be empty before remote create, got %q", f.RemoteID)
	}
}

func TestSetFolderRemote(t *testing.T) {
	t.Parallel()

	s, path := openTestStore(t)

	if err := s.InsertFolder(&FolderRecord{Location: "/a/", Title: "a", Level: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFolderRemote("/a/", "aaaa1111", ""); err != nil {
		t.Fatalf("SetFolderRemote() error: %v", err)
	}

	if got := s.FolderByRemoteID("aaaa1111"); got == nil || got.Location != "/a/" {
		t.Errorf("FolderByRemoteID() = %v", got)
	}

	// The remote id is set at most once.
	if err := s.SetFolderRemote("/a/", "bbbb2222", ""); err == nil {
		t.Error("SetFolderRemote() should refuse to change an existing remote id")
	}

	s.Close()
	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if got := reopened.Folder("/a/").RemoteID; got != "aaaa1111" {
		t.Errorf("RemoteID after reopen = %q", got)
	}
}

func TestSetFolderRemote_UnknownLocation(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)
	if err := s.SetFolderRemote("/nope/", "id", ""); err == nil {
		t.Error("SetFolderRemote() should fail for an unknown location")
	}
}

func TestPendingFolders_SortedByLevel(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)

	folders := []*FolderRecord{
		{Location: "/a/b/c/", Title: "c", ParentLocation: "/a/b/", Level: 3},
		{Location: "/a/", Title: "a", Level: 1},
		{Location: "/a/d/", Title: "d", ParentLocation: "/a/", Level: 2},
		{Location: "/a/b/", Title: "b", ParentLocation: "/a/", Level: 2},
	}
	for _, f := range folders {
		if err := s.InsertFolder(f); err != nil {
			t.Fatal(err)
		}
	}

	pending := s.PendingFolders()
	wantOrder := []string{"/a/", "/a/b/", "/a/d/", "/a/b/c/"}
	if len(pending) != len(wantOrder) {
		t.Fatalf("PendingFolders() = %d entries, want %d", len(pending), len(wantOrder))
	}
	for i, want := range wantOrder {
		if pending[i].Location != want {
			t.Errorf("pending[%d] = %q, want %q", i, pending[i].Location, want)
		}
	}

	// Created folders drop out of the pending set.
	if err := s.SetFolderRemote("/a/", "rootid", ""); err != nil {
		t.Fatal(err)
	}
	if got := len(s.PendingFolders()); got != 3 {
		t.Errorf("PendingFolders() after create = %d, want 3", got)
	}
}

func TestInsertNote_WritesRowsAsUnit(t *testing.T) {
	t.Parallel()

	s, path := openTestStore(t)

	note := &NoteRecord{
		NoteID:         "note0001",
		Title:          "meeting notes",
		FolderID:       "folder01",
		MarkupKind:     1,
		SourceLocation: "/work/",
		CreatedTime:    1000,
		UpdatedTime:    2000,
	}
	assignments := []TagAssignment{
		{NoteID: "note0001", TagID: "tag00001", Title: "work", CreatedTime: 1000},
	}
	links := []LinkRecord{
		{NoteID: "note0001", ResourceID: "res00001", Title: "report.pdf", Kind: "open_attachment"},
		{NoteID: "note0001", ResourceID: "res00002", Title: "chart.png", Kind: "image"},
	}

	if err := s.InsertNote(note, assignments, links); err != nil {
		t.Fatalf("InsertNote() error: %v", err)
	}

	if got := s.Note("note0001"); got == nil || got.Title != "meeting notes" {
		t.Errorf("Note() = %v", got)
	}

	// Re-inserting an existing note is a no-op.
	if err := s.InsertNote(note, nil, nil); err != nil {
		t.Errorf("InsertNote() on existing note should be a no-op, got %v", err)
	}

	s.Close()
	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	tags, err := reopened.TagsForNote("note0001")
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].TagID != "tag00001" {
		t.Errorf("TagsForNote() = %v", tags)
	}

	noteLinks, err := reopened.LinksForNote("note0001")
	if err != nil {
		t.Fatal(err)
	}
	if len(noteLinks) != 2 {
		t.Fatalf("LinksForNote() = %d entries, want 2", len(noteLinks))
	}
}

func TestInsertResource_Idempotent(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)

	r := &ResourceRecord{ResourceID: "res00001", Title: "report.pdf", Filename: "report.pdf", CreatedTime: 1, Kind: 1}
	if err := s.InsertResource(r); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertResource(r); err != nil {
		t.Errorf("InsertResource() twice should be a no-op, got %v", err)
	}
	if got := s.Resource("res00001"); got == nil {
		t.Error("Resource() = nil after insert")
	}
}

func TestInsertTag_Idempotent(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)

	tag := &TagRecord{TagID: "tag00001", Title: "work", CreatedTime: 1, UpdatedTime: 1}
	if err := s.InsertTag(tag); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertTag(tag); err != nil {
		t.Errorf("InsertTag() twice should be a no-op, got %v", err)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)

	_ = s.InsertFolder(&FolderRecord{Location: "/a/", Title: "a", Level: 1})
	_ = s.InsertFolder(&FolderRecord{Location: "/a/b/", Title: "b", ParentLocation: "/a/", Level: 2})
	_ = s.SetFolderRemote("/a/", "rootid", "")
	_ = s.InsertTag(&TagRecord{TagID: "t1", Title: "work", CreatedTime: 1, UpdatedTime: 1})

	st := s.Stats()
	if st.Folders != 2 || st.FoldersPending != 1 || st.Tags != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}
