package hierarchy

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/rongzh/wiz2joplin/internal/cache"
)

func newTestResolver(t *testing.T) (*Resolver, *cache.Store) {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "w2j.sqlite"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewResolver(store), store
}

func TestParseLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		location   string
		wantTitle  string
		wantParent string
		wantLevel  int
	}{
		{"/a/", "a", "", 1},
		{"/a/b/", "b", "/a/", 2},
		{"/a/b/c/", "c", "/a/b/", 3},
		{"/My Notes/", "My Notes", "", 1},
		// Trailing-separator variants normalize to the same node.
		{"/a/b", "b", "/a/", 2},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			t.Parallel()
			title, parent, level := ParseLocation(tt.location)
			if title != tt.wantTitle || parent != tt.wantParent || level != tt.wantLevel {
				t.Errorf("ParseLocation(%q) = (%q, %q, %d), want (%q, %q, %d)",
					tt.location, title, parent, level, tt.wantTitle, tt.wantParent, tt.wantLevel)
			}
		})
	}
}

func TestResolve_BuildsAllAncestors(t *testing.T) {
	t.Parallel()

	r, store := newTestResolver(t)

	node, err := r.Resolve("/a/b/c/")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if node.Location != "/a/b/c/" || node.Level != 3 {
		t.Errorf("deepest node = %+v", node)
	}

	if _, err := r.Resolve("/a/d/"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	var locations []string
	for _, f := range store.Folders() {
		locations = append(locations, f.Location)
	}
	sort.Strings(locations)
	want := []string{"/a/", "/a/b/", "/a/b/c/", "/a/d/"}
	if len(locations) != len(want) {
		t.Fatalf("node set = %v, want %v", locations, want)
	}
	for i := range want {
		if locations[i] != want[i] {
			t.Fatalf("node set = %v, want %v", locations, want)
		}
	}

	levels := map[string]int{"/a/": 1, "/a/b/": 2, "/a/b/c/": 3, "/a/d/": 2}
	for loc, wantLevel := range levels {
		if got := store.Folder(loc).Level; got != wantLevel {
			t.Errorf("level(%q) = %d, want %d", loc, got, wantLevel)
		}
	}
	if got := store.Folder("/a/b/c/").ParentLocation; got != "/a/b/" {
		t.Errorf("parent of /a/b/c/ = %q, want /a/b/", got)
	}

	if r.MaxLevel() != 3 {
		t.Errorf("MaxLevel() = %d, want 3", r.MaxLevel())
	}
}

func TestResolve_RootHasNoParent(t *testing.T) {
	t.Parallel()

	r, store := newTestResolver(t)

	node, err := r.Resolve("/top/")
	if err != nil {
		t.Fatal(err)
	}
	if node.ParentLocation != "" {
		t.Errorf("root node parent = %q, want empty", node.ParentLocation)
	}
	if len(store.Folders()) != 1 {
		t.Errorf("node set size = %d, want 1", len(store.Folders()))
	}
}

func TestResolve_Memoized(t *testing.T) {
	t.Parallel()

	r, store := newTestResolver(t)

	if _, err := r.Resolve("/a/b/"); err != nil {
		t.Fatal(err)
	}
	first := store.Folder("/a/b/")

	// Resolving again must reuse the same node, not recreate it.
	again, err := r.Resolve("/a/b/")
	if err != nil {
		t.Fatal(err)
	}
	if again != first {
		t.Error("Resolve() should return the memoized node")
	}
	if len(store.Folders()) != 2 {
		t.Errorf("node set size = %d, want 2", len(store.Folders()))
	}
}

func TestResolve_PicksUpPersistedNodes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "w2j.sqlite")

	store, err := cache.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(store)
	if _, err := r.Resolve("/a/b/c/"); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := cache.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	fresh := NewResolver(reopened)
	if fresh.MaxLevel() != 3 {
		t.Errorf("MaxLevel() from persisted nodes = %d, want 3", fresh.MaxLevel())
	}
	if _, err := fresh.Resolve("/a/b/c/"); err != nil {
		t.Fatal(err)
	}
	if got := len(reopened.Folders()); got != 3 {
		t.Errorf("node set size after re-resolve = %d, want 3", got)
	}
}

func TestDescendants(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	for _, loc := range []string{"/a/b/c/", "/a/b/d/", "/a/e/", "/x/"} {
		if _, err := r.Resolve(loc); err != nil {
			t.Fatal(err)
		}
	}

	got, err := r.Descendants("/a/")
	if err != nil {
		t.Fatalf("Descendants() error: %v", err)
	}
	sort.Strings(got)
	want := []string{"/a/b/", "/a/b/c/", "/a/b/d/", "/a/e/"}
	if len(got) != len(want) {
		t.Fatalf("Descendants() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Descendants() = %v, want %v", got, want)
		}
	}

	leaf, err := r.Descendants("/x/")
	if err != nil {
		t.Fatal(err)
	}
	if len(leaf) != 0 {
		t.Errorf("Descendants() of a leaf = %v, want empty", leaf)
	}
}

func TestDescendants_UnknownLocation(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)
	if _, err := r.Descendants("/missing/"); err == nil {
		t.Error("Descendants() should fail for an unknown location")
	}
}
