// Package hierarchy rebuilds a folder tree from the flat, slash-delimited
// location paths the source system stores on its documents. Locations are
// not first-class resources there; every distinct path, including ancestors
// never referenced directly by a document, becomes a folder node.
package hierarchy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rongzh/wiz2joplin/internal/apperrors"
	"github.com/rongzh/wiz2joplin/internal/cache"
)

// Resolver builds and memoizes hierarchy nodes backed by the cache store.
type Resolver struct {
	store    *cache.Store
	maxLevel int
	resolved map[string]bool
	logger   *slog.Logger
}

// ResolverOption configures the resolver.
type ResolverOption func(*Resolver)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a resolver over the given store. Nodes already in the
// store count toward the running maximum level.
func NewResolver(store *cache.Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:    store,
		resolved: make(map[string]bool),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, f := range store.Folders() {
		if f.Level > r.maxLevel {
			r.maxLevel = f.Level
		}
	}
	return r
}

// ParseLocation splits a location path into its title, parent location and
// 1-based level. Exactly one leading and one trailing separator are stripped
// before splitting, so paths differing only in those normalize to the same
// node. A depth-1 path has no parent.
func ParseLocation(location string) (title, parentLocation string, level int) {
	trimmed := strings.TrimPrefix(strings.TrimSuffix(location, "/"), "/")
	segments := strings.Split(trimmed, "/")

	level = len(segments)
	title = segments[level-1]
	if level > 1 {
		parentLocation = "/" + strings.Join(segments[:level-1], "/") + "/"
	}
	return title, parentLocation, level
}

// Resolve walks a location path upward, creating and persisting a node for
// every level that does not exist yet, and returns the node for the deepest
// path. Resolution is memoized per run, so no path is processed twice.
func (r *Resolver) Resolve(location string) (*cache.FolderRecord, error) {
	node, err := r.resolveUp(location)
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (r *Resolver) resolveUp(location string) (*cache.FolderRecord, error) {
	node := r.store.Folder(location)
	if node == nil {
		title, parentLocation, level := ParseLocation(location)
		node = &cache.FolderRecord{
			Location:       location,
			Title:          title,
			ParentLocation: parentLocation,
			Level:          level,
		}
		if err := r.store.InsertFolder(node); err != nil {
			return nil, err
		}
		r.logger.Debug("hierarchy node created", "location", location, "level", level)
	}

	if node.Level > r.maxLevel {
		r.maxLevel = node.Level
	}

	if node.ParentLocation != "" && !r.resolved[node.ParentLocation] {
		if _, err := r.resolveUp(node.ParentLocation); err != nil {
			return nil, err
		}
	}
	r.resolved[location] = true

	return node, nil
}

// MaxLevel returns the deepest level seen so far. It bounds traversal depth
// during the level-ordered folder creation pass.
func (r *Resolver) MaxLevel() int {
	return r.maxLevel
}

// Descendants returns the locations of every node below the given one, in
// parent-before-child order. The scan is linear over all nodes and repeats
// per level; hierarchies are small (hundreds of folders), so no adjacency
// index is kept.
func (r *Resolver) Descendants(location string) ([]string, error) {
	root := r.store.Folder(location)
	if root == nil {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrLocationNotFound, location)
	}

	var out []string
	r.collectChildren(root, &out)
	return out, nil
}

func (r *Resolver) collectChildren(parent *cache.FolderRecord, out *[]string) {
	for _, f := range r.store.Folders() {
		if f.Level > parent.Level && f.ParentLocation == parent.Location {
			*out = append(*out, f.Location)
			r.collectChildren(f, out)
		}
	}
}
