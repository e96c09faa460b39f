// Package sync drives the migration: folders first, tags second, then the
// documents one by one. Every remote create is recorded in the local store
// before the next step, so an interrupted run resumes without duplicating
// anything already created.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rongzh/wiz2joplin/internal/apperrors"
	"github.com/rongzh/wiz2joplin/internal/cache"
	"github.com/rongzh/wiz2joplin/internal/converter"
	"github.com/rongzh/wiz2joplin/internal/hierarchy"
	"github.com/rongzh/wiz2joplin/internal/joplin"
	"github.com/rongzh/wiz2joplin/internal/parser"
	"github.com/rongzh/wiz2joplin/internal/wiz"
)

// Result counts what one run did. Skipped documents failed individually and
// were left behind without stopping the run; the caller decides whether that
// fails the process.
type Result struct {
	Folders  int // folders created remotely this run
	Tags     int // tags created remotely this run
	Notes    int // notes migrated this run
	Existing int // notes already migrated by an earlier run
	Skipped  int // notes skipped because of per-document errors
}

// Syncer migrates one WizNote account store into Joplin.
type Syncer struct {
	client   *joplin.Client
	store    *cache.Store
	storage  *wiz.Storage
	resolver *hierarchy.Resolver
	logger   *slog.Logger
}

// Option configures the syncer.
type Option func(*Syncer)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = l
	}
}

// NewSyncer wires a syncer over the remote client, the local store and the
// account storage.
func NewSyncer(client *joplin.Client, store *cache.Store, storage *wiz.Storage, opts ...Option) *Syncer {
	s := &Syncer{
		client:  client,
		store:   store,
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = hierarchy.NewResolver(store, hierarchy.WithLogger(s.logger))
	return s
}

// SyncAll migrates every document in the account.
func (s *Syncer) SyncAll(ctx context.Context) (*Result, error) {
	return s.run(ctx, nil)
}

// SyncLocation migrates the documents under one location, optionally
// including every descendant location.
func (s *Syncer) SyncLocation(ctx context.Context, location string, withChildren bool) (*Result, error) {
	return s.run(ctx, func(docs []*wiz.Document) ([]*wiz.Document, error) {
		wanted := map[string]bool{location: true}
		if s.store.Folder(location) == nil {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrLocationNotFound, location)
		}
		if withChildren {
			children, err := s.resolver.Descendants(location)
			if err != nil {
				return nil, err
			}
			for _, loc := range children {
				wanted[loc] = true
			}
		}

		var out []*wiz.Document
		for _, d := range docs {
			if wanted[d.Location] {
				out = append(out, d)
			}
		}
		return out, nil
	})
}

// run is the shared driver: load the catalog, resolve the hierarchy, create
// folders and tags, then migrate the selected documents. A nil selectDocs
// migrates every document; the filter runs after the hierarchy is complete
// so it can see every resolved location.
func (s *Syncer) run(ctx context.Context, selectDocs func([]*wiz.Document) ([]*wiz.Document, error)) (*Result, error) {
	docs, err := s.storage.Documents(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if _, err := s.resolver.Resolve(d.Location); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	if err := s.syncFolders(ctx, res); err != nil {
		return res, err
	}
	if err := s.syncTags(ctx, res); err != nil {
		return res, err
	}

	selected := docs
	if selectDocs != nil {
		if selected, err = selectDocs(docs); err != nil {
			return res, err
		}
	}

	s.logger.Info("migrating documents", "count", len(selected))
	for _, d := range selected {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.syncNote(ctx, d, res); err != nil {
			res.Skipped++
			s.logger.Error("document skipped", "guid", d.GUID, "title", d.Title, "error", err)
		}
	}
	return res, nil
}

// syncFolders creates every pending folder, parents before children. A
// parent without a remote id at this point is a defect in the level ordering
// and aborts the run.
func (s *Syncer) syncFolders(ctx context.Context, res *Result) error {
	pending := s.store.PendingFolders()
	s.logger.Info("creating folders", "count", len(pending))

	for _, f := range pending {
		parentID := ""
		if f.ParentLocation != "" {
			parent := s.store.Folder(f.ParentLocation)
			if parent == nil || parent.RemoteID == "" {
				return fmt.Errorf("%w: %q", apperrors.ErrParentNotResolved, f.ParentLocation)
			}
			parentID = parent.RemoteID
		}

		folder, err := s.client.CreateFolder(ctx, f.Title, parentID)
		if err != nil {
			return err
		}
		if err := s.store.SetFolderRemote(f.Location, folder.ID, parentID); err != nil {
			return err
		}
		res.Folders++
		s.logger.Debug("folder created", "location", f.Location, "id", folder.ID)
	}
	return nil
}

// syncTags creates every account tag not yet in the store, under the id
// derived from its source guid. A uniqueness conflict means the tag exists
// remotely from a run whose local record was lost; it is fetched and
// recorded instead of created.
func (s *Syncer) syncTags(ctx context.Context, res *Result) error {
	tags, err := s.storage.Tags(ctx)
	if err != nil {
		return err
	}

	for _, wt := range tags {
		id := parser.ToJoplinID(wt.GUID)
		if s.store.Tag(id) != nil {
			continue
		}

		tag, err := s.client.CreateTag(ctx, id, wt.Name, wt.UpdatedTime, wt.UpdatedTime)
		if err != nil {
			var apiErr *joplin.APIError
			if !errors.As(err, &apiErr) || !apiErr.Conflict() {
				return err
			}
			s.logger.Warn("tag already exists remotely, recording it", "id", id, "title", wt.Name)
			if tag, err = s.client.GetTag(ctx, id); err != nil {
				return err
			}
		} else {
			res.Tags++
		}

		if err := s.store.InsertTag(&cache.TagRecord{
			TagID:       tag.ID,
			Title:       tag.Title,
			CreatedTime: wt.UpdatedTime,
			UpdatedTime: wt.UpdatedTime,
		}); err != nil {
			return err
		}
	}
	return nil
}

// syncNote migrates one document: resources first, then the rewritten note,
// then the local rows as one unit. A note already in the store short-circuits
// the whole document, resources included.
func (s *Syncer) syncNote(ctx context.Context, doc *wiz.Document, res *Result) error {
	noteID := parser.ToJoplinID(doc.GUID)
	if s.store.Note(noteID) != nil {
		res.Existing++
		s.logger.Debug("note already migrated", "id", noteID, "title", doc.Title)
		return nil
	}

	if err := s.storage.ResolveBody(doc); err != nil {
		return err
	}

	var links []converter.Link
	seen := map[string]bool{}
	add := func(l converter.Link) {
		if seen[l.ResourceID] {
			return
		}
		seen[l.ResourceID] = true
		links = append(links, l)
	}

	for _, wil := range doc.Links {
		add(converter.Link{
			NoteID:         noteID,
			ResourceID:     parser.ToJoplinID(wil.GUID),
			Title:          wil.Title,
			Kind:           wil.Kind,
			OriginalMarkup: wil.OuterHTML,
		})
	}

	// Attachments carry a stable source guid, so the derived resource id
	// dedups re-uploads across runs. One never hyperlinked from the body
	// becomes an orphan link, surfaced by the body rewrite.
	for _, att := range doc.Attachments {
		rid := parser.ToJoplinID(att.GUID)
		if err := s.uploadAttachment(ctx, att, rid); err != nil {
			return err
		}
		add(converter.Link{
			NoteID:     noteID,
			ResourceID: rid,
			Title:      att.Name,
			Kind:       parser.LinkKindAttachment,
		})
	}

	// Images have no source guid; the remote side assigns their ids, so an
	// interrupted run re-uploads them. Harmless beyond the duplicate bytes.
	for _, img := range doc.Images {
		resource, err := s.client.UploadResource(ctx, img.File, joplin.ResourceProps{
			Title:    img.Src,
			Filename: img.Src,
		})
		if err != nil {
			return err
		}
		if err := s.store.InsertResource(&cache.ResourceRecord{
			ResourceID:  resource.ID,
			Title:       img.Src,
			Filename:    img.Src,
			CreatedTime: doc.CreatedTime,
			Kind:        joplin.ResourceImage,
		}); err != nil {
			return err
		}
		add(converter.Link{
			NoteID:         noteID,
			ResourceID:     resource.ID,
			Title:          img.Src,
			Kind:           parser.LinkKindImage,
			OriginalMarkup: img.OuterHTML,
		})
	}

	body := converter.RewriteBody(doc.Body, doc.Markdown, links)

	folder := s.store.Folder(doc.Location)
	if folder == nil || folder.RemoteID == "" {
		return fmt.Errorf("%w: %q", apperrors.ErrParentNotResolved, doc.Location)
	}

	note, err := s.client.CreateNote(ctx, joplin.NoteParams{
		ID:             noteID,
		Title:          doc.Title,
		Body:           body,
		ParentFolderID: folder.RemoteID,
		SourceURL:      doc.URL,
		CreatedTime:    doc.CreatedTime,
		UpdatedTime:    doc.UpdatedTime,
	})
	if err != nil {
		return err
	}

	markupKind := joplin.MarkupHTML
	if doc.Markdown {
		markupKind = joplin.MarkupMarkdown
	}
	record := &cache.NoteRecord{
		NoteID:         note.ID,
		Title:          doc.Title,
		FolderID:       folder.RemoteID,
		MarkupKind:     markupKind,
		SourceLocation: doc.Location,
		CreatedTime:    doc.CreatedTime,
		UpdatedTime:    doc.UpdatedTime,
	}

	var assignments []cache.TagAssignment
	for _, wt := range doc.Tags {
		assignments = append(assignments, cache.TagAssignment{
			NoteID:      note.ID,
			TagID:       parser.ToJoplinID(wt.GUID),
			Title:       wt.Name,
			CreatedTime: wt.UpdatedTime,
		})
	}
	linkRecords := make([]cache.LinkRecord, 0, len(links))
	for _, l := range links {
		linkRecords = append(linkRecords, cache.LinkRecord{
			NoteID:     l.NoteID,
			ResourceID: l.ResourceID,
			Title:      l.Title,
			Kind:       l.Kind,
		})
	}

	if err := s.store.InsertNote(record, assignments, linkRecords); err != nil {
		return err
	}
	res.Notes++
	s.logger.Info("note migrated", "id", note.ID, "title", doc.Title, "location", doc.Location)
	return nil
}

// uploadAttachment uploads one attachment unless its resource id is already
// recorded.
func (s *Syncer) uploadAttachment(ctx context.Context, att wiz.Attachment, resourceID string) error {
	if s.store.Resource(resourceID) != nil {
		s.logger.Debug("attachment already uploaded", "id", resourceID, "name", att.Name)
		return nil
	}

	resource, err := s.client.UploadResource(ctx, att.File, joplin.ResourceProps{
		ID:          resourceID,
		Title:       att.Name,
		Filename:    att.Name,
		CreatedTime: att.UpdatedTime,
		UpdatedTime: att.UpdatedTime,
	})
	if err != nil {
		return err
	}
	return s.store.InsertResource(&cache.ResourceRecord{
		ResourceID:  resource.ID,
		Title:       att.Name,
		Filename:    att.Name,
		CreatedTime: att.UpdatedTime,
		Kind:        joplin.ResourceAttachment,
	})
}
