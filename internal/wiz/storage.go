package wiz

import (
	"archive/zip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rongzh/wiz2joplin/internal/apperrors"
	"github.com/rongzh/wiz2joplin/internal/parser"
)

const (
	selectDocuments = `SELECT DOCUMENT_GUID, DOCUMENT_TITLE, DOCUMENT_LOCATION, DOCUMENT_URL,
		DT_CREATED, DT_MODIFIED, DOCUMENT_ATTACHEMENT_COUNT
		FROM WIZ_DOCUMENT ORDER BY DT_CREATED, DOCUMENT_GUID`

	selectAttachments = `SELECT ATTACHMENT_GUID, DOCUMENT_GUID, ATTACHMENT_NAME, DT_INFO_MODIFIED
		FROM WIZ_DOCUMENT_ATTACHMENT`

	selectTags = `SELECT TAG_GUID, TAG_NAME, DT_MODIFIED FROM WIZ_TAG`

	selectDocumentTags = `SELECT WIZ_DOCUMENT_TAG.DOCUMENT_GUID, WIZ_TAG.TAG_GUID, WIZ_TAG.TAG_NAME, WIZ_TAG.DT_MODIFIED
		FROM WIZ_DOCUMENT_TAG INNER JOIN WIZ_TAG ON WIZ_DOCUMENT_TAG.TAG_GUID = WIZ_TAG.TAG_GUID`

	selectBizGUID = `SELECT BIZ_GUID FROM WIZ_USER WHERE USER_ID = ?`
)

// Storage reads one WizNote account store: either the personal store under
// <wiznote-dir>/<user-id>/data/ or, for a group store, the one under
// <user-id>/group/<biz-guid>/.
type Storage struct {
	dataDir        string
	attachmentsDir string
	notesDir       string
	workDir        string
	db             *sql.DB
	logger         *slog.Logger
}

// StorageOption configures the storage.
type StorageOption func(*Storage)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) StorageOption {
	return func(s *Storage) {
		s.logger = l
	}
}

// WithWorkDir sets the directory note archives are extracted into. A document
// whose extraction directory already exists is not extracted again, so a
// persistent work directory carries extraction work across runs. Defaults to
// a fresh temporary directory.
func WithWorkDir(dir string) StorageOption {
	return func(s *Storage) {
		s.workDir = dir
	}
}

// OpenStorage opens the account store for userID under wiznoteDir. With group
// set, the account's group store is opened instead; its location is resolved
// through the BIZ_GUID recorded for the user in the personal catalog.
func OpenStorage(wiznoteDir, userID string, group bool, opts ...StorageOption) (*Storage, error) {
	s := &Storage{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	userDir := filepath.Join(wiznoteDir, userID)
	s.dataDir = filepath.Join(userDir, "data")

	if group {
		bizGUID, err := lookupBizGUID(filepath.Join(s.dataDir, "index.db"), userID)
		if err != nil {
			return nil, err
		}
		s.dataDir = filepath.Join(userDir, "group", bizGUID)
	}

	s.attachmentsDir = filepath.Join(s.dataDir, "attachments")
	s.notesDir = filepath.Join(s.dataDir, "notes")
	if err := checkDataDir(s.dataDir); err != nil {
		return nil, err
	}

	if s.workDir == "" {
		dir, err := os.MkdirTemp("", "w2j-notes-")
		if err != nil {
			return nil, fmt.Errorf("create work directory: %w", err)
		}
		s.workDir = dir
	} else if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+filepath.Join(s.dataDir, "index.db")+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open wiz catalog: %w", err)
	}
	s.db = db

	return s, nil
}

// Close closes the catalog connection. Extracted archives stay in the work
// directory.
func (s *Storage) Close() error {
	return s.db.Close()
}

// WorkDir returns the extraction directory.
func (s *Storage) WorkDir() string {
	return s.workDir
}

func checkDataDir(dataDir string) error {
	for _, p := range []string{
		filepath.Join(dataDir, "attachments"),
		filepath.Join(dataDir, "notes"),
		filepath.Join(dataDir, "index.db"),
	} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("not a wiznote data directory %q: %w", dataDir, err)
		}
	}
	return nil
}

// lookupBizGUID resolves the group store id through a short-lived connection
// to the personal catalog.
func lookupBizGUID(indexDB, userID string) (string, error) {
	db, err := sql.Open("sqlite3", "file:"+indexDB+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("open wiz catalog: %w", err)
	}
	defer db.Close()

	var bizGUID sql.NullString
	err = db.QueryRow(selectBizGUID, userID).Scan(&bizGUID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !bizGUID.Valid) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrGroupStorageNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("resolve group storage: %w", err)
	}
	return bizGUID.String, nil
}

// Tags returns every tag in the account.
func (s *Storage) Tags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, selectTags)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var guid, name, modified string
		if err := rows.Scan(&guid, &name, &modified); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		ts, err := parseTime(modified)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", guid, err)
		}
		tags = append(tags, Tag{GUID: guid, Name: name, UpdatedTime: ts})
	}
	return tags, rows.Err()
}

// Documents returns every document in the account with its tags and
// attachment records joined in. Bodies are not loaded; call ResolveBody per
// document before migrating it.
func (s *Storage) Documents(ctx context.Context) ([]*Document, error) {
	attachments, err := s.attachmentsByDocument(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.tagsByDocument(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectDocuments)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var (
			guid, title, location string
			url                   sql.NullString
			created, modified     string
			attachmentCount       sql.NullInt64
		)
		if err := rows.Scan(&guid, &title, &location, &url, &created, &modified, &attachmentCount); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		createdTS, err := parseTime(created)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", guid, err)
		}
		modifiedTS, err := parseTime(modified)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", guid, err)
		}

		doc := newDocument(guid, title, location, url.String, createdTS, modifiedTS, int(attachmentCount.Int64))
		doc.Attachments = attachments[guid]
		doc.Tags = tags[guid]
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Storage) attachmentsByDocument(ctx context.Context) (map[string][]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, selectAttachments)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Attachment)
	for rows.Next() {
		var guid, docGUID, name, modified string
		if err := rows.Scan(&guid, &docGUID, &name, &modified); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		ts, err := parseTime(modified)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", guid, err)
		}
		out[docGUID] = append(out[docGUID], Attachment{
			GUID:         guid,
			DocumentGUID: docGUID,
			Name:         name,
			UpdatedTime:  ts,
			File:         filepath.Join(s.attachmentsDir, "{"+guid+"}"+name),
		})
	}
	return out, rows.Err()
}

func (s *Storage) tagsByDocument(ctx context.Context) (map[string][]Tag, error) {
	rows, err := s.db.QueryContext(ctx, selectDocumentTags)
	if err != nil {
		return nil, fmt.Errorf("query document tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Tag)
	for rows.Next() {
		var docGUID, guid, name, modified string
		if err := rows.Scan(&docGUID, &guid, &name, &modified); err != nil {
			return nil, fmt.Errorf("scan document tag: %w", err)
		}
		ts, err := parseTime(modified)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", guid, err)
		}
		out[docGUID] = append(out[docGUID], Tag{GUID: guid, Name: name, UpdatedTime: ts})
	}
	return out, rows.Err()
}

// ResolveBody extracts the document archive, decodes its index.html and
// populates Body, Links and Images. The attachment records are verified
// against the declared count and against the attachment files on disk; a
// mismatch fails the document without touching the archive. Errors here are
// per-document: the caller skips the document and moves on.
func (s *Storage) ResolveBody(doc *Document) error {
	if len(doc.Attachments) != doc.AttachmentCount {
		return fmt.Errorf("%w: document %s has %d records, catalog says %d",
			apperrors.ErrAttachmentCountMismatch, doc.GUID, len(doc.Attachments), doc.AttachmentCount)
	}
	for _, a := range doc.Attachments {
		if _, err := os.Stat(a.File); err != nil {
			return fmt.Errorf("attachment file for document %s: %w", doc.GUID, err)
		}
	}

	extractDir, err := s.extract(doc.GUID)
	if err != nil {
		return err
	}

	body, err := readIndexHTML(filepath.Join(extractDir, "index.html"))
	if err != nil {
		return fmt.Errorf("document %s: %w", doc.GUID, err)
	}
	doc.Body = body

	links, images := parser.ParseBody(body)
	doc.Links = links

	doc.Images = doc.Images[:0]
	for _, img := range images {
		file := filepath.Join(extractDir, filepath.FromSlash(img.Src))
		if _, err := os.Stat(file); err != nil {
			s.logger.Warn("image file missing, dropping reference",
				"document", doc.GUID, "src", img.Src)
			continue
		}
		doc.Images = append(doc.Images, Image{OuterHTML: img.OuterHTML, Src: img.Src, File: file})
	}
	return nil
}

// extract unpacks the note archive into the work directory, keyed by guid.
// An existing extraction directory is reused as is.
func (s *Storage) extract(guid string) (string, error) {
	dest := filepath.Join(s.workDir, guid)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	noteFile := filepath.Join(s.notesDir, "{"+guid+"}")
	zr, err := zip.OpenReader(noteFile)
	if err != nil {
		// Typically a password-protected note, stored encrypted.
		return "", fmt.Errorf("open note archive %q: %w", noteFile, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := extractFile(dest, f); err != nil {
			return "", fmt.Errorf("extract note archive %q: %w", noteFile, err)
		}
	}
	return dest, nil
}

func extractFile(dest string, f *zip.File) error {
	path := filepath.Join(dest, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes extraction directory", f.Name)
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(path, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// readIndexHTML reads a document body. Old clients saved index.html as
// UTF-16 LE with a BOM, newer ones as UTF-8 with a BOM; the BOM picks the
// decoder, plain UTF-8 is the fallback. Newlines are stripped because old
// clients wrapped lines mid-tag.
func readIndexHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(f, decoder))
	if err != nil {
		return "", fmt.Errorf("decode %q: %w", path, err)
	}

	body := strings.ReplaceAll(string(data), "\r\n", "")
	return strings.ReplaceAll(body, "\n", ""), nil
}
