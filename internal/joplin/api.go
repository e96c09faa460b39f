package joplin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// CreateFolder creates a notebook. parentID may be empty for a root folder.
func (c *Client) CreateFolder(ctx context.Context, title, parentID string) (*Folder, error) {
	payload := map[string]any{"title": title}
	if parentID != "" {
		payload["parent_id"] = parentID
	}

	var folder Folder
	if err := c.do(ctx, http.MethodPost, "/folders", nil, payload, &folder); err != nil {
		return nil, fmt.Errorf("create folder %q: %w", title, err)
	}
	return &folder, nil
}

// CreateTag creates a tag under a caller-chosen id. A uniqueness conflict
// (the tag already exists remotely) surfaces as an *APIError whose Conflict
// method returns true; callers recover by fetching the existing tag.
func (c *Client) CreateTag(ctx context.Context, id, title string, createdTime, updatedTime int64) (*Tag, error) {
	payload := map[string]any{
		"id":           id,
		"title":        title,
		"created_time": createdTime,
		"updated_time": updatedTime,
	}

	var tag Tag
	if err := c.do(ctx, http.MethodPost, "/tags", nil, payload, &tag); err != nil {
		return nil, fmt.Errorf("create tag %q: %w", title, err)
	}
	return &tag, nil
}

// GetTag fetches an existing tag by id.
func (c *Client) GetTag(ctx context.Context, id string) (*Tag, error) {
	extra := url.Values{"fields": {"id,title,created_time,updated_time"}}

	var tag Tag
	if err := c.do(ctx, http.MethodGet, "/tags/"+id, extra, nil, &tag); err != nil {
		return nil, fmt.Errorf("get tag %s: %w", id, err)
	}
	return &tag, nil
}

// ResourceProps are the optional properties sent alongside a resource
// upload. Only ID and Title are honored by the data API; the rest are
// accepted but ignored, which is fine.
type ResourceProps struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Filename    string `json:"filename,omitempty"`
	CreatedTime int64  `json:"created_time,omitempty"`
	UpdatedTime int64  `json:"updated_time,omitempty"`
}

// UploadResource uploads a file as a resource. The upload is a multipart
// form: the file bytes under "data" and a JSON property object under
// "props".
func (c *Client) UploadResource(ctx context.Context, filePath string, props ResourceProps) (*Resource, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open resource file: %w", err)
	}
	defer file.Close() //nolint:errcheck // read-only file

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("data", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy resource file: %w", err)
	}

	propsJSON, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("marshal resource props: %w", err)
	}
	if err := writer.WriteField("props", string(propsJSON)); err != nil {
		return nil, fmt.Errorf("write props field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	reqURL := c.baseURL + "/resources?" + c.query(nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resource Resource
	if err := c.send(ctx, req, http.MethodPost, "/resources", &resource); err != nil {
		return nil, fmt.Errorf("upload resource %q: %w", filepath.Base(filePath), err)
	}
	return &resource, nil
}

// NoteParams are the fields for a note create.
type NoteParams struct {
	ID             string
	Title          string
	Body           string
	MarkupLanguage int
	ParentFolderID string
	SourceURL      string
	CreatedTime    int64
	UpdatedTime    int64
}

// CreateNote creates a note under a caller-chosen id. The body is always
// sent as plain markdown; rich-text sources are flattened before reaching
// this call.
func (c *Client) CreateNote(ctx context.Context, params NoteParams) (*Note, error) {
	payload := map[string]any{
		"id":              params.ID,
		"title":           params.Title,
		"body":            params.Body,
		"parent_id":       params.ParentFolderID,
		"markup_language": MarkupMarkdown,
	}
	if params.SourceURL != "" {
		payload["source_url"] = params.SourceURL
	}
	if params.CreatedTime != 0 {
		payload["created_time"] = params.CreatedTime
	}
	if params.UpdatedTime != 0 {
		payload["updated_time"] = params.UpdatedTime
	}

	var note Note
	if err := c.do(ctx, http.MethodPost, "/notes", nil, payload, &note); err != nil {
		return nil, fmt.Errorf("create note %q: %w", params.Title, err)
	}
	return &note, nil
}
