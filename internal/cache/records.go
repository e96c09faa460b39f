package cache

// FolderRecord ties a source location path to its Joplin folder. RemoteID
// stays empty until the folder has been created remotely, and is set at most
// once after that.
type FolderRecord struct {
	Location       string
	Title          string
	ParentLocation string // empty for a depth-1 location
	Level          int    // 1-based depth, equals the number of path segments
	RemoteID       string
	RemoteParentID string
}

// NoteRecord marks a document as fully migrated. Its presence in the store
// is the single source of truth for "already migrated".
type NoteRecord struct {
	NoteID         string
	Title          string
	FolderID       string
	MarkupKind     int
	SourceLocation string
	CreatedTime    int64
	UpdatedTime    int64
}

// ResourceRecord marks a binary asset as uploaded.
type ResourceRecord struct {
	ResourceID  string
	Title       string
	Filename    string
	CreatedTime int64
	Kind        int // joplin.ResourceAttachment or joplin.ResourceImage
}

// LinkRecord is a resolved cross reference from a note to a resource or to
// another note. The (NoteID, ResourceID) pair is unique.
type LinkRecord struct {
	NoteID     string
	ResourceID string
	Title      string
	Kind       string // parser.LinkKindImage, LinkKindAttachment or LinkKindDocument
}

// TagRecord marks a tag as created remotely.
type TagRecord struct {
	TagID       string
	Title       string
	CreatedTime int64
	UpdatedTime int64
}

// TagAssignment binds a tag to a note. It is only written once both sides
// exist in the store.
type TagAssignment struct {
	NoteID      string
	TagID       string
	Title       string
	CreatedTime int64
}

// Stats summarizes the store contents for status reporting.
type Stats struct {
	Folders        int
	FoldersPending int // hierarchy nodes without a remote id yet
	Notes          int
	Resources      int
	Tags           int
}
