package entities

// ChapterRef points at one chapter payload stored in the book's content database.
type ChapterRef struct {
	Identifier string `json:"identifier"`
	ContentRef string `json:"content_ref,omitempty"`
}

// Progress is the reading position of a book. LastUpdated is a unix timestamp
// in seconds.
type Progress struct {
	Chapter     int   `json:"chapter"`
	Position    int   `json:"position"`
	LastUpdated int64 `json:"lastUpdated"`
}

// ReadStatus marks whether a book has been finished.
type ReadStatus struct {
	Read        bool  `json:"read"`
	LastUpdated int64 `json:"lastUpdated"`
}

// BookRecord is the document stored in the "books" table, keyed by Identifier.
type BookRecord struct {
	Identifier string       `json:"identifier"`
	Title      string       `json:"title"`
	Format     string       `json:"format,omitempty"`
	MimeType   string       `json:"mimetype,omitempty"`
	Version    int          `json:"version"`
	Chapters   []ChapterRef `json:"chapters"`
	Progress   Progress     `json:"progress"`
	ReadStatus ReadStatus   `json:"read_status"`
	Cover      string       `json:"cover,omitempty"` // base64 image
}

// BookMetadata is the part of a record supplied by the remote library or an
// import; progress and read status are owned locally.
type BookMetadata struct {
	Identifier string       `json:"identifier"`
	Title      string       `json:"title"`
	Format     string       `json:"format,omitempty"`
	MimeType   string       `json:"mimetype,omitempty"`
	Version    int          `json:"version"`
	Chapters   []ChapterRef `json:"chapters,omitempty"`
	Progress   *Progress    `json:"progress,omitempty"`
}

// ChapterPayload is one entry of a per-book content table. Data holds the raw
// chapter text or a base64 image page.
type ChapterPayload struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// Position is a chapter/offset pair without a timestamp.
type Position struct {
	Chapter  int `json:"chapter"`
	Position int `json:"position"`
}
