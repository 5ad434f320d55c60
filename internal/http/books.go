package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/database/books"
	"github.com/mrlokans/foxtales/internal/entities"
	"github.com/mrlokans/foxtales/internal/library"
	"github.com/mrlokans/foxtales/internal/tasks"
)

// downloadTimeout bounds an inline download.
const downloadTimeout = 5 * time.Minute

// BookSummary is a library entry without its cover and chapter list.
type BookSummary struct {
	Identifier string              `json:"identifier"`
	Title      string              `json:"title"`
	Format     string              `json:"format,omitempty"`
	Chapters   int                 `json:"chapters"`
	HasCover   bool                `json:"has_cover"`
	Progress   entities.Progress   `json:"progress"`
	ReadStatus entities.ReadStatus `json:"read_status"`
}

func summarize(record entities.BookRecord) BookSummary {
	return BookSummary{
		Identifier: record.Identifier,
		Title:      record.Title,
		Format:     record.Format,
		Chapters:   len(record.Chapters),
		HasCover:   record.Cover != "",
		Progress:   record.Progress,
		ReadStatus: record.ReadStatus,
	}
}

type BooksController struct {
	books      *books.Repository
	downloader *library.Downloader
	taskClient *tasks.Client
}

func NewBooksController(repo *books.Repository, downloader *library.Downloader, taskClient *tasks.Client) *BooksController {
	return &BooksController{
		books:      repo,
		downloader: downloader,
		taskClient: taskClient,
	}
}

// ListBooks handles GET /api/books, most recently read first.
func (bc *BooksController) ListBooks(c *gin.Context) {
	records, err := bc.books.ListBooks(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	summaries := make([]BookSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, summarize(record))
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": summaries, "count": len(summaries)})
}

// GetBook handles GET /api/books/:id
// The response includes the chapters that were never stored.
func (bc *BooksController) GetBook(c *gin.Context) {
	ctx := c.Request.Context()

	record, err := bc.books.LoadBook(ctx, c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}

	missing, err := bc.books.MissingChapters(ctx, record)
	if err != nil {
		respondInternalError(c, err, "missing chapters")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"book": record, "missing_chapters": missing})
}

// DeleteBook handles DELETE /api/books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id := c.Param("id")
	if err := bc.books.DeleteBook(c.Request.Context(), id); err != nil {
		respondInternalError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book removed", gin.H{"identifier": id})
}

// GetChapter handles GET /api/books/:id/chapters/:chapter
func (bc *BooksController) GetChapter(c *gin.Context) {
	chapter, err := bc.books.LoadChapter(c.Request.Context(), c.Param("id"), c.Param("chapter"))
	if err != nil {
		respondStoreError(c, err, "chapter")
		return
	}
	c.JSON(http.StatusOK, chapter)
}

// GetCover handles GET /api/books/:id/cover
func (bc *BooksController) GetCover(c *gin.Context) {
	cover, err := bc.books.LoadCover(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "cover")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cover": cover})
}

// ListRemoteBooks handles GET /api/remote/books
func (bc *BooksController) ListRemoteBooks(c *gin.Context) {
	available, err := bc.downloader.Available(c.Request.Context())
	if err != nil {
		respondRemoteError(c, err, "list remote books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": available, "count": len(available)})
}

// Download handles POST /api/books/:id/download
// With a task queue the download is queued and 202 is returned with the
// task ID; otherwise it runs before responding.
func (bc *BooksController) Download(c *gin.Context) {
	id := database.Key(c.Param("id"))
	if id == "" {
		respondBadRequest(c, "book identifier is required")
		return
	}

	if bc.taskClient != nil {
		taskID, err := bc.taskClient.EnqueueDownload(id)
		if err != nil {
			respondInternalError(c, err, "queue download")
			return
		}
		respondAccepted(c, "download queued", gin.H{"task_id": taskID, "identifier": id})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), downloadTimeout)
	defer cancel()

	record, err := bc.downloader.Download(ctx, id)
	if err != nil {
		respondImportError(c, err, "download book")
		return
	}
	respondSuccess(c, "book downloaded", summarize(*record))
}

// ImportRequest is a complete book supplied by the client.
type ImportRequest struct {
	Metadata entities.BookMetadata     `json:"metadata"`
	Cover    string                    `json:"cover"`
	Chapters []entities.ChapterPayload `json:"chapters"`
}

// Import handles POST /api/books/import
// The book is stored locally; nothing is sent to the books server.
func (bc *BooksController) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	req.Metadata.Identifier = database.Key(req.Metadata.Identifier)
	if req.Metadata.Identifier == "" {
		respondBadRequest(c, "metadata.identifier is required")
		return
	}

	record, err := bc.downloader.Import(c.Request.Context(), req.Metadata, req.Cover, req.Chapters)
	if err != nil {
		respondImportError(c, err, "import book")
		return
	}
	respondCreated(c, "book imported", summarize(*record))
}
