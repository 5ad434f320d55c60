package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/foxtales/internal/entities"
)

// DownloadBookQueue is the queue name of DownloadBookTask.
const DownloadBookQueue = "download_book"

// BookDownloader stores a remote book locally.
type BookDownloader interface {
	Download(ctx context.Context, id string) (*entities.BookRecord, error)
}

// DownloadBookTask fetches one book from the books server into the library.
// A failed attempt leaves whatever was written; the retry downloads the
// whole book again.
type DownloadBookTask struct {
	BookID string `json:"book_id"`
}

// Config returns the queue configuration for book downloads.
func (t DownloadBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        DownloadBookQueue,
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DownloadBookProcessor creates a processor function for DownloadBookTask.
func DownloadBookProcessor(downloader BookDownloader) backlite.QueueProcessor[DownloadBookTask] {
	return func(ctx context.Context, task DownloadBookTask) error {
		if downloader == nil {
			return fmt.Errorf("downloader not configured")
		}

		record, err := downloader.Download(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("download book %s: %w", task.BookID, err)
		}

		log.Printf("[TASK] Downloaded book %s (%s): %d chapters", task.BookID, record.Title, len(record.Chapters))
		return nil
	}
}

// NewDownloadBookQueue creates a backlite queue for book downloads.
func NewDownloadBookQueue(downloader BookDownloader) backlite.Queue {
	return backlite.NewQueue(DownloadBookProcessor(downloader))
}

// EnqueueDownload adds a download task and returns its ID.
func (c *Client) EnqueueDownload(bookID string) (string, error) {
	ids, err := c.Add(DownloadBookTask{BookID: bookID}).Save()
	if err != nil {
		return "", fmt.Errorf("failed to queue download of book %s: %w", bookID, err)
	}
	return ids[0], nil
}
