package library

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/database/books"
	"github.com/mrlokans/foxtales/internal/entities"
	"github.com/mrlokans/foxtales/internal/remote"
)

func setupDownloader(t *testing.T, handler http.HandlerFunc) (*Downloader, *books.Repository) {
	t.Helper()
	store, err := database.NewLibraryStore(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	repo := books.NewRepository(store)
	return NewDownloader(repo, remote.NewClient(server.URL)), repo
}

func booksServer(coverStatus int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/list_books":
			_, _ = w.Write([]byte(`[{"identifier":"b1","title":"Akira"}]`))
		case "/get_book":
			_, _ = w.Write([]byte(`{"identifier":"b1","title":"Akira","format":"cbz","mimetype":"application/vnd.comicbook+zip","cover":"ZmFsbGJhY2s="}`))
		case "/get_book_content":
			_, _ = w.Write([]byte(`{"p10.jpg":"ten","p2.jpg":"two","p1.jpg":"one"}`))
		case "/get_cover_b64":
			if coverStatus != http.StatusOK {
				w.WriteHeader(coverStatus)
				return
			}
			_, _ = w.Write([]byte(`{"cover":"Y292ZXI="}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestDownloader_Download(t *testing.T) {
	ctx := context.Background()
	downloader, repo := setupDownloader(t, booksServer(http.StatusOK))

	record, err := downloader.Download(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Akira", record.Title)
	assert.Equal(t, "cbz", record.Format)

	ids := make([]string, 0, len(record.Chapters))
	for _, chapter := range record.Chapters {
		ids = append(ids, chapter.Identifier)
	}
	assert.Equal(t, []string{"p1.jpg", "p2.jpg", "p10.jpg"}, ids, "chapters in natural order")

	stored, err := repo.LoadBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Y292ZXI=", stored.Cover)

	cover, err := repo.LoadCover(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Y292ZXI=", cover)

	chapter, err := repo.LoadChapter(ctx, "b1", "p10.jpg")
	require.NoError(t, err)
	assert.Equal(t, "ten", chapter.Data)

	missing, err := repo.MissingChapters(ctx, stored)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestDownloader_Download_CoverFallback(t *testing.T) {
	downloader, _ := setupDownloader(t, booksServer(http.StatusNotFound))

	record, err := downloader.Download(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "ZmFsbGJhY2s=", record.Cover)
}

func TestDownloader_Download_KeepsLocalProgress(t *testing.T) {
	ctx := context.Background()
	downloader, repo := setupDownloader(t, booksServer(http.StatusOK))

	_, err := downloader.Download(ctx, "b1")
	require.NoError(t, err)

	record, err := repo.LoadBook(ctx, "b1")
	require.NoError(t, err)
	record.Progress = entities.Progress{Chapter: 2, Position: 4, LastUpdated: 99}
	require.NoError(t, repo.PutRecord(ctx, record))

	_, err = downloader.Download(ctx, "b1")
	require.NoError(t, err)

	record, err = repo.LoadBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, record.Progress.Chapter)
}

func TestDownloader_Download_ServerError(t *testing.T) {
	downloader, repo := setupDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := downloader.Download(context.Background(), "b1")

	var remoteErr *remote.RemoteError
	require.ErrorAs(t, err, &remoteErr)

	_, err = repo.LoadBook(context.Background(), "b1")
	assert.ErrorIs(t, err, database.ErrNotFound, "nothing stored when the first fetch fails")
}

func TestDownloader_Download_Concurrent(t *testing.T) {
	downloader, _ := setupDownloader(t, booksServer(http.StatusOK))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := downloader.Download(context.Background(), "b1")
			assert.NoError(t, err)
			if record != nil {
				assert.Len(t, record.Chapters, 3)
			}
		}()
	}
	wg.Wait()
}

func TestDownloader_Import_Partial(t *testing.T) {
	ctx := context.Background()
	downloader, repo := setupDownloader(t, booksServer(http.StatusOK))

	chapters := []entities.ChapterPayload{
		{ID: "c1", Data: "one"},
		{ID: database.CoverKey, Data: "clash"},
		{ID: "c3", Data: "three"},
	}
	record, err := downloader.Import(ctx, entities.BookMetadata{Identifier: "local", Title: "Notes"}, "", chapters)

	var partial *PartialImportError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Saved)
	assert.Equal(t, 3, partial.Total)
	require.NotNil(t, record)

	stored, err := repo.LoadBook(ctx, "local")
	require.NoError(t, err, "the record stays visible")

	missing, err := repo.MissingChapters(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, []string{database.CoverKey, "c3"}, missing)
}

func TestDownloader_Available(t *testing.T) {
	downloader, _ := setupDownloader(t, booksServer(http.StatusOK))

	available, err := downloader.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Akira", available[0].Title)
}
