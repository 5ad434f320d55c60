package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/database/books"
	"github.com/mrlokans/foxtales/internal/database/syncqueue"
	"github.com/mrlokans/foxtales/internal/entities"
	"github.com/mrlokans/foxtales/internal/library"
	"github.com/mrlokans/foxtales/internal/progress"
	"github.com/mrlokans/foxtales/internal/remote"
	"github.com/mrlokans/foxtales/internal/syncengine"
	"github.com/mrlokans/foxtales/internal/tokenstore"
)

// booksServer fakes the remote library and records published documents.
type booksServer struct {
	mu        sync.Mutex
	published []map[string]any
}

func (s *booksServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/list_books":
		_, _ = w.Write([]byte(`[{"identifier":"b1","title":"Akira"}]`))
	case "/get_book":
		_, _ = w.Write([]byte(`{"identifier":"b1","title":"Akira","format":"cbz"}`))
	case "/get_book_content":
		_, _ = w.Write([]byte(`{"p2.jpg":"two","p1.jpg":"one"}`))
	case "/get_cover_b64":
		_, _ = w.Write([]byte(`{"cover":"Y292ZXI="}`))
	case "/set_book_metadata":
		var doc map[string]any
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &doc)
		s.mu.Lock()
		s.published = append(s.published, doc)
		s.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *booksServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

type testEnv struct {
	router *gin.Engine
	books  *books.Repository
	queue  *syncqueue.Repository
	remote *booksServer
}

func setupTestEnv(t *testing.T, reachable bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := database.NewLibraryStore(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fake := &booksServer{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	baseURL := server.URL
	if !reachable {
		server.Close()
	}

	tokens, err := tokenstore.New(store, tokenstore.Config{EncryptionKey: testKey})
	require.NoError(t, err)

	client := remote.NewClient(baseURL, remote.WithTokenSource(tokens))
	repo := books.NewRepository(store)
	queue := syncqueue.NewRepository(store)

	router := NewRouter(RouterConfig{
		Store:      store,
		Books:      repo,
		Tracker:    progress.NewTracker(repo, queue),
		Downloader: library.NewDownloader(repo, client),
		Engine:     syncengine.NewEngine(queue, client),
		Queue:      queue,
		Tokens:     tokens,
		Version:    "test",
	})

	return &testEnv{router: router, books: repo, queue: queue, remote: fake}
}

// testKey is a base64 AES-256 key.
const testKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (e *testEnv) addBook(t *testing.T, id string) {
	t.Helper()
	_, err := e.books.SaveBook(context.Background(), id, entities.BookMetadata{
		Title:    "Dune",
		Chapters: []entities.ChapterRef{{Identifier: "c1"}, {Identifier: "c2"}},
	}, "")
	require.NoError(t, err)
	require.NoError(t, e.books.SaveChapter(context.Background(), id, "c1", "chapter one"))
}

func TestRouter_Ping(t *testing.T) {
	env := setupTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when storage is reachable", func(t *testing.T) {
		env := setupTestEnv(t, true)

		w := env.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "test", response.Version)
		assert.Equal(t, "ok", response.Checks["storage"])
		assert.NotEmpty(t, response.Time)
	})

	t.Run("reports missing storage as not configured", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := NewRouter(RouterConfig{Version: "test"})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "not configured", response.Checks["storage"])
	})

	t.Run("returns unhealthy when ping fails", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		controller := NewHealthController(failingPinger{}, "1.0.0")

		router := gin.New()
		router.GET("/health", controller.Status)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["storage"], "error:")
	})
}

type failingPinger struct{}

func (failingPinger) Ping() error { return assert.AnError }
