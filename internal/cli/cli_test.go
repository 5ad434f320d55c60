package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/foxtales/internal/library"
)

func newBooksServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var published atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/list_books":
			_, _ = w.Write([]byte(`[{"identifier":"b1","title":"Akira","format":"cbz"}]`))
		case "/get_book":
			_, _ = w.Write([]byte(`{"identifier":"b1","title":"Akira","format":"cbz"}`))
		case "/get_book_content":
			_, _ = w.Write([]byte(`{"p1.jpg":"one","p2.jpg":"two"}`))
		case "/get_cover_b64":
			_, _ = w.Write([]byte(`{"cover":"Y292ZXI="}`))
		case "/set_book_metadata":
			published.Add(1)
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &published
}

type runner interface {
	ParseFlags(args []string) error
	Run() error
}

// run parses args plus the shared library flags and returns the output.
func run(t *testing.T, cmd runner, out *bytes.Buffer, dataDir, remoteURL string, args ...string) error {
	t.Helper()
	all := append([]string{"-data-dir", dataDir, "-remote", remoteURL}, args...)
	require.NoError(t, cmd.ParseFlags(all))
	out.Reset()
	return cmd.Run()
}

func TestCommands_EndToEnd(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")
	server, published := newBooksServer(t)
	dataDir := t.TempDir()
	var out bytes.Buffer

	list := NewListCommand()
	list.SetOutput(&out)
	require.NoError(t, run(t, list, &out, dataDir, server.URL))
	assert.Contains(t, out.String(), "Library is empty")

	available := NewListCommand()
	available.SetOutput(&out)
	require.NoError(t, run(t, available, &out, dataDir, server.URL, "-available"))
	assert.Contains(t, out.String(), "Akira")

	download := NewDownloadCommand()
	download.SetOutput(&out)
	require.NoError(t, run(t, download, &out, dataDir, server.URL, "-id", "b1"))
	assert.Contains(t, out.String(), `Downloaded "Akira" (2 chapters)`)

	record := NewProgressCommand()
	record.SetOutput(&out)
	require.NoError(t, run(t, record, &out, dataDir, server.URL, "-id", "b1", "-chapter", "1", "-position", "30", "-read", "true"))
	assert.Contains(t, out.String(), "Recorded chapter 1, position 30")
	assert.Contains(t, out.String(), "Marked as read: true")

	show := NewProgressCommand()
	show.SetOutput(&out)
	require.NoError(t, run(t, show, &out, dataDir, server.URL, "-id", "b1"))
	assert.Equal(t, "Chapter 1, position 30\n", out.String())

	pending := NewPendingCommand()
	pending.SetOutput(&out)
	require.NoError(t, run(t, pending, &out, dataDir, server.URL))
	assert.True(t, strings.HasPrefix(out.String(), "b1\t"))
	assert.Contains(t, out.String(), `"position":30`)

	syncCmd := NewSyncCommand()
	syncCmd.SetOutput(&out)
	require.NoError(t, run(t, syncCmd, &out, dataDir, server.URL))
	assert.Equal(t, int32(2), published.Load())
	assert.Contains(t, out.String(), "update-progress")
	assert.Contains(t, out.String(), "pending=0")

	drained := NewPendingCommand()
	drained.SetOutput(&out)
	require.NoError(t, run(t, drained, &out, dataDir, server.URL, "-kind", "update-read-status"))
	assert.Contains(t, out.String(), "No pending update-read-status updates")
}

func TestSyncCommand_Unreachable(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")
	server, _ := newBooksServer(t)
	dataDir := t.TempDir()
	var out bytes.Buffer

	download := NewDownloadCommand()
	download.SetOutput(&out)
	require.NoError(t, run(t, download, &out, dataDir, server.URL, "-id", "b1"))

	record := NewProgressCommand()
	record.SetOutput(&out)
	require.NoError(t, run(t, record, &out, dataDir, server.URL, "-id", "b1", "-chapter", "2"))

	server.Close()

	syncCmd := NewSyncCommand()
	syncCmd.SetOutput(&out)
	require.NoError(t, run(t, syncCmd, &out, dataDir, server.URL, "-kind", "update-progress"))
	assert.Contains(t, out.String(), "deferred")
	assert.Contains(t, out.String(), "pending=1")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")
	dataDir := t.TempDir()
	var out bytes.Buffer

	show := NewTokenCommand()
	show.SetOutput(&out)
	require.NoError(t, run(t, show, &out, dataDir, "http://127.0.0.1:1"))
	assert.Equal(t, "No token stored\n", out.String())

	set := NewTokenCommand()
	set.SetOutput(&out)
	set.SetInput(strings.NewReader("Bearer abc123\n"))
	require.NoError(t, run(t, set, &out, dataDir, "http://127.0.0.1:1", "-set"))
	assert.Equal(t, "Token stored\n", out.String())

	describe := NewTokenCommand()
	describe.SetOutput(&out)
	require.NoError(t, run(t, describe, &out, dataDir, "http://127.0.0.1:1"))
	assert.Equal(t, "Token stored (opaque)\n", out.String())
	assert.NotContains(t, out.String(), "abc123")

	clearCmd := NewTokenCommand()
	clearCmd.SetOutput(&out)
	require.NoError(t, run(t, clearCmd, &out, dataDir, "http://127.0.0.1:1", "-clear"))
	assert.Equal(t, "Token cleared\n", out.String())
}

func TestParseFlags_Validation(t *testing.T) {
	assert.Error(t, NewDownloadCommand().ParseFlags(nil))
	assert.Error(t, NewImportCommand().ParseFlags(nil))
	assert.Error(t, NewProgressCommand().ParseFlags([]string{"-id", "b1", "-read", "maybe"}))
	assert.Error(t, NewSyncCommand().ParseFlags([]string{"-kind", "update-everything"}))
	assert.Error(t, NewTokenCommand().ParseFlags([]string{"-set", "-clear"}))
}

func TestListCommand_ShowsLastRead(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")
	server, _ := newBooksServer(t)
	dataDir := t.TempDir()
	var out bytes.Buffer

	download := NewDownloadCommand()
	download.SetOutput(&out)
	require.NoError(t, run(t, download, &out, dataDir, server.URL, "-id", "b1"))

	record := NewProgressCommand()
	record.SetOutput(&out)
	require.NoError(t, run(t, record, &out, dataDir, server.URL, "-id", "b1", "-chapter", "0"))

	list := NewListCommand()
	list.SetOutput(&out)
	require.NoError(t, run(t, list, &out, dataDir, server.URL))
	assert.Contains(t, out.String(), "Akira")
	assert.Regexp(t, `now|second`, out.String())
}

func TestImportCommand(t *testing.T) {
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")
	dataDir := t.TempDir()
	var out bytes.Buffer

	write := func(name, body string) string {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	t.Run("imports a complete book", func(t *testing.T) {
		file := write("notes.json", `{"metadata":{"identifier":"notes","title":"Notes"},"cover":"Y292ZXI=","chapters":[{"id":"c1","data":"one"},{"id":"c2","data":"two"}]}`)

		cmd := NewImportCommand()
		cmd.SetOutput(&out)
		require.NoError(t, run(t, cmd, &out, dataDir, "http://127.0.0.1:1", "-file", file))
		assert.Equal(t, "Imported \"Notes\" (2 chapters)\n", out.String())

		list := NewListCommand()
		list.SetOutput(&out)
		require.NoError(t, run(t, list, &out, dataDir, "http://127.0.0.1:1"))
		assert.Contains(t, out.String(), "Notes")
	})

	t.Run("partial import reaches the caller", func(t *testing.T) {
		file := write("broken.json", `{"metadata":{"identifier":"broken","title":"Broken"},"chapters":[{"id":"c1","data":"one"},{"id":"cover","data":"x"}]}`)

		cmd := NewImportCommand()
		cmd.SetOutput(&out)
		err := run(t, cmd, &out, dataDir, "http://127.0.0.1:1", "-file", file)

		var partial *library.PartialImportError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, 1, partial.Saved)
		assert.Equal(t, 2, partial.Total)
		assert.Contains(t, out.String(), "1 of 2 chapters saved")
	})

	t.Run("identifier is required", func(t *testing.T) {
		file := write("anon.json", `{"metadata":{"title":"Anonymous"}}`)

		cmd := NewImportCommand()
		cmd.SetOutput(&out)
		assert.Error(t, run(t, cmd, &out, dataDir, "http://127.0.0.1:1", "-file", file))
	})
}
