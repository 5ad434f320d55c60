package entrypoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/foxtales/internal/config"
	"github.com/mrlokans/foxtales/internal/entities"
)

func TestNewApp(t *testing.T) {
	ctx := context.Background()
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")
	cfg := &config.Config{
		Storage: config.Storage{DataDir: t.TempDir()},
		Remote:  config.Remote{URL: "http://127.0.0.1:1"},
	}

	app, err := NewApp(cfg)
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Books.SaveBook(ctx, "b1", entities.BookMetadata{Title: "Dune"}, "")
	require.NoError(t, err)

	_, err = app.Tracker.RecordProgress(ctx, "b1", 1, 2)
	require.NoError(t, err)

	// nothing listens on the configured port, so the update stays queued
	require.NoError(t, app.Engine.SyncKind(ctx, entities.SyncKindProgress))

	n, err := app.Queue.Count(ctx, entities.SyncKindProgress)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, app.Tokens.SetToken(ctx, "secret"))
	token, err := app.Tokens.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret", token)
}
