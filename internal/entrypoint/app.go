package entrypoint

import (
	"fmt"

	"github.com/mrlokans/foxtales/internal/config"
	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/database/books"
	"github.com/mrlokans/foxtales/internal/database/syncqueue"
	"github.com/mrlokans/foxtales/internal/library"
	"github.com/mrlokans/foxtales/internal/progress"
	"github.com/mrlokans/foxtales/internal/remote"
	"github.com/mrlokans/foxtales/internal/syncengine"
	"github.com/mrlokans/foxtales/internal/tokenstore"
)

// App holds the library components shared by the server and the CLI.
type App struct {
	Store      *database.Store
	Tokens     *tokenstore.TokenStore
	Remote     *remote.Client
	Books      *books.Repository
	Queue      *syncqueue.Repository
	Tracker    *progress.Tracker
	Engine     *syncengine.Engine
	Downloader *library.Downloader
}

// NewApp opens the data directory and wires the library stack.
func NewApp(cfg *config.Config) (*App, error) {
	store, err := database.NewLibraryStore(cfg.Storage.DataDir, cfg.Storage.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to open library store: %w", err)
	}

	tokens, err := tokenstore.New(store, tokenstore.Config{
		EncryptionKey: cfg.Token.EncryptionKey,
		KeyFilePath:   cfg.Token.KeyFile,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}

	client := remote.NewClient(cfg.Remote.URL,
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithTokenSource(tokens),
	)

	repo := books.NewRepository(store)
	queue := syncqueue.NewRepository(store)

	return &App{
		Store:      store,
		Tokens:     tokens,
		Remote:     client,
		Books:      repo,
		Queue:      queue,
		Tracker:    progress.NewTracker(repo, queue),
		Engine:     syncengine.NewEngine(queue, client),
		Downloader: library.NewDownloader(repo, client),
	}, nil
}

// Close releases every open database.
func (a *App) Close() error {
	return a.Store.Close()
}
