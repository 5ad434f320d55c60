package http

import (
	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/database/books"
	"github.com/mrlokans/foxtales/internal/database/syncqueue"
	"github.com/mrlokans/foxtales/internal/library"
	"github.com/mrlokans/foxtales/internal/progress"
	"github.com/mrlokans/foxtales/internal/syncengine"
	"github.com/mrlokans/foxtales/internal/tasks"
	"github.com/mrlokans/foxtales/internal/tokenstore"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Store   *database.Store
	Books   *books.Repository
	Tracker *progress.Tracker

	// Remote library and sync
	Downloader *library.Downloader
	Engine     *syncengine.Engine
	Queue      *syncqueue.Repository
	Tokens     *tokenstore.TokenStore

	// Task queue client (optional). Without it downloads run inline.
	TaskClient *tasks.Client

	// Application info
	Version string
}
