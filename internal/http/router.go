package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Optional dependencies left nil in cfg disable their routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(apiHeadersMiddleware())

	var pinger Pinger
	if cfg.Store != nil {
		pinger = cfg.Store
	}
	health := NewHealthController(pinger, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")

	if cfg.Books != nil {
		booksController := NewBooksController(cfg.Books, cfg.Downloader, cfg.TaskClient)
		api.GET("/books", booksController.ListBooks)
		api.GET("/books/:id", booksController.GetBook)
		api.DELETE("/books/:id", booksController.DeleteBook)
		api.GET("/books/:id/chapters/:chapter", booksController.GetChapter)
		api.GET("/books/:id/cover", booksController.GetCover)

		if cfg.Downloader != nil {
			api.GET("/remote/books", booksController.ListRemoteBooks)
			api.POST("/books/:id/download", booksController.Download)
			api.POST("/books/import", booksController.Import)
		}
	}

	if cfg.Tracker != nil {
		progressController := NewProgressController(cfg.Tracker)
		api.GET("/books/:id/progress", progressController.GetProgress)
		api.PUT("/books/:id/progress", progressController.PutProgress)
		api.PUT("/books/:id/read-status", progressController.PutReadStatus)
	}

	if cfg.Engine != nil && cfg.Queue != nil {
		syncController := NewSyncController(cfg.Engine, cfg.Queue)
		api.POST("/sync", syncController.SyncAll)
		api.GET("/sync/status", syncController.GetStatus)
		api.GET("/sync/pending/:kind", syncController.GetPending)
		api.POST("/sync/:kind", syncController.SyncKind)
	}

	if cfg.Tokens != nil {
		tokenController := NewTokenController(cfg.Tokens)
		api.GET("/auth/token", tokenController.GetToken)
		api.PUT("/auth/token", tokenController.PutToken)
		api.DELETE("/auth/token", tokenController.DeleteToken)
	}

	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}
