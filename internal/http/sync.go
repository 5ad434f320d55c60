package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/foxtales/internal/database/syncqueue"
	"github.com/mrlokans/foxtales/internal/entities"
	"github.com/mrlokans/foxtales/internal/syncengine"
)

type SyncController struct {
	engine *syncengine.Engine
	queue  *syncqueue.Repository
}

func NewSyncController(engine *syncengine.Engine, queue *syncqueue.Repository) *SyncController {
	return &SyncController{engine: engine, queue: queue}
}

// SyncAll handles POST /api/sync
// Drains every kind; an unreachable server leaves the queues for later and
// still answers 200 with the deferred outcome in the statuses.
func (sc *SyncController) SyncAll(c *gin.Context) {
	ctx := c.Request.Context()

	syncErr := sc.engine.SyncAll(ctx)
	statuses, err := sc.engine.Statuses(ctx)
	if err != nil {
		respondInternalError(c, err, "sync status")
		return
	}

	if syncErr != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": syncErr.Error(), "code": "sync_failed", "statuses": statuses})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

// SyncKind handles POST /api/sync/:kind
func (sc *SyncController) SyncKind(c *gin.Context) {
	ctx := c.Request.Context()
	kind := entities.SyncKind(c.Param("kind"))

	syncErr := sc.engine.SyncKind(ctx, kind)
	switch {
	case errors.Is(syncErr, syncengine.ErrUnknownKind):
		respondError(c, http.StatusBadRequest, syncErr.Error(), "unknown_kind")
		return
	case errors.Is(syncErr, syncengine.ErrSyncInProgress):
		respondError(c, http.StatusConflict, syncErr.Error(), "sync_in_progress")
		return
	}

	status, err := sc.engine.Status(ctx, kind)
	if err != nil {
		respondInternalError(c, err, "sync status")
		return
	}
	if syncErr != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": syncErr.Error(), "code": "sync_failed", "status": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// GetStatus handles GET /api/sync/status
func (sc *SyncController) GetStatus(c *gin.Context) {
	statuses, err := sc.engine.Statuses(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "sync status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

// GetPending handles GET /api/sync/pending/:kind
// Returns the queued documents keyed by book ID.
func (sc *SyncController) GetPending(c *gin.Context) {
	kind := entities.SyncKind(c.Param("kind"))
	if !kind.Valid() {
		respondError(c, http.StatusBadRequest, "unknown sync kind: "+string(kind), "unknown_kind")
		return
	}

	pending, err := sc.queue.Peek(c.Request.Context(), kind)
	if err != nil {
		respondInternalError(c, err, "pending updates")
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "pending": pending, "count": len(pending)})
}
