package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/foxtales/internal/progress"
)

type ProgressRequest struct {
	Chapter  int `json:"chapter" binding:"min=0"`
	Position int `json:"position" binding:"min=0"`
}

type ReadStatusRequest struct {
	Read bool `json:"read"`
}

type ProgressController struct {
	tracker *progress.Tracker
}

func NewProgressController(tracker *progress.Tracker) *ProgressController {
	return &ProgressController{tracker: tracker}
}

// GetProgress handles GET /api/books/:id/progress
func (pc *ProgressController) GetProgress(c *gin.Context) {
	position, err := pc.tracker.CurrentProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondInternalError(c, err, "current progress")
		return
	}
	c.JSON(http.StatusOK, position)
}

// PutProgress handles PUT /api/books/:id/progress
// The new position is stored and queued for the next sync.
func (pc *ProgressController) PutProgress(c *gin.Context) {
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "chapter and position must be non-negative integers")
		return
	}

	recorded, err := pc.tracker.RecordProgress(c.Request.Context(), c.Param("id"), req.Chapter, req.Position)
	if errors.Is(err, progress.ErrInvalidPosition) {
		respondBadRequest(c, err.Error())
		return
	}
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	c.JSON(http.StatusOK, recorded)
}

// PutReadStatus handles PUT /api/books/:id/read-status
func (pc *ProgressController) PutReadStatus(c *gin.Context) {
	var req ReadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	status, err := pc.tracker.SetReadStatus(c.Request.Context(), c.Param("id"), req.Read)
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	c.JSON(http.StatusOK, status)
}
