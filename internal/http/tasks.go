package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/foxtales/internal/tasks"
)

// TasksController reports on queued background work.
type TasksController struct {
	client *tasks.Client
}

func NewTasksController(client *tasks.Client) *TasksController {
	return &TasksController{client: client}
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	name, err := tc.client.Lookup(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if name == "not_found" {
		respondNotFound(c, "task")
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": taskID, "status": name})
}
