package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/library"
	"github.com/mrlokans/foxtales/internal/remote"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// PartialImportResponse reports a book whose record was saved but whose
// content was only partly written.
type PartialImportResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Identifier string `json:"identifier"`
	Saved      int    `json:"saved"`
	Total      int    `json:"total"`
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message, code string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondStoreError maps storage errors: a missing entry is a 404, anything
// else a 500.
func respondStoreError(c *gin.Context, err error, resource string) {
	if database.IsNotFound(err) {
		respondNotFound(c, resource)
		return
	}
	respondInternalError(c, err, resource)
}

// respondRemoteError maps failures talking to the books server.
func respondRemoteError(c *gin.Context, err error, context string) {
	var remoteErr *remote.RemoteError
	switch {
	case remote.IsTransient(err):
		respondError(c, http.StatusServiceUnavailable, "books server unreachable", "remote_unreachable")
	case errors.As(err, &remoteErr):
		log.Printf("Remote error (%s): %v", context, err)
		respondError(c, http.StatusBadGateway, remoteErr.Error(), "remote_error")
	default:
		respondStoreError(c, err, context)
	}
}

// respondImportError maps failures of a download or import. A partly written
// book is reported as partial_import with its chapter counts.
func respondImportError(c *gin.Context, err error, context string) {
	var partial *library.PartialImportError
	if errors.As(err, &partial) {
		log.Printf("Partial import (%s): %v", context, err)
		c.JSON(http.StatusInternalServerError, PartialImportResponse{
			Error:      partial.Error(),
			Code:       "partial_import",
			Identifier: partial.BookID,
			Saved:      partial.Saved,
			Total:      partial.Total,
		})
		return
	}
	respondRemoteError(c, err, context)
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: data})
}

// respondCreated sends a 201 Created response.
func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, SuccessResponse{Message: message, Data: data})
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}
