package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/foxtales/internal/tokenstore"
)

type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type TokenController struct {
	tokens *tokenstore.TokenStore
}

func NewTokenController(tokens *tokenstore.TokenStore) *TokenController {
	return &TokenController{tokens: tokens}
}

// GetToken handles GET /api/auth/token
// The token itself is never returned, only what can be read from its claims.
func (tc *TokenController) GetToken(c *gin.Context) {
	info, err := tc.tokens.Describe(c.Request.Context(), time.Now())
	if err != nil {
		respondInternalError(c, err, "describe token")
		return
	}
	c.JSON(http.StatusOK, info)
}

// PutToken handles PUT /api/auth/token
func (tc *TokenController) PutToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "token is required")
		return
	}

	err := tc.tokens.SetToken(c.Request.Context(), req.Token)
	if errors.Is(err, tokenstore.ErrEmptyToken) {
		respondBadRequest(c, err.Error())
		return
	}
	if err != nil {
		respondInternalError(c, err, "store token")
		return
	}
	respondSuccess(c, "token stored", nil)
}

// DeleteToken handles DELETE /api/auth/token
func (tc *TokenController) DeleteToken(c *gin.Context) {
	if err := tc.tokens.ClearToken(c.Request.Context()); err != nil {
		respondInternalError(c, err, "clear token")
		return
	}
	respondSuccess(c, "token cleared", nil)
}
