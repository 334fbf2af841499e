package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinebot-go/internal/catalog"
	"cinebot-go/internal/service"
)

// SessionHandler exposes read-only views of conversation state and the catalog.
type SessionHandler struct {
	conversationService service.ConversationService
	catalog             *catalog.Catalog
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(conversationService service.ConversationService, cat *catalog.Catalog) *SessionHandler {
	return &SessionHandler{conversationService: conversationService, catalog: cat}
}

// GetSession returns the session snapshot of the :user path parameter.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.conversationService.Session(c.Request.Context(), c.Param("user"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "failed to load session",
			"data":    nil,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    session,
	})
}

// ResetSession forgets the session of the :user path parameter.
func (h *SessionHandler) ResetSession(c *gin.Context) {
	if err := h.conversationService.Reset(c.Request.Context(), c.Param("user")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "failed to reset session",
			"data":    nil,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    nil,
	})
}

// ListGenres returns the catalog genre names in classification order.
func (h *SessionHandler) ListGenres(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    h.catalog.Names(),
	})
}
