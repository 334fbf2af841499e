// Package handler contains the gin HTTP handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cinebot-go/internal/model"
	"cinebot-go/internal/service"
	"cinebot-go/pkg/log"
)

// ChatHandler serves conversation turns over HTTP and websocket.
type ChatHandler struct {
	conversationService service.ConversationService
	upgrader            websocket.Upgrader
}

// NewChatHandler creates a ChatHandler. checkOrigin may be nil to accept any origin.
func NewChatHandler(conversationService service.ConversationService, checkOrigin func(r *http.Request) bool) *ChatHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &ChatHandler{
		conversationService: conversationService,
		upgrader:            websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// Chat handles one {user, message} -> {reply} exchange.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	// an empty body is a turn with no user and no message
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	reply := h.conversationService.HandleMessage(c.Request.Context(), req.User, req.Message)
	c.JSON(http.StatusOK, reply)
}

// HandleWS runs a turn per text frame. Frames are {user, message} JSON or raw
// text, in which case the user comes from the "user" query parameter.
func (h *ChatHandler) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", err)
		return
	}
	defer conn.Close()

	defaultUser := c.Query("user")
	log.Infof("websocket connection established, user: %q", defaultUser)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("failed to read websocket message: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		req := parseFrame(data, defaultUser)
		reply := h.conversationService.HandleMessage(c.Request.Context(), req.User, req.Message)
		b, _ := json.Marshal(reply)
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Warnf("failed to write websocket reply: %v", err)
			return
		}
	}
}

func parseFrame(data []byte, defaultUser string) model.ChatRequest {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var req model.ChatRequest
		if err := json.Unmarshal(data, &req); err == nil {
			if req.User == "" {
				req.User = defaultUser
			}
			return req
		}
	}
	return model.ChatRequest{User: defaultUser, Message: trimmed}
}
