package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cinebot-go/internal/catalog"
	"cinebot-go/internal/model"
)

type recordingConversation struct {
	mu     sync.Mutex
	turns  []model.ChatRequest
	resets []string
}

func (r *recordingConversation) HandleMessage(_ context.Context, userID, message string) model.ChatReply {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, model.ChatRequest{User: userID, Message: message})
	return model.ChatReply{Reply: "eco: " + message, Step: model.StepAskGenre}
}

func (r *recordingConversation) Session(_ context.Context, userID string) (model.Session, error) {
	return model.Session{Step: model.StepRecommend, Genre: "terror:" + userID}, nil
}

func (r *recordingConversation) Reset(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, userID)
	return nil
}

func newTestRouter(conv *recordingConversation) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chat := NewChatHandler(conv, nil)
	sessions := NewSessionHandler(conv, catalog.Default())
	r.POST("/chat", chat.Chat)
	r.GET("/chat/ws", chat.HandleWS)
	r.GET("/api/v1/sessions/:user", sessions.GetSession)
	r.DELETE("/api/v1/sessions/:user", sessions.ResetSession)
	r.GET("/api/v1/genres", sessions.ListGenres)
	return r
}

func TestChatReturnsReply(t *testing.T) {
	conv := &recordingConversation{}
	r := newTestRouter(conv)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user":"ana","message":"Terror"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var reply model.ChatReply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Reply != "eco: Terror" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if conv.turns[0].User != "ana" {
		t.Fatalf("unexpected turn %+v", conv.turns[0])
	}
}

func TestChatEmptyBody(t *testing.T) {
	conv := &recordingConversation{}
	r := newTestRouter(conv)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty body, got %d", w.Code)
	}
	if len(conv.turns) != 1 || conv.turns[0].User != "" || conv.turns[0].Message != "" {
		t.Fatalf("unexpected turns %+v", conv.turns)
	}
}

func TestChatMalformedBody(t *testing.T) {
	r := newTestRouter(&recordingConversation{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user":`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetSessionAndGenres(t *testing.T) {
	r := newTestRouter(&recordingConversation{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/ana", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"genre":"terror:ana"`) {
		t.Fatalf("unexpected session response %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/genres", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "faroeste") {
		t.Fatalf("unexpected genres response %d %s", w.Code, w.Body.String())
	}
}

func TestWebsocketTurns(t *testing.T) {
	conv := &recordingConversation{}
	server := httptest.NewServer(newTestRouter(conv))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/chat/ws?user=bia"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for _, frame := range []string{`{"message":"oi"}`, "comédia"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write: %v", err)
		}
		var reply model.ChatReply
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.HasPrefix(reply.Reply, "eco: ") {
			t.Fatalf("unexpected reply %+v", reply)
		}
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	if len(conv.turns) != 2 || conv.turns[0].User != "bia" || conv.turns[1].Message != "comédia" {
		t.Fatalf("unexpected turns %+v", conv.turns)
	}
}

func TestParseFrame(t *testing.T) {
	got := parseFrame([]byte(`{"user":"x","message":"sim"}`), "d")
	if got.User != "x" || got.Message != "sim" {
		t.Fatalf("unexpected %+v", got)
	}
	got = parseFrame([]byte(`{not json`), "d")
	if got.User != "d" || got.Message != "{not json" {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestResetSession(t *testing.T) {
	conv := &recordingConversation{}
	r := newTestRouter(conv)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/ana", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(conv.resets) != 1 || conv.resets[0] != "ana" {
		t.Fatalf("unexpected resets %v", conv.resets)
	}
}
