package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	models "github.com/moncdev/personachat/models"
	"github.com/moncdev/personachat/sessions"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleChatWS serves chat turns over a persistent WebSocket. Each text
// frame is one chat request; the reply is the same event sequence as the
// SSE stream, closed by a done frame. Bad frames produce an error event
// but keep the connection open.
func (s *Server) handleChatWS(c *gin.Context) {
	persona, err := s.Registry.Get(c.Param("personaId"))
	if err != nil {
		writeError(c, models.AsChatError(err))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Printf("Failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", persona.ID), log.LstdFlags)
	writer := &sessions.WebSocketWriter{Conn: conn, Logger: logger}

	session := sessions.NewChatSession(persona, s.Completer).
		WithDelay(s.Delay).
		WithHistoryLimit(s.HistoryLimit).
		WithTimeout(s.Timeout)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Printf("Websocket read error: %v", err)
			}
			return
		}

		var req models.ChatTurnRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			writer.WriteError(models.NewChatError(
				models.CodeInvalidMessage, "Message is required and must be a string", err.Error()))
			continue
		}
		if strings.TrimSpace(req.Message) == "" {
			writer.WriteError(models.NewChatError(
				models.CodeInvalidMessage, "Message is required and must be a string", ""))
			continue
		}

		if err := session.RunWSInteraction(c.Request.Context(), req, writer); err != nil {
			logger.Printf("Chat turn ended with error: %v", err)
			// Keep the connection: the client may retry or send a new turn.
		}
	}
}
