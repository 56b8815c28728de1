package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	models "github.com/moncdev/personachat/models"
	"github.com/moncdev/personachat/personas"
	"github.com/moncdev/personachat/sessions"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data: models.HealthStatus{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
		},
	})
}

func (s *Server) handleListPersonas(c *gin.Context) {
	all := s.Registry.List()
	infos := make([]models.PersonaInfo, 0, len(all))
	for _, p := range all {
		infos = append(infos, personaInfo(p, false))
	}
	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: infos})
}

func (s *Server) handleGetPersona(c *gin.Context) {
	persona, err := s.Registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, models.AsChatError(err))
		return
	}
	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: personaInfo(persona, true)})
}

// personaInfo converts a persona to its wire shape. Presence is
// simulated: personas are "online" roughly 70% of the time, refreshed
// per request. The system prompt only travels on the detail endpoint.
func personaInfo(p personas.Persona, includePrompt bool) models.PersonaInfo {
	info := models.PersonaInfo{
		ID:           p.ID,
		Name:         p.Name,
		ProfileImage: p.ProfileImage,
		Description:  p.Description(),
		IsOnline:     rand.Float64() > 0.3,
		FilterTags:   p.FilterTags,
	}
	if includePrompt {
		info.SystemPrompt = p.Prompt
	}
	return info
}

// chatRequest keeps history raw so a malformed history shape can be
// reported as INVALID_HISTORY instead of a generic bind error.
type chatRequest struct {
	Message string          `json:"message"`
	History json.RawMessage `json:"history"`
}

func (s *Server) parseChatRequest(c *gin.Context) (models.ChatTurnRequest, *models.ChatError) {
	var raw chatRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		return models.ChatTurnRequest{}, models.NewChatError(
			models.CodeInvalidMessage, "Message is required and must be a string", err.Error())
	}

	if strings.TrimSpace(raw.Message) == "" {
		return models.ChatTurnRequest{}, models.NewChatError(
			models.CodeInvalidMessage, "Message is required and must be a string", "")
	}

	req := models.ChatTurnRequest{Message: raw.Message}
	if len(raw.History) > 0 {
		if err := json.Unmarshal(raw.History, &req.History); err != nil {
			return models.ChatTurnRequest{}, models.NewChatError(
				models.CodeInvalidHistory, "History must be an array of messages", err.Error())
		}
	}
	return req, nil
}

// handleChat runs one chat turn as an SSE stream. Request problems are
// rejected with a JSON envelope before any stream bytes are written;
// once streaming starts, failures arrive as a terminal error event.
func (s *Server) handleChat(c *gin.Context) {
	persona, err := s.Registry.Get(c.Param("personaId"))
	if err != nil {
		writeError(c, models.AsChatError(err))
		return
	}

	req, chatErr := s.parseChatRequest(c)
	if chatErr != nil {
		writeError(c, chatErr)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	session := sessions.NewChatSession(persona, s.Completer).
		WithDelay(s.Delay).
		WithHistoryLimit(s.HistoryLimit).
		WithTimeout(s.Timeout)

	writer := &ginSSEWriter{c: c}
	if err := session.RunSSEInteraction(c.Request.Context(), req, writer); err != nil {
		// Terminal error event already sent; nothing more to write.
		s.Logger.Printf("Chat turn for '%s' ended with error: %v", persona.ID, err)
	}
}

type ginSSEWriter struct {
	c *gin.Context
}

func (w *ginSSEWriter) WriteSSE(data string) error {
	_, err := fmt.Fprintf(w.c.Writer, "data: %s\n\n", data)
	return err
}

func (w *ginSSEWriter) Flush() {
	w.c.Writer.Flush()
}
