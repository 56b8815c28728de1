package server

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	models "github.com/moncdev/personachat/models"
	"github.com/moncdev/personachat/personas"
	"github.com/moncdev/personachat/sessions"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server is the HTTP backend: persona listings, the chat stream
// endpoint, and the WebSocket variant. The server holds no per-user
// state; conversation history travels with each request and lives in
// the caller's store.
type Server struct {
	Registry     *personas.Registry
	Completer    sessions.Completer
	Delay        sessions.DelayRange
	HistoryLimit int
	Timeout      time.Duration
	Logger       *log.Logger
}

// NewServer wires a server with the default pacing and limits.
func NewServer(registry *personas.Registry, completer sessions.Completer) *Server {
	return &Server{
		Registry:     registry,
		Completer:    completer,
		Delay:        sessions.DefaultDelayRange,
		HistoryLimit: sessions.DefaultHistoryLimit,
		Timeout:      sessions.DefaultTimeout,
		Logger:       log.New(os.Stdout, "[SERVER] ", log.LstdFlags),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/personas", s.handleListPersonas)
		api.GET("/personas/:id", s.handleGetPersona)
		api.POST("/chat/:personaId", s.handleChat)
	}
	router.GET("/ws/chat/:personaId", s.handleChatWS)

	return router
}

// Run starts the server on addr, blocking until it exits.
func (s *Server) Run(addr string) error {
	s.Logger.Printf("Listening on %s", addr)
	return s.Router().Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// statusFor maps error codes to HTTP statuses for non-streamed replies.
func statusFor(err *models.ChatError) int {
	switch err.Code {
	case models.CodeInvalidMessage, models.CodeInvalidHistory:
		return http.StatusBadRequest
	case models.CodePersonaNotFound:
		return http.StatusNotFound
	case models.CodeQuotaExceeded, models.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err *models.ChatError) {
	c.JSON(statusFor(err), models.APIResponse{Success: false, Error: err.APIError()})
}
