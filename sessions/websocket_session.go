package sessions

import (
	"context"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	models "github.com/moncdev/personachat/models"
)

// WebSocketWriter handles all WebSocket communication for a session.
type WebSocketWriter struct {
	Conn   *websocket.Conn
	Logger *log.Logger
	mu     sync.Mutex
}

func (w *WebSocketWriter) WriteEvent(event models.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(event)
}

func (w *WebSocketWriter) WriteError(err *models.ChatError) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(models.ErrorEvent(err))
}

func (w *WebSocketWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "done"})
}

// RunWSInteraction runs a full turn over a WebSocket connection: the
// same ordered event sequence as the SSE stream, terminated by a done
// frame so the client can keep the connection open for the next turn.
func (s *ChatSession) RunWSInteraction(ctx context.Context, req models.ChatTurnRequest, writer *WebSocketWriter) error {
	eventChan, errChan := s.StreamTurn(ctx, req)

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				s.Logger.Printf("WS stream finished.")
				return writer.WriteDone()
			}
			if err := writer.WriteEvent(event); err != nil {
				s.Logger.Printf("Error writing WS event: %v", err)
				return err
			}

		case err, ok := <-errChan:
			if ok && err != nil {
				s.Logger.Printf("WS stream error: %v", err)
				if writeErr := writer.WriteError(models.AsChatError(err)); writeErr != nil {
					s.Logger.Printf("Error writing WS error event: %v", writeErr)
				}
				return err
			}
			if !ok {
				errChan = nil
			}

		case <-ctx.Done():
			s.Logger.Printf("WS client disconnected")
			return ctx.Err()
		}
	}
}
