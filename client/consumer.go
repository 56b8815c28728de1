package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	models "github.com/moncdev/personachat/models"
	"github.com/moncdev/personachat/stores"
)

const ssePrefix = "data: "

// StreamConsumer reads the push channel for chat turns and forwards
// every message part to the conversation store as it arrives, not
// buffered until the end. At most one stream may be in flight per
// persona; a second send for the same persona is rejected so part
// ordering is never interleaved.
type StreamConsumer struct {
	BaseURL    string
	Store      stores.HistoryStore
	HTTPClient *http.Client
	Logger     *log.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// NewStreamConsumer creates a consumer talking to the given backend.
func NewStreamConsumer(baseURL string, store stores.HistoryStore) *StreamConsumer {
	return &StreamConsumer{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Store:      store,
		HTTPClient: &http.Client{},
		Logger:     log.New(os.Stdout, "[CONSUMER] ", log.LstdFlags),
		inflight:   make(map[string]bool),
	}
}

// SendMessage sends one user message for a persona and consumes the
// resulting stream. The user message and every received part are
// appended to the store in arrival order; onPart (optional) fires per
// part for live rendering. Returns nil once the completion signal is
// observed. On failure, messages delivered before the failure stay in
// the store; retry is up to the caller.
func (c *StreamConsumer) SendMessage(ctx context.Context, personaID, message string, onPart func(models.MessagePart)) error {
	trimmed := strings.TrimSpace(message)
	if personaID == "" || trimmed == "" {
		return models.NewChatError(models.CodeInvalidMessage,
			"Persona ID and message are required", "")
	}

	if !c.acquire(personaID) {
		return models.NewChatError(models.CodeChatProcessing,
			"A message is already streaming for this persona",
			"Wait for the current reply to finish before sending again")
	}
	defer c.release(personaID)

	// History is captured before the new user turn is stored; the server
	// appends the new turn itself when assembling the prompt.
	history, err := c.historyForRequest(personaID)
	if err != nil {
		return err
	}

	userMsg := stores.ChatMessage{
		MessageID: uuid.New().String(),
		Sender:    models.RoleUser,
		Content:   trimmed,
		Timestamp: time.Now(),
	}
	if err := c.Store.Append(personaID, userMsg); err != nil {
		return err
	}

	resp, err := c.openStream(ctx, personaID, models.ChatTurnRequest{Message: trimmed, History: history})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.consumeStream(personaID, resp, onPart)
}

func (c *StreamConsumer) acquire(personaID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[personaID] {
		return false
	}
	c.inflight[personaID] = true
	return true
}

func (c *StreamConsumer) release(personaID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, personaID)
}

func (c *StreamConsumer) historyForRequest(personaID string) ([]models.Message, error) {
	stored, err := c.Store.GetHistory(personaID)
	if err != nil {
		return nil, err
	}

	history := make([]models.Message, 0, len(stored))
	for _, msg := range stored {
		history = append(history, models.Message{Role: msg.Sender, Content: msg.Content})
	}
	return history, nil
}

func (c *StreamConsumer) openStream(ctx context.Context, personaID string, body models.ChatTurnRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat/%s", c.BaseURL, personaID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, models.NewChatError(models.CodeStreamTransport,
			"Failed to reach the chat service", err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var envelope models.APIResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil && envelope.Error != nil {
			return nil, models.NewChatError(envelope.Error.Code, envelope.Error.Message, envelope.Error.Details)
		}
		return nil, models.NewChatError(models.CodeStreamTransport,
			fmt.Sprintf("Chat request failed with HTTP %d", resp.StatusCode), "")
	}

	return resp, nil
}

// consumeStream reads SSE events until the completion signal. Already
// appended messages are never rolled back on failure.
func (c *StreamConsumer) consumeStream(personaID string, resp *http.Response, onPart func(models.MessagePart)) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var storeErr error

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, ssePrefix) {
			continue
		}

		var event models.RawStreamEvent
		if err := json.Unmarshal([]byte(line[len(ssePrefix):]), &event); err != nil {
			c.Logger.Printf("Failed to parse stream event, skipping: %v", err)
			continue
		}

		if !event.Success {
			if event.Error != nil {
				return models.NewChatError(event.Error.Code, event.Error.Message, event.Error.Details)
			}
			return models.NewChatError(models.CodeStreamTransport, "Stream reported failure without detail", "")
		}

		var signal models.StreamSignal
		if err := json.Unmarshal(event.Data, &signal); err == nil && signal.Type == models.SignalComplete {
			return storeErr
		}

		var part models.MessagePart
		if err := json.Unmarshal(event.Data, &part); err != nil {
			c.Logger.Printf("Failed to parse message part, skipping: %v", err)
			continue
		}

		partIndex, totalParts := part.PartIndex, part.TotalParts
		msg := stores.ChatMessage{
			MessageID:  part.ID,
			Sender:     models.RoleAssistant,
			Content:    part.Content,
			Timestamp:  time.Now(),
			PartIndex:  &partIndex,
			TotalParts: &totalParts,
		}
		if err := c.Store.Append(personaID, msg); err != nil {
			c.Logger.Printf("Failed to store message part %d: %v", part.PartIndex, err)
			if storeErr == nil {
				storeErr = err
			}
		}

		if onPart != nil {
			onPart(part)
		}
	}

	if err := scanner.Err(); err != nil {
		return models.NewChatError(models.CodeStreamTransport,
			"Failed to read message stream", err.Error())
	}
	// Stream ended without a completion signal.
	return models.NewChatError(models.CodeStreamTransport,
		"Stream closed before the completion signal", "")
}
