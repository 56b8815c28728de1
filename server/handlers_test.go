package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	models "github.com/moncdev/personachat/models"
	"github.com/moncdev/personachat/personas"
	"github.com/moncdev/personachat/sessions"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt []models.Message) (string, error) {
	return f.reply, f.err
}

func newTestServer(t *testing.T, completer sessions.Completer) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry, err := personas.LoadRegistry()
	if err != nil {
		t.Fatalf("Failed to load personas: %v", err)
	}

	srv := NewServer(registry, completer)
	srv.Delay = sessions.DelayRange{}
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})
	rec := doRequest(t, srv, "GET", "/api/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Success bool                `json:"success"`
		Data    models.HealthStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !resp.Success || resp.Data.Status != "ok" {
		t.Errorf("Expected ok health status, got %+v", resp)
	}
	if resp.Data.Version != Version {
		t.Errorf("Expected version %s, got %s", Version, resp.Data.Version)
	}
}

func TestHandleListPersonas(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})
	rec := doRequest(t, srv, "GET", "/api/personas", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Success bool                 `json:"success"`
		Data    []models.PersonaInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Data) == 0 {
		t.Fatal("Expected at least one persona")
	}
	for _, p := range resp.Data {
		if p.SystemPrompt != "" {
			t.Errorf("Expected no system prompt in the listing, got one for %s", p.ID)
		}
		if p.Description == "" {
			t.Errorf("Expected description for %s", p.ID)
		}
	}
}

func TestHandleGetPersona_IncludesPrompt(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})
	rec := doRequest(t, srv, "GET", "/api/personas/hitesh", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data models.PersonaInfo `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Data.SystemPrompt == "" {
		t.Error("Expected system prompt on the detail endpoint")
	}
}

func TestHandleGetPersona_NotFound(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})
	rec := doRequest(t, srv, "GET", "/api/personas/nobody", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}

	var resp models.APIResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Success || resp.Error == nil || resp.Error.Code != models.CodePersonaNotFound {
		t.Errorf("Expected PERSONA_NOT_FOUND envelope, got %+v", resp)
	}
}

func TestHandleChat_StreamsPartsAndComplete(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{reply: "Haanji!\nChaliye shuru karte hain."})
	rec := doRequest(t, srv, "POST", "/api/chat/hitesh", `{"message":"how do I start?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected event-stream content type, got %q", ct)
	}

	var events []models.RawStreamEvent
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event models.RawStreamEvent
		if err := json.Unmarshal([]byte(line[len("data: "):]), &event); err != nil {
			t.Fatalf("Failed to parse event line %q: %v", line, err)
		}
		events = append(events, event)
	}

	if len(events) != 3 {
		t.Fatalf("Expected 2 parts + complete, got %d events", len(events))
	}

	var first models.MessagePart
	if err := json.Unmarshal(events[0].Data, &first); err != nil {
		t.Fatalf("Failed to parse first part: %v", err)
	}
	if first.Content != "Haanji!" || first.PartIndex != 0 || first.TotalParts != 2 {
		t.Errorf("Unexpected first part: %+v", first)
	}

	var signal models.StreamSignal
	if err := json.Unmarshal(events[2].Data, &signal); err != nil || signal.Type != models.SignalComplete {
		t.Errorf("Expected completion signal last, got %s", events[2].Data)
	}
}

func TestHandleChat_EmptyMessage(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})
	rec := doRequest(t, srv, "POST", "/api/chat/hitesh", `{"message":"   "}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}

	var resp models.APIResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error == nil || resp.Error.Code != models.CodeInvalidMessage {
		t.Errorf("Expected INVALID_MESSAGE, got %+v", resp)
	}
}

func TestHandleChat_MalformedHistory(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})
	rec := doRequest(t, srv, "POST", "/api/chat/hitesh", `{"message":"hi","history":"not an array"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}

	var resp models.APIResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error == nil || resp.Error.Code != models.CodeInvalidHistory {
		t.Errorf("Expected INVALID_HISTORY, got %+v", resp)
	}
}

func TestHandleChat_UnknownPersona(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})
	rec := doRequest(t, srv, "POST", "/api/chat/nobody", `{"message":"hi"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}

func TestHandleChat_UpstreamErrorMidStream(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{err: models.NewChatError(models.CodeQuotaExceeded, "out of credits", "")})
	rec := doRequest(t, srv, "POST", "/api/chat/hitesh", `{"message":"hi"}`)

	// Headers were already streamed; the failure arrives as a terminal event.
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 with terminal error event, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, models.CodeQuotaExceeded) {
		t.Errorf("Expected quota error event in stream, got %q", body)
	}
	if strings.Contains(body, models.SignalComplete) {
		t.Errorf("Expected no completion signal after an error, got %q", body)
	}
}
