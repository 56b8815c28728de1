package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	models "github.com/moncdev/personachat/models"
)

func personaServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/api/personas":
			json.NewEncoder(w).Encode(models.APIResponse{
				Success: true,
				Data: []models.PersonaInfo{
					{ID: "hitesh", Name: "Hitesh Choudhary"},
					{ID: "piyush", Name: "Piyush Garg"},
				},
			})
		case "/api/personas/hitesh":
			json.NewEncoder(w).Encode(models.APIResponse{
				Success: true,
				Data:    models.PersonaInfo{ID: "hitesh", Name: "Hitesh Choudhary", SystemPrompt: "You are Hitesh."},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.APIResponse{
				Success: false,
				Error:   &models.APIError{Code: models.CodePersonaNotFound, Message: "not found"},
			})
		}
	}))
}

func TestPersonaClient_ListUsesCache(t *testing.T) {
	var hits int32
	server := personaServer(t, &hits)
	defer server.Close()

	pc := NewPersonaClient(server.URL)

	first, err := pc.List(context.Background(), false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("Expected 2 personas, got %d", len(first))
	}

	if _, err := pc.List(context.Background(), false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("Expected second list served from cache, got %d fetches", hits)
	}
}

func TestPersonaClient_ForceRefreshBypassesCache(t *testing.T) {
	var hits int32
	server := personaServer(t, &hits)
	defer server.Close()

	pc := NewPersonaClient(server.URL)
	pc.List(context.Background(), false)
	pc.List(context.Background(), true)

	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("Expected force refresh to hit the backend, got %d fetches", hits)
	}
}

func TestPersonaClient_ExpiredCacheRefetches(t *testing.T) {
	var hits int32
	server := personaServer(t, &hits)
	defer server.Close()

	pc := NewPersonaClient(server.URL)
	pc.TTL = time.Millisecond

	pc.List(context.Background(), false)
	time.Sleep(5 * time.Millisecond)
	pc.List(context.Background(), false)

	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("Expected expired cache to refetch, got %d fetches", hits)
	}
}

func TestPersonaClient_GetServedFromCachedList(t *testing.T) {
	var hits int32
	server := personaServer(t, &hits)
	defer server.Close()

	pc := NewPersonaClient(server.URL)
	pc.List(context.Background(), false)

	persona, err := pc.Get(context.Background(), "piyush")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if persona.Name != "Piyush Garg" {
		t.Errorf("Expected cached persona, got %+v", persona)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("Expected Get to avoid the backend, got %d fetches", hits)
	}
}

func TestPersonaClient_StaleFallbackOnFetchFailure(t *testing.T) {
	var hits int32
	server := personaServer(t, &hits)

	pc := NewPersonaClient(server.URL)
	pc.Retry = models.RetryPolicy{MaxAttempts: 1}

	if _, err := pc.List(context.Background(), false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Backend goes away; the stale cache keeps serving.
	server.Close()
	pc.TTL = 0

	stale, err := pc.List(context.Background(), false)
	if err != nil {
		t.Fatalf("Expected stale fallback, got error: %v", err)
	}
	if len(stale) != 2 {
		t.Errorf("Expected stale cached personas, got %d", len(stale))
	}
}

func TestPersonaClient_ClearCache(t *testing.T) {
	var hits int32
	server := personaServer(t, &hits)
	defer server.Close()

	pc := NewPersonaClient(server.URL)
	pc.List(context.Background(), false)
	pc.ClearCache()
	pc.List(context.Background(), false)

	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("Expected refetch after clearing the cache, got %d fetches", hits)
	}
}
