package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	models "github.com/moncdev/personachat/models"
)

// DefaultPersonaCacheTTL is how long a fetched persona list stays fresh.
const DefaultPersonaCacheTTL = 5 * time.Minute

// PersonaClient fetches persona metadata from the backend with a TTL
// cache in front. Fetch failures fall back to stale cached data when
// any exists, so a flaky backend degrades instead of blanking the UI.
type PersonaClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      models.RetryPolicy
	TTL        time.Duration

	mu        sync.Mutex
	cached    []models.PersonaInfo
	fetchedAt time.Time
}

// NewPersonaClient creates a client with the default TTL and retry policy.
func NewPersonaClient(baseURL string) *PersonaClient {
	return &PersonaClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Retry:      models.DefaultRetryPolicy(),
		TTL:        DefaultPersonaCacheTTL,
	}
}

type personaListEnvelope struct {
	Success bool                 `json:"success"`
	Data    []models.PersonaInfo `json:"data"`
	Error   *models.APIError     `json:"error"`
}

type personaEnvelope struct {
	Success bool               `json:"success"`
	Data    models.PersonaInfo `json:"data"`
	Error   *models.APIError   `json:"error"`
}

// List returns all personas, from cache when fresh. Set forceRefresh to
// bypass the cache.
func (c *PersonaClient) List(ctx context.Context, forceRefresh bool) ([]models.PersonaInfo, error) {
	c.mu.Lock()
	if !forceRefresh && c.cached != nil && time.Since(c.fetchedAt) < c.TTL {
		cached := c.cached
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var fetched []models.PersonaInfo
	err := c.Retry.Do(ctx, func() error {
		personas, fetchErr := c.fetchList(ctx)
		if fetchErr != nil {
			return fetchErr
		}
		fetched = personas
		return nil
	})
	if err != nil {
		c.mu.Lock()
		stale := c.cached
		c.mu.Unlock()
		if stale != nil {
			return stale, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.cached = fetched
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return fetched, nil
}

// Get returns one persona by ID, served from the cached list when
// possible. The detail endpoint is only hit on a cache miss.
func (c *PersonaClient) Get(ctx context.Context, id string) (models.PersonaInfo, error) {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.fetchedAt) < c.TTL {
		for _, p := range c.cached {
			if p.ID == id {
				c.mu.Unlock()
				return p, nil
			}
		}
	}
	c.mu.Unlock()

	var persona models.PersonaInfo
	err := c.Retry.Do(ctx, func() error {
		fetched, fetchErr := c.fetchOne(ctx, id)
		if fetchErr != nil {
			return fetchErr
		}
		persona = fetched
		return nil
	})
	return persona, err
}

// ClearCache drops the cached persona list.
func (c *PersonaClient) ClearCache() {
	c.mu.Lock()
	c.cached = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *PersonaClient) fetchList(ctx context.Context) ([]models.PersonaInfo, error) {
	var envelope personaListEnvelope
	if err := c.getJSON(ctx, c.BaseURL+"/api/personas", &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, envelopeError(envelope.Error, "Persona list request failed")
	}
	return envelope.Data, nil
}

func (c *PersonaClient) fetchOne(ctx context.Context, id string) (models.PersonaInfo, error) {
	var envelope personaEnvelope
	if err := c.getJSON(ctx, c.BaseURL+"/api/personas/"+id, &envelope); err != nil {
		return models.PersonaInfo{}, err
	}
	if !envelope.Success {
		return models.PersonaInfo{}, envelopeError(envelope.Error, "Persona request failed")
	}
	return envelope.Data, nil
}

func (c *PersonaClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.NewChatError(models.CodeStreamTransport,
			"Failed to reach the persona service", err.Error())
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func envelopeError(apiErr *models.APIError, fallback string) error {
	if apiErr != nil {
		return models.NewChatError(apiErr.Code, apiErr.Message, apiErr.Details)
	}
	return models.NewChatError(models.CodeChatProcessing, fallback, "")
}
