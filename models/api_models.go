package models

// APIResponse is the JSON envelope for all non-streamed endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError is the error body inside an APIResponse or StreamEvent.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// PersonaInfo is the persona shape returned by the persona endpoints.
// SystemPrompt is only populated by the single-persona endpoint.
type PersonaInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ProfileImage string   `json:"profileImage"`
	Description  string   `json:"description"`
	IsOnline     bool     `json:"isOnline"`
	FilterTags   []string `json:"filterTags,omitempty"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}
