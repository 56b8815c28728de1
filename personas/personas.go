package personas

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	models "github.com/moncdev/personachat/models"
)

//go:embed data/*.json
var personaFiles embed.FS

// Persona is a fixed personality configuration the model impersonates.
// Loaded once at process start from the embedded data files and never
// mutated afterwards.
type Persona struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ProfileImage string   `json:"profileImage"`
	Featured     bool     `json:"featured"`
	FilterTags   []string `json:"filterTags"`
	Prompt       string   `json:"prompt"`
}

// Description is the short blurb shown in persona listings.
func (p Persona) Description() string {
	return "Chat with " + p.Name
}

// Registry holds the immutable persona set keyed by id.
type Registry struct {
	byID  map[string]Persona
	order []string
}

// LoadRegistry reads every embedded persona file into a Registry.
func LoadRegistry() (*Registry, error) {
	entries, err := personaFiles.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded persona data: %w", err)
	}

	reg := &Registry{byID: make(map[string]Persona, len(entries))}
	for _, entry := range entries {
		raw, err := personaFiles.ReadFile("data/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read persona file '%s': %w", entry.Name(), err)
		}

		var p Persona
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal persona file '%s': %w", entry.Name(), err)
		}
		if p.ID == "" {
			p.ID = strings.TrimSuffix(entry.Name(), ".json")
		}

		reg.byID[p.ID] = p
		reg.order = append(reg.order, p.ID)
	}

	// Featured personas first, then alphabetical, matching the original
	// sidebar ordering.
	sort.SliceStable(reg.order, func(i, j int) bool {
		a, b := reg.byID[reg.order[i]], reg.byID[reg.order[j]]
		if a.Featured != b.Featured {
			return a.Featured
		}
		return a.ID < b.ID
	})

	return reg, nil
}

// Get returns the persona for id, or a PERSONA_NOT_FOUND ChatError whose
// details list the valid ids.
func (r *Registry) Get(id string) (Persona, error) {
	p, ok := r.byID[id]
	if !ok {
		return Persona{}, models.NewChatError(
			models.CodePersonaNotFound,
			fmt.Sprintf("Persona with ID '%s' not found", id),
			"Available personas: "+strings.Join(r.IDs(), ", "),
		)
	}
	return p, nil
}

// List returns all personas in display order.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns the persona ids in display order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}
