package personas

import (
	"errors"
	"strings"
	"testing"

	models "github.com/moncdev/personachat/models"
)

func TestLoadRegistry_EmbeddedPersonas(t *testing.T) {
	reg, err := LoadRegistry()
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}

	list := reg.List()
	if len(list) == 0 {
		t.Fatal("Expected at least one embedded persona")
	}
	for _, p := range list {
		if p.ID == "" || p.Name == "" || p.Prompt == "" {
			t.Errorf("Persona %q missing required fields: %+v", p.ID, p)
		}
	}
}

func TestRegistry_GetKnownPersona(t *testing.T) {
	reg, err := LoadRegistry()
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}

	p, err := reg.Get("hitesh")
	if err != nil {
		t.Fatalf("Expected hitesh persona, got error: %v", err)
	}
	if p.Name == "" {
		t.Error("Expected persona name to be set")
	}
	if !strings.HasPrefix(p.Description(), "Chat with ") {
		t.Errorf("Expected description prefix, got %q", p.Description())
	}
}

func TestRegistry_GetUnknownPersona(t *testing.T) {
	reg, _ := LoadRegistry()

	_, err := reg.Get("nobody")
	if err == nil {
		t.Fatal("Expected error for unknown persona")
	}
	var ce *models.ChatError
	if !errors.As(err, &ce) || ce.Code != models.CodePersonaNotFound {
		t.Errorf("Expected PERSONA_NOT_FOUND, got %v", err)
	}
	if !strings.Contains(ce.Details, "hitesh") {
		t.Errorf("Expected details to list available personas, got %q", ce.Details)
	}
}

func TestRegistry_FeaturedFirstOrdering(t *testing.T) {
	reg, _ := LoadRegistry()

	seenUnfeatured := false
	for _, p := range reg.List() {
		if !p.Featured {
			seenUnfeatured = true
		} else if seenUnfeatured {
			t.Fatalf("Featured persona %q listed after an unfeatured one", p.ID)
		}
	}
}
