// Package persona resolves named system-prompt configurations. Prompt
// wording is supplied by a YAML file and treated as opaque text.
package persona

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pitchlens/pitchlens/internal/models"
)

// DefaultName is the persona used when the caller names none, or names
// one the registry does not know.
const DefaultName = "analyst"

// builtin keeps the service usable with no personas file at all.
var builtin = []models.Persona{
	{
		Name:         "analyst",
		DisplayName:  "Analyst",
		SystemPrompt: "You are a seasoned venture analyst. Assess the pitch deck factually, cite specific slides, and answer follow-up questions with concrete reasoning.",
	},
	{
		Name:         "skeptic",
		DisplayName:  "Skeptic",
		SystemPrompt: "You are a skeptical investor. Probe weaknesses in the pitch deck, challenge assumptions, and press on risks the founders gloss over.",
	},
}

type personaFile struct {
	Personas []models.Persona `yaml:"personas"`
}

// Registry holds the named personas, reloadable at runtime.
type Registry struct {
	mu       sync.RWMutex
	personas map[string]models.Persona
	order    []string
	logger   *slog.Logger
}

// NewRegistry starts from the built-in personas.
func NewRegistry(logger *slog.Logger) *Registry {
	r := &Registry{logger: logger}
	r.replace(builtin)
	return r
}

// LoadFile replaces the registry contents with the personas in a YAML
// file. A missing file keeps the built-ins and is not an error.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Info("personas file not found, using built-in personas", "path", path)
			return nil
		}
		return fmt.Errorf("read personas file: %w", err)
	}

	var parsed personaFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse personas file: %w", err)
	}

	if len(parsed.Personas) == 0 {
		return fmt.Errorf("personas file %s defines no personas", path)
	}
	for _, p := range parsed.Personas {
		if p.Name == "" || p.SystemPrompt == "" {
			return fmt.Errorf("personas file %s: every persona needs a name and a systemPrompt", path)
		}
	}

	r.replace(parsed.Personas)
	r.logger.Info("loaded personas", "path", path, "count", len(parsed.Personas))
	return nil
}

// Get resolves a persona by name, falling back to the default persona
// when the name is empty or unknown.
func (r *Registry) Get(name string) models.Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.personas[name]; ok {
		return p
	}
	if p, ok := r.personas[DefaultName]; ok {
		return p
	}
	// Registry is never empty; fall back to the first loaded persona.
	return r.personas[r.order[0]]
}

// List returns the personas in load order, for the UI dropdown.
func (r *Registry) List() []models.Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Persona, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.personas[name])
	}
	return out
}

func (r *Registry) replace(personas []models.Persona) {
	byName := make(map[string]models.Persona, len(personas))
	order := make([]string, 0, len(personas))
	for _, p := range personas {
		if _, dup := byName[p.Name]; !dup {
			order = append(order, p.Name)
		}
		byName[p.Name] = p
	}

	r.mu.Lock()
	r.personas = byName
	r.order = order
	r.mu.Unlock()
}
