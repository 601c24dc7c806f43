package models

// Persona is a named system-prompt configuration shaping the model's
// conversational behavior. Prompt text is opaque to the core.
type Persona struct {
	Name         string `json:"name" yaml:"name"`
	DisplayName  string `json:"display_name" yaml:"displayName"`
	SystemPrompt string `json:"-" yaml:"systemPrompt"`
}
