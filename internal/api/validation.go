package api

import (
	"fmt"

	"github.com/pitchlens/pitchlens/internal/models"
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// validateMessages checks the inbound message list: present, non-empty,
// known roles, non-empty content.
func validateMessages(messages []models.ChatMessage) error {
	if len(messages) == 0 {
		return ValidationError{Field: "messages", Message: "messages must be a non-empty array"}
	}

	for i, m := range messages {
		if !m.Role.IsValid() {
			return ValidationError{Field: "messages", Message: fmt.Sprintf("message %d has unknown role %q", i, m.Role)}
		}
		if m.Content == "" {
			return ValidationError{Field: "messages", Message: fmt.Sprintf("message %d has empty content", i)}
		}
	}

	return nil
}

// validateTemperature bounds the optional sampling temperature.
func validateTemperature(t *float32) error {
	if t == nil {
		return nil
	}
	if *t < 0 || *t > 2 {
		return ValidationError{Field: "temperature", Message: "temperature must be between 0.0 and 2.0"}
	}
	return nil
}
