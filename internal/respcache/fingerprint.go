package respcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/pitchlens/pitchlens/internal/models"
)

// Fingerprint derives a deterministic cache key from the normalized
// request content. Normalization trims message whitespace and rounds the
// temperature to two decimals, so semantically equal requests collide;
// fields with no effect on the model's output stay out of the input.
// System-role messages are included, so different personas never share
// a cache entry.
func Fingerprint(endpoint, model string, messages []models.ChatMessage, temperature float32) string {
	var b strings.Builder
	b.WriteString(model)
	b.WriteByte('|')
	fmt.Fprintf(&b, "%.2f", roundTemp(temperature))
	for _, m := range messages {
		b.WriteByte('|')
		b.WriteString(string(m.Role))
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(m.Content))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return endpoint + ":" + hex.EncodeToString(sum[:])
}

// roundTemp groups near-equal temperatures onto two decimal places.
func roundTemp(t float32) float64 {
	return math.Round(float64(t)*100) / 100
}
