package generator

import (
	"encoding/json"
	"fmt"

	"github.com/aviationwx/aviationwx/internal/airports"
)

// Snippet renders the airports.json fragment for a validated record,
// indented to paste straight into the registry's "airports" object
func Snippet(apt *airports.Airport) (string, error) {
	body, err := json.MarshalIndent(apt, "  ", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode airport snippet: %w", err)
	}
	return fmt.Sprintf("  %q: %s", apt.Ident, body), nil
}
