package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON renders the result as pretty-printed JSON.
func WriteJSON(w io.Writer, result *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
