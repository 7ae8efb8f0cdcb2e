package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractCat handles formats lu4p/cat detects from content: ODT and RTF.
func extractCat(content []byte, kind string) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", kind, err)
	}
	return text, nil
}
