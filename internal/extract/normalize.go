// Package extract implements pattern-driven extraction over transcript page
// text: the normalizer that flattens pages into one blob, the scalar field
// extractors, and the subject row matcher. Every function here is a pure
// function of the text - same text in, same result out.
package extract

import (
	"strings"

	"github.com/acadhub/transcript-hub/internal/domain/shared"
)

// NormalizePages flattens an ordered sequence of page texts into a single
// blob, pages concatenated in order with line boundaries preserved. No
// semantic transformation happens here. A document with no readable text is
// an extraction failure that aborts only that document.
func NormalizePages(pages []string) (string, error) {
	if len(pages) == 0 {
		return "", shared.ErrEmptyDocument
	}

	blob := strings.Join(pages, "\n")
	if strings.TrimSpace(blob) == "" {
		return "", shared.ErrEmptyDocument
	}

	return blob, nil
}
