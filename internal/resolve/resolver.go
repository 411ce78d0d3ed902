// Package resolve maps free-text exam-period labels to ordinal semester
// numbers. A wrong guess would silently corrupt semester attribution, which
// is judged worse than dropping the document, so unknown labels abort.
package resolve

import (
	"sort"
	"strings"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/domain/shared"
)

// Resolver resolves exam-period labels against an injected lookup table. The
// table is plain configuration, not process-wide state, so tests can
// substitute fixtures and operators can extend it without code changes.
type Resolver struct {
	table map[string]record.Ordinal
}

// New creates a Resolver from a label -> ordinal table. Lookup is
// case-insensitive on the label, matching the banner's inconsistent casing
// across exam sessions ("NOV 2024" vs "November 2023").
func New(table map[string]int) *Resolver {
	t := make(map[string]record.Ordinal, len(table))
	for label, ordinal := range table {
		t[normalizeLabel(label)] = record.Ordinal(ordinal)
	}
	return &Resolver{table: t}
}

// Resolve maps an exam-period label to its ordinal semester. A label not in
// the table is a resolution failure that aborts the whole document.
func (r *Resolver) Resolve(label string) (record.Ordinal, error) {
	ordinal, ok := r.table[normalizeLabel(label)]
	if !ok {
		return 0, shared.WrapError("resolver", "Resolve", shared.ErrResolution,
			"exam period "+quote(label)+" not in lookup table", nil)
	}
	return ordinal, nil
}

// Labels returns the known labels in sorted order, for diagnostics.
func (r *Resolver) Labels() []string {
	labels := make([]string, 0, len(r.table))
	for label := range r.table {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func normalizeLabel(label string) string {
	return strings.ToUpper(strings.Join(strings.Fields(label), " "))
}

func quote(label string) string {
	return `"` + label + `"`
}
