package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/domain/shared"
)

func newTestResolver() *Resolver {
	return New(map[string]int{
		"MAY 2025":      6,
		"NOV 2024":      5,
		"NOVEMBER 2023": 3,
		"JUL 23":        2,
	})
}

func TestResolve(t *testing.T) {
	r := newTestResolver()

	ordinal, err := r.Resolve("NOV 2024")
	assert.NoError(t, err)
	assert.Equal(t, record.Ordinal(5), ordinal)
}

func TestResolve_Normalization(t *testing.T) {
	r := newTestResolver()

	// Casing and spacing vary across exam sessions.
	for _, label := range []string{"nov 2024", "NOV  2024", "  Nov 2024  "} {
		ordinal, err := r.Resolve(label)
		assert.NoError(t, err, label)
		assert.Equal(t, record.Ordinal(5), ordinal, label)
	}
}

func TestResolve_UnknownLabelAborts(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve("MAY 2030")
	assert.Error(t, err)
	assert.True(t, shared.IsResolution(err))
}

func TestLabels(t *testing.T) {
	labels := newTestResolver().Labels()
	assert.Equal(t, []string{"JUL 23", "MAY 2025", "NOV 2024", "NOVEMBER 2023"}, labels)
}
