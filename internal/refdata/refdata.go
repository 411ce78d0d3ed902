// Package refdata loads the static reference tables consumed by the engine:
// the subject catalog (code -> name, credits) and the exam-period table
// (label -> ordinal semester). Both are plain JSON files so they can be
// versioned and extended without code changes; built-in defaults covering the
// known corpus ship embedded.
package refdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/acadhub/transcript-hub/internal/domain/record"
)

//go:embed subjects.json
var defaultSubjectsJSON []byte

//go:embed exam_periods.json
var defaultExamPeriodsJSON []byte

// DefaultCredits is the credit-weight assumed for a subject code missing from
// the catalog. Graceful degradation over document rejection is intentional.
const DefaultCredits = 4

// SubjectInfo is one subject catalog entry.
type SubjectInfo struct {
	Name    string `json:"name"`
	Credits int    `json:"credits"`
}

// SubjectCatalog maps subject codes to their catalog entries.
type SubjectCatalog struct {
	subjects       map[record.SubjectCode]SubjectInfo
	defaultCredits int
}

// NewSubjectCatalog builds a catalog from parsed entries.
func NewSubjectCatalog(subjects map[string]SubjectInfo, defaultCredits int) *SubjectCatalog {
	m := make(map[record.SubjectCode]SubjectInfo, len(subjects))
	for code, info := range subjects {
		m[record.SubjectCode(code)] = info
	}
	if defaultCredits <= 0 {
		defaultCredits = DefaultCredits
	}
	return &SubjectCatalog{subjects: m, defaultCredits: defaultCredits}
}

// LoadSubjectCatalog reads the catalog from a JSON file. An empty path loads
// the embedded defaults.
func LoadSubjectCatalog(path string, defaultCredits int) (*SubjectCatalog, error) {
	data := defaultSubjectsJSON
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("refdata: read subject catalog: %w", err)
		}
	}

	var subjects map[string]SubjectInfo
	if err := json.Unmarshal(data, &subjects); err != nil {
		return nil, fmt.Errorf("refdata: parse subject catalog: %w", err)
	}

	return NewSubjectCatalog(subjects, defaultCredits), nil
}

// Credits returns the catalog credit-weight for a code, or the default when
// the code is unlisted. The second return reports whether the code was found.
func (c *SubjectCatalog) Credits(code record.SubjectCode) (int, bool) {
	if info, ok := c.subjects[code]; ok && info.Credits > 0 {
		return info.Credits, true
	}
	return c.defaultCredits, false
}

// Len returns the number of catalog entries.
func (c *SubjectCatalog) Len() int {
	return len(c.subjects)
}

// LoadExamPeriods reads the exam-period table from a JSON file. An empty path
// loads the embedded defaults covering the known corpus.
func LoadExamPeriods(path string) (map[string]int, error) {
	data := defaultExamPeriodsJSON
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("refdata: read exam periods: %w", err)
		}
	}

	var table map[string]int
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("refdata: parse exam periods: %w", err)
	}

	return table, nil
}
