package extract

import (
	"iter"
	"regexp"
	"strings"

	"github.com/acadhub/transcript-hub/internal/domain/record"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT ROW MATCHER
// ══════════════════════════════════════════════════════════════════════════════

// CodePattern is the catalog-style subject code shape: curriculum year,
// department letters, course number, and a course-type suffix (T/L). Kept as
// a named constant because it is the most likely source of corpus drift.
const CodePattern = `2[123][A-Z]{2,3}\d{2,3}[TL]`

// GradePattern is the letter-grade alternation accepted by the row matcher.
// It mirrors record.GradeAlphabet.
const GradePattern = `A\+?|B\+?|C|O|U|RA|AB|NA`

// rowPattern matches one grade row: a single-digit declared semester, a
// subject code, a free-text subject name, and a letter grade. Surrounding
// unmatched text is ignored, not an error.
var rowPattern = regexp.MustCompile(
	`(?i)(\d)\s*(` + CodePattern + `)\s*(?:-\s|\s)([A-Za-z,\s]+)\s(` + GradePattern + `)\s`,
)

// Row is one matched grade row in document order.
type Row struct {
	// DeclaredSemester is the semester the row itself declares, which for an
	// arrear differs from the document's resolved semester.
	DeclaredSemester record.Ordinal

	Code  record.SubjectCode
	Name  string
	Grade string
}

// Rows scans the text for grade rows and yields them lazily in document
// order. The sequence is finite and restartable: ranging over it twice
// rescans the same text.
func Rows(text string) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		offset := 0
		for offset < len(text) {
			loc := rowPattern.FindStringSubmatchIndex(text[offset:])
			if loc == nil {
				return
			}
			r := rowFromMatch(text[offset:], loc)
			// The trailing \s of one row may be the leading context of the
			// next; resume right after the grade token.
			offset += loc[9]
			if !yield(r) {
				return
			}
		}
	}
}

// MatchRows returns all grade rows in the text in document order.
func MatchRows(text string) []Row {
	var rows []Row
	for r := range Rows(text) {
		rows = append(rows, r)
	}
	return rows
}

func rowFromMatch(text string, loc []int) Row {
	group := func(i int) string {
		return text[loc[2*i]:loc[2*i+1]]
	}
	return Row{
		DeclaredSemester: record.Ordinal(group(1)[0] - '0'),
		Code:             record.SubjectCode(strings.ToUpper(group(2))),
		Name:             strings.TrimSpace(group(3)),
		Grade:            strings.ToUpper(group(4)),
	}
}
