package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIELD EXTRACTORS
// Four independent, order-insensitive scalar extractions over the normalized
// text. Patterns follow the reference transcript corpus.
// ══════════════════════════════════════════════════════════════════════════════

var (
	// regnoPattern matches the 12-digit registration number.
	regnoPattern = regexp.MustCompile(`\d{12}`)

	// namePattern captures the labeled name line.
	namePattern = regexp.MustCompile(`Name\s: ([A-Za-z ]*)`)

	// dobPattern captures the labeled date-of-birth line (DD-MM-YYYY).
	dobPattern = regexp.MustCompile(`D\.O\.B : (\d{2}-\d{2}-\d{4})`)

	// gpaPattern captures the trailing summary marker line.
	gpaPattern = regexp.MustCompile(`=> (.*)`)

	// periodPattern captures the exam-period banner,
	// e.g. "Provisional Results for NOV 2024 Examinations".
	periodPattern = regexp.MustCompile(`(?i)Provisional Results for ([A-Za-z]* \d*) Examinations`)
)

// Regno extracts the first 12-digit registration number token. Absence is a
// hard failure for the document - without it no record can be attributed.
func Regno(text string) (record.Regno, error) {
	m := regnoPattern.FindString(text)
	if m == "" {
		return "", shared.ErrRegnoNotFound
	}
	return record.Regno(m), nil
}

// Name extracts the student name from its labeled line, trimmed and rendered
// in title case for display consistency.
func Name(text string) (string, error) {
	m := namePattern.FindStringSubmatch(text)
	if m == nil {
		return "", shared.ErrNameNotFound
	}
	name := titleCase(strings.TrimSpace(m[1]))
	if name == "" {
		return "", shared.ErrNameNotFound
	}
	return name, nil
}

// DOB extracts the date of birth in DD-MM-YYYY form, stored verbatim. The
// engine never validates calendar correctness.
func DOB(text string) (string, error) {
	m := dobPattern.FindStringSubmatch(text)
	if m == nil {
		return "", shared.ErrDOBNotFound
	}
	return strings.TrimSpace(m[1]), nil
}

// GPA extracts the overall grade-point average from the trailing summary
// marker. Absence or an unparseable value is tolerated: the semester's GPA
// stays unset and the document is still processed.
func GPA(text string) *float64 {
	m := gpaPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64)
	if err != nil {
		return nil
	}
	return &v
}

// ExamPeriod extracts the free-text exam-period label from the banner line,
// e.g. "NOV 2024". Resolution to an ordinal semester is the resolver's job.
func ExamPeriod(text string) (string, error) {
	m := periodPattern.FindStringSubmatch(text)
	if m == nil {
		return "", shared.ErrPeriodNotFound
	}
	return strings.TrimSpace(m[1]), nil
}

// titleCase uppercases the first letter of every word and lowercases the
// rest, the way the corpus renders names ("JOHN DOE" -> "John Doe").
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
