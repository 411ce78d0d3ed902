// Package record contains the normalized academic record model: students,
// subjects, semesters, and grades. This is the core of the business logic -
// there are no external dependencies here.
package record

import (
	"regexp"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Regno is a student registration number. It is the stable external key for a
// student and is never reused.
type Regno string

var regnoPattern = regexp.MustCompile(`^\d{12}$`)

// IsValid reports whether the registration number has the corpus shape
// (a 12-digit numeric token).
func (r Regno) IsValid() bool {
	return regnoPattern.MatchString(string(r))
}

// String returns the string representation of the registration number.
func (r Regno) String() string {
	return string(r)
}

// SubjectCode is a catalog subject code, e.g. "21CS301T". The trailing letter
// distinguishes theory (T) from lab (L) courses.
type SubjectCode string

// IsValid reports whether the code is non-empty and has a course-type suffix.
func (c SubjectCode) IsValid() bool {
	s := string(c)
	if len(s) < 4 {
		return false
	}
	return strings.HasSuffix(s, "T") || strings.HasSuffix(s, "L")
}

// String returns the string representation of the subject code.
func (c SubjectCode) String() string {
	return string(c)
}

// Ordinal is the 1-based sequence number of a student's term, distinct from
// the exam-period label printed on a document.
type Ordinal int

// IsValid reports whether the ordinal is inside the programme range.
func (o Ordinal) IsValid() bool {
	return o >= 1 && o <= 12
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Student is identified by its registration number. The DOB string is stored
// verbatim; it is used only as a login secret by outer layers and is never
// validated for calendar correctness.
type Student struct {
	ID    string
	Regno Regno
	Name  string
	DOB   string
}

// Subject is a catalog entry created on first sighting of its code in any
// document. Credits, once set, are never corrected by later documents.
type Subject struct {
	ID   string
	Code SubjectCode
	Name string

	// Credits is the credit-weight used for grade-point arithmetic.
	Credits int

	// HomeSemester is the semester in which the subject is normally taken.
	HomeSemester Ordinal
}

// Semester is a (student, ordinal) pair, unique per pair. GPA is the overall
// average as reported on the document; nil when the semester was backfilled
// from an arrear row and was never reported on its own transcript.
type Semester struct {
	ID        string
	StudentID string
	Ordinal   Ordinal
	GPA       *float64
}

// Grade is a (semester, subject) pair, unique per pair. The letter is mutable
// (arrears overwrite it) but the pair identity is not. PointsEarned must
// always equal Credits × Points(Letter) for the currently stored letter.
type Grade struct {
	ID           string
	SemesterID   string
	SubjectID    string
	Letter       string
	PointsEarned int
}

// GradeChange is an audit row appended whenever a stored grade letter is
// replaced, either by an arrear overwrite or by a manual correction.
type GradeChange struct {
	ID            string
	Regno         Regno
	SubjectCode   SubjectCode
	Semester      Ordinal
	OriginalGrade string
	NewGrade      string
	Credits       int
	ChangedAt     string // RFC 3339, set by the store
}

// Recompute refreshes PointsEarned from the given credit-weight and the
// currently stored letter. Call after every letter change so the derived
// value never goes stale.
func (g *Grade) Recompute(credits int) {
	g.PointsEarned = PointsEarned(credits, g.Letter)
}
