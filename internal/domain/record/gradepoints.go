package record

// ══════════════════════════════════════════════════════════════════════════════
// GRADE POINTS
// ══════════════════════════════════════════════════════════════════════════════

// GradeAlphabet is the canonical set of letter grades accepted by the row
// matcher and the point table. RA (reappearance) carries zero points, same as
// U, AB and NA.
var GradeAlphabet = []string{"O", "A+", "A", "B+", "B", "C", "U", "RA", "AB", "NA"}

// gradePoints maps a letter grade to its numeric weight.
var gradePoints = map[string]int{
	"O":  10,
	"A+": 9,
	"A":  8,
	"B+": 7,
	"B":  6,
	"C":  5,
	"U":  0,
	"RA": 0,
	"AB": 0,
	"NA": 0,
}

// Points returns the grade-point value for a letter grade. Unrecognized
// letters map to zero points, never to an error: one malformed row must not
// abort an otherwise valid transcript.
func Points(letter string) int {
	return gradePoints[letter]
}

// IsKnownGrade reports whether the letter is part of the canonical alphabet.
func IsKnownGrade(letter string) bool {
	_, ok := gradePoints[letter]
	return ok
}

// PointsEarned computes credit-weight × grade-point value. Both operands are
// integers; there is no fractional rounding anywhere in the pipeline.
func PointsEarned(credits int, letter string) int {
	return credits * Points(letter)
}
