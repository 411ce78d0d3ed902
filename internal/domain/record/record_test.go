package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoints(t *testing.T) {
	cases := map[string]int{
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
	for letter, want := range cases {
		assert.Equal(t, want, Points(letter), letter)
		assert.True(t, IsKnownGrade(letter), letter)
	}

	// Unrecognized letters count zero, never error.
	assert.Equal(t, 0, Points("X"))
	assert.False(t, IsKnownGrade("X"))
}

func TestPointsEarned(t *testing.T) {
	assert.Equal(t, 30, PointsEarned(3, "O"))
	assert.Equal(t, 28, PointsEarned(4, "B+"))
	assert.Equal(t, 0, PointsEarned(4, "RA"))
	assert.Equal(t, 0, PointsEarned(0, "A+"))
}

func TestGradeRecompute(t *testing.T) {
	g := Grade{Letter: "U"}
	g.Recompute(4)
	assert.Equal(t, 0, g.PointsEarned)

	g.Letter = "B+"
	g.Recompute(4)
	assert.Equal(t, 28, g.PointsEarned)
}

func TestRegnoIsValid(t *testing.T) {
	assert.True(t, Regno("310620104012").IsValid())
	assert.False(t, Regno("31062010401").IsValid())   // 11 digits
	assert.False(t, Regno("3106201040123").IsValid()) // 13 digits
	assert.False(t, Regno("31062010401A").IsValid())
	assert.False(t, Regno("").IsValid())
}

func TestSubjectCodeIsValid(t *testing.T) {
	assert.True(t, SubjectCode("21CS301T").IsValid())
	assert.True(t, SubjectCode("21CS301L").IsValid())
	assert.False(t, SubjectCode("21CS301").IsValid())
	assert.False(t, SubjectCode("T").IsValid())
}

func TestOrdinalIsValid(t *testing.T) {
	assert.True(t, Ordinal(1).IsValid())
	assert.True(t, Ordinal(12).IsValid())
	assert.False(t, Ordinal(0).IsValid())
	assert.False(t, Ordinal(13).IsValid())
}
