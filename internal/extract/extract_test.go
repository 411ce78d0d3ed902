package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/domain/shared"
)

const sampleTranscript = `Controller of Examinations
Provisional Results for NOV 2024 Examinations

Register No : 310620104012
Name : JOHN ARUL DOSS
D.O.B : 14-06-2005

Sem Course Code Course Title Grade
5 21CS501T - Computer Networks A+
5 21CS501L  Computer Networks Laboratory O
3 21MA301T - Discrete Mathematics RA

GPA => 8.45
`

func TestNormalizePages(t *testing.T) {
	text, err := NormalizePages([]string{"page one", "page two"})
	assert.NoError(t, err)
	assert.Equal(t, "page one\npage two", text)

	_, err = NormalizePages(nil)
	assert.ErrorIs(t, err, shared.ErrEmptyDocument)
}

func TestRegno(t *testing.T) {
	regno, err := Regno(sampleTranscript)
	assert.NoError(t, err)
	assert.Equal(t, record.Regno("310620104012"), regno)

	_, err = Regno("no number here")
	assert.ErrorIs(t, err, shared.ErrRegnoNotFound)
}

func TestName(t *testing.T) {
	name, err := Name(sampleTranscript)
	assert.NoError(t, err)
	assert.Equal(t, "John Arul Doss", name)

	_, err = Name("Name :  \n")
	assert.ErrorIs(t, err, shared.ErrNameNotFound)
}

func TestDOB(t *testing.T) {
	dob, err := DOB(sampleTranscript)
	assert.NoError(t, err)
	assert.Equal(t, "14-06-2005", dob)

	_, err = DOB("D.O.B : unknown")
	assert.ErrorIs(t, err, shared.ErrDOBNotFound)
}

func TestGPA(t *testing.T) {
	gpa := GPA(sampleTranscript)
	if assert.NotNil(t, gpa) {
		assert.InDelta(t, 8.45, *gpa, 0.001)
	}

	// Absence and garbage are both tolerated as unset.
	assert.Nil(t, GPA("no marker"))
	assert.Nil(t, GPA("GPA => withheld\n"))
}

func TestExamPeriod(t *testing.T) {
	label, err := ExamPeriod(sampleTranscript)
	assert.NoError(t, err)
	assert.Equal(t, "NOV 2024", label)

	// The banner casing varies across sessions.
	label, err = ExamPeriod("provisional results for May 2024 examinations")
	assert.NoError(t, err)
	assert.Equal(t, "May 2024", label)

	_, err = ExamPeriod("Results for NOV 2024")
	assert.ErrorIs(t, err, shared.ErrPeriodNotFound)
}

func TestMatchRows(t *testing.T) {
	rows := MatchRows(sampleTranscript)
	if !assert.Len(t, rows, 3) {
		return
	}

	assert.Equal(t, record.Ordinal(5), rows[0].DeclaredSemester)
	assert.Equal(t, record.SubjectCode("21CS501T"), rows[0].Code)
	assert.Equal(t, "Computer Networks", rows[0].Name)
	assert.Equal(t, "A+", rows[0].Grade)

	// Separator without a hyphen.
	assert.Equal(t, record.SubjectCode("21CS501L"), rows[1].Code)
	assert.Equal(t, "Computer Networks Laboratory", rows[1].Name)
	assert.Equal(t, "O", rows[1].Grade)

	// An arrear row declares its own semester.
	assert.Equal(t, record.Ordinal(3), rows[2].DeclaredSemester)
	assert.Equal(t, "RA", rows[2].Grade)
}

func TestMatchRows_CaseInsensitiveCode(t *testing.T) {
	rows := MatchRows("4 21cs402t - Database Management Systems b+ \n")
	if assert.Len(t, rows, 1) {
		assert.Equal(t, record.SubjectCode("21CS402T"), rows[0].Code)
		assert.Equal(t, "B+", rows[0].Grade)
	}
}

func TestMatchRows_IgnoresSurroundingText(t *testing.T) {
	assert.Empty(t, MatchRows("no grade rows in this text at all"))

	// A code without the single-digit semester prefix is not a row.
	assert.Empty(t, MatchRows("21CS301T - Data Structures A \n"))
}

func TestRows_Restartable(t *testing.T) {
	seq := Rows(sampleTranscript)

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	assert.Equal(t, 3, first)
	assert.Equal(t, first, second)
}

func TestRows_EarlyStop(t *testing.T) {
	var got []Row
	for r := range Rows(sampleTranscript) {
		got = append(got, r)
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)
}
