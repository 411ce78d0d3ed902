package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadhub/transcript-hub/internal/application/command"
	"github.com/acadhub/transcript-hub/internal/infrastructure/persistence/memory"
	"github.com/acadhub/transcript-hub/internal/refdata"
	"github.com/acadhub/transcript-hub/internal/resolve"
)

const semesterThreeDoc = `Controller of Examinations
Provisional Results for NOVEMBER 2023 Examinations

Register No : 310620104012
Name : JOHN ARUL DOSS
D.O.B : 14-06-2005

3 21CS301T - Data Structures A+
3 21CS301L - Data Structures Laboratory O
3 21MA301T - Discrete Mathematics U

GPA => 7.51
`

const semesterFiveDoc = `Controller of Examinations
Provisional Results for NOV 2024 Examinations

Register No : 310620104012
Name : JOHN ARUL DOSS
D.O.B : 14-06-2005

5 21CS501T - Computer Networks A
3 21MA301T - Discrete Mathematics B+

GPA => 8.20
`

func seedStore(t *testing.T, docs ...string) *memory.RecordStore {
	t.Helper()

	store := memory.NewRecordStore()
	periods, err := refdata.LoadExamPeriods("")
	require.NoError(t, err)
	catalog, err := refdata.LoadSubjectCatalog("", refdata.DefaultCredits)
	require.NoError(t, err)

	h := command.NewProcessDocumentHandler(store, resolve.New(periods), catalog, nil, nil)
	for _, doc := range docs {
		res, err := h.Handle(context.Background(), command.ProcessDocumentCommand{
			Pages:  []string{doc},
			Source: "seed.pdf",
		})
		require.NoError(t, err)
		require.Equal(t, command.StatusProcessed, res.Status)
	}
	return store
}

func TestGetStudentRecord(t *testing.T) {
	store := seedStore(t, semesterThreeDoc, semesterFiveDoc)
	h := NewGetStudentRecordHandler(store, nil, nil)

	rec, err := h.Handle(context.Background(), GetStudentRecordQuery{Regno: "310620104012"})
	require.NoError(t, err)

	assert.Equal(t, "310620104012", rec.Regno)
	assert.Equal(t, "John Arul Doss", rec.Name)
	require.Len(t, rec.Semesters, 2)

	semThree := rec.Semesters[0]
	assert.Equal(t, 3, semThree.Semester)
	if assert.NotNil(t, semThree.GPA) {
		assert.InDelta(t, 7.51, *semThree.GPA, 0.001)
	}
	require.Len(t, semThree.Subjects, 3)
	// Rows come back in subject-code order.
	assert.Equal(t, "21CS301L", semThree.Subjects[0].Code)
	assert.Equal(t, "21CS301T", semThree.Subjects[1].Code)
	assert.Equal(t, "21MA301T", semThree.Subjects[2].Code)
	// The arrear retake shows the corrected grade.
	assert.Equal(t, "B+", semThree.Subjects[2].Grade)
	assert.Equal(t, 28, semThree.Subjects[2].PointsEarned)
	assert.Equal(t, 9, semThree.TotalCredits)            // 2 + 3 + 4
	assert.Equal(t, 20+27+28, semThree.TotalGradePoints) // O, A+, B+

	semFive := rec.Semesters[1]
	assert.Equal(t, 5, semFive.Semester)
	require.Len(t, semFive.Subjects, 1)
	assert.Equal(t, "21CS501T", semFive.Subjects[0].Code)

	// The overwrite appears in the audit trail.
	require.Len(t, rec.GradeChanges, 1)
	assert.Equal(t, "21MA301T", rec.GradeChanges[0].SubjectCode)
	assert.Equal(t, "U", rec.GradeChanges[0].OriginalGrade)
	assert.Equal(t, "B+", rec.GradeChanges[0].NewGrade)
}

func TestGetStudentRecord_NotFound(t *testing.T) {
	h := NewGetStudentRecordHandler(memory.NewRecordStore(), nil, nil)

	_, err := h.Handle(context.Background(), GetStudentRecordQuery{Regno: "999999999999"})
	assert.Error(t, err)
}

func TestGetStudentRecord_InvalidRegno(t *testing.T) {
	h := NewGetStudentRecordHandler(memory.NewRecordStore(), nil, nil)

	_, err := h.Handle(context.Background(), GetStudentRecordQuery{Regno: "short"})
	assert.Error(t, err)
}

// fakeViewCache is an in-memory RecordViewCache for testing cache behavior.
type fakeViewCache struct {
	values map[string][]byte
	hits   int
	sets   int
}

func newFakeViewCache() *fakeViewCache {
	return &fakeViewCache{values: make(map[string][]byte)}
}

func (c *fakeViewCache) Get(ctx context.Context, regno string, dest any) error {
	data, ok := c.values[regno]
	if !ok {
		return errors.New("miss")
	}
	c.hits++
	return json.Unmarshal(data, dest)
}

func (c *fakeViewCache) Set(ctx context.Context, regno string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.values[regno] = data
	c.sets++
	return nil
}

func TestGetStudentRecord_CachesView(t *testing.T) {
	store := seedStore(t, semesterThreeDoc)
	cache := newFakeViewCache()
	h := NewGetStudentRecordHandler(store, cache, nil)

	first, err := h.Handle(context.Background(), GetStudentRecordQuery{Regno: "310620104012"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 0, cache.hits)

	second, err := h.Handle(context.Background(), GetStudentRecordQuery{Regno: "310620104012"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Regno, second.Regno)
	assert.Equal(t, len(first.Semesters), len(second.Semesters))
}

func TestStudentRecord_JSONShape(t *testing.T) {
	store := seedStore(t, semesterThreeDoc)
	h := NewGetStudentRecordHandler(store, nil, nil)

	rec, err := h.Handle(context.Background(), GetStudentRecordQuery{Regno: "310620104012"})
	require.NoError(t, err)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"regno":"310620104012"`)
	assert.Contains(t, string(data), `"total_grade_points"`)
	// No changes yet, so the audit key is omitted.
	assert.NotContains(t, string(data), `"grade_changes"`)
}
