package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadhub/transcript-hub/internal/infrastructure/persistence/memory"
)

func TestRecordGradeChange(t *testing.T) {
	store := memory.NewRecordStore()
	process(t, newTestHandler(t, store), semesterThreeDoc)

	h := NewRecordGradeChangeHandler(store, nil, nil)
	res, err := h.Handle(context.Background(), RecordGradeChangeCommand{
		Regno:       "310620104012",
		SubjectCode: "21CS301L",
		Semester:    3,
		NewGrade:    "A",
	})
	require.NoError(t, err)

	assert.Equal(t, "O", res.OriginalGrade)
	assert.Equal(t, "A", res.NewGrade)
	assert.Equal(t, 16, res.PointsEarned) // 2 credits × A (8)

	grades := listGrades(t, store, "310620104012", 3)
	assert.Equal(t, "A", grades["21CS301L"].Letter)
	assert.Equal(t, 16, grades["21CS301L"].PointsEarned)

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	changes, err := tx.ListGradeChanges(ctx, "310620104012")
	require.NoError(t, err)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, "O", changes[0].OriginalGrade)
		assert.Equal(t, "A", changes[0].NewGrade)
	}
}

func TestRecordGradeChange_Validation(t *testing.T) {
	h := NewRecordGradeChangeHandler(memory.NewRecordStore(), nil, nil)

	cases := []RecordGradeChangeCommand{
		{Regno: "bad", SubjectCode: "21CS301T", Semester: 3, NewGrade: "A"},
		{Regno: "310620104012", SubjectCode: "21CS301", Semester: 3, NewGrade: "A"},
		{Regno: "310620104012", SubjectCode: "21CS301T", Semester: 0, NewGrade: "A"},
		{Regno: "310620104012", SubjectCode: "21CS301T", Semester: 3, NewGrade: "Z"},
	}
	for _, cmd := range cases {
		_, err := h.Handle(context.Background(), cmd)
		assert.Error(t, err)
	}
}

func TestRecordGradeChange_GradeNotFound(t *testing.T) {
	store := memory.NewRecordStore()
	process(t, newTestHandler(t, store), semesterThreeDoc)

	h := NewRecordGradeChangeHandler(store, nil, nil)
	_, err := h.Handle(context.Background(), RecordGradeChangeCommand{
		Regno:       "310620104012",
		SubjectCode: "21CS999T",
		Semester:    3,
		NewGrade:    "A",
	})
	assert.Error(t, err)
}
