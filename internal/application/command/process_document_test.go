package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/domain/shared"
	"github.com/acadhub/transcript-hub/internal/infrastructure/persistence/memory"
	"github.com/acadhub/transcript-hub/internal/refdata"
	"github.com/acadhub/transcript-hub/internal/resolve"
)

// semesterThreeDoc is a complete third-semester transcript.
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

// semesterFiveDoc is a later transcript for the same student carrying two
// current rows, one arrear retake of the failed third-semester subject, and
// one arrear for a semester never seen before.
const semesterFiveDoc = `Controller of Examinations
Provisional Results for NOV 2024 Examinations

Register No : 310620104012
Name : JOHN ARUL DOSS
D.O.B : 14-06-2005

5 21CS501T - Computer Networks A
5 21CS502T - Theory of Computation B
3 21MA301T - Discrete Mathematics B+
2 21CS402T - Database Management Systems A

GPA => 8.20
`

func newTestHandler(t *testing.T, store record.Store) *ProcessDocumentHandler {
	t.Helper()

	periods, err := refdata.LoadExamPeriods("")
	require.NoError(t, err)
	catalog, err := refdata.LoadSubjectCatalog("", refdata.DefaultCredits)
	require.NoError(t, err)

	return NewProcessDocumentHandler(store, resolve.New(periods), catalog, nil, nil)
}

func process(t *testing.T, h *ProcessDocumentHandler, doc string) *ProcessDocumentResult {
	t.Helper()
	res, err := h.Handle(context.Background(), ProcessDocumentCommand{
		Pages:  []string{doc},
		Source: "test.pdf",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func findSemester(t *testing.T, store record.Store, regno record.Regno, ordinal record.Ordinal) *record.Semester {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	student, err := tx.FindStudent(ctx, regno)
	require.NoError(t, err)
	sem, err := tx.FindSemester(ctx, student.ID, ordinal)
	require.NoError(t, err)
	return sem
}

func listGrades(t *testing.T, store record.Store, regno record.Regno, ordinal record.Ordinal) map[record.SubjectCode]*record.GradeRow {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	student, err := tx.FindStudent(ctx, regno)
	require.NoError(t, err)
	sem, err := tx.FindSemester(ctx, student.ID, ordinal)
	require.NoError(t, err)
	rows, err := tx.ListGrades(ctx, sem.ID)
	require.NoError(t, err)

	byCode := make(map[record.SubjectCode]*record.GradeRow, len(rows))
	for _, r := range rows {
		byCode[r.SubjectCode] = r
	}
	return byCode
}

func TestProcessDocument_NewStudent(t *testing.T) {
	store := memory.NewRecordStore()
	h := newTestHandler(t, store)

	res := process(t, h, semesterThreeDoc)

	assert.Equal(t, StatusProcessed, res.Status)
	assert.True(t, res.StudentCreated)
	assert.Equal(t, record.Regno("310620104012"), res.Regno)
	assert.Equal(t, record.Ordinal(3), res.ResolvedSemester)
	assert.Equal(t, 3, res.GradesInserted)
	assert.Equal(t, 0, res.GradesUpdated)
	assert.Equal(t, 3, res.SubjectsCreated)

	sem := findSemester(t, store, res.Regno, 3)
	if assert.NotNil(t, sem.GPA) {
		assert.InDelta(t, 7.51, *sem.GPA, 0.001)
	}

	grades := listGrades(t, store, res.Regno, 3)
	// Catalog credits: 21CS301T=3, 21CS301L=2, 21MA301T=4.
	assert.Equal(t, 27, grades["21CS301T"].PointsEarned) // 3 × A+ (9)
	assert.Equal(t, 20, grades["21CS301L"].PointsEarned) // 2 × O (10)
	assert.Equal(t, 0, grades["21MA301T"].PointsEarned)  // failed, U
	assert.Equal(t, "U", grades["21MA301T"].Letter)
}

func TestProcessDocument_Idempotent(t *testing.T) {
	store := memory.NewRecordStore()
	h := newTestHandler(t, store)

	first := process(t, h, semesterThreeDoc)
	assert.Equal(t, StatusProcessed, first.Status)
	gradesBefore := store.CountGrades()

	second := process(t, h, semesterThreeDoc)
	assert.Equal(t, StatusSkippedDuplicate, second.Status)
	assert.False(t, second.StudentCreated)
	assert.Equal(t, 0, second.GradesInserted)
	assert.Equal(t, gradesBefore, store.CountGrades())
	assert.Equal(t, 1, store.CountSemesters())
}

func TestProcessDocument_ArrearOverwriteAndBackfill(t *testing.T) {
	store := memory.NewRecordStore()
	h := newTestHandler(t, store)

	process(t, h, semesterThreeDoc)
	res := process(t, h, semesterFiveDoc)

	assert.Equal(t, StatusProcessed, res.Status)
	assert.False(t, res.StudentCreated)
	assert.Equal(t, record.Ordinal(5), res.ResolvedSemester)
	// Two current rows plus the backfilled semester-2 arrear.
	assert.Equal(t, 3, res.GradesInserted)
	// The semester-3 retake overwrote the stored U.
	assert.Equal(t, 1, res.GradesUpdated)
	assert.Equal(t, 3, store.CountSemesters())

	// The retake landed in its home semester, not in semester 5.
	semThree := listGrades(t, store, res.Regno, 3)
	assert.Equal(t, "B+", semThree["21MA301T"].Letter)
	assert.Equal(t, 28, semThree["21MA301T"].PointsEarned) // 4 × B+ (7)
	assert.Len(t, semThree, 3)

	semFive := listGrades(t, store, res.Regno, 5)
	assert.Len(t, semFive, 2)
	assert.NotContains(t, semFive, record.SubjectCode("21MA301T"))

	// The backfilled semester exists with the arrear grade and no GPA.
	backfilled := findSemester(t, store, res.Regno, 2)
	assert.Nil(t, backfilled.GPA)
	semTwo := listGrades(t, store, res.Regno, 2)
	assert.Equal(t, "A", semTwo["21CS402T"].Letter)

	// The overwrite left an audit trail.
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	changes, err := tx.ListGradeChanges(ctx, res.Regno)
	require.NoError(t, err)
	if assert.Len(t, changes, 1) {
		assert.Equal(t, record.SubjectCode("21MA301T"), changes[0].SubjectCode)
		assert.Equal(t, record.Ordinal(3), changes[0].Semester)
		assert.Equal(t, "U", changes[0].OriginalGrade)
		assert.Equal(t, "B+", changes[0].NewGrade)
		assert.Equal(t, 4, changes[0].Credits)
	}
}

func TestProcessDocument_UnresolvedPeriodAborts(t *testing.T) {
	store := memory.NewRecordStore()
	h := newTestHandler(t, store)

	doc := `Provisional Results for MAY 2030 Examinations
Register No : 310620104012
Name : JOHN ARUL DOSS
D.O.B : 14-06-2005
5 21CS501T - Computer Networks A
`
	res := process(t, h, doc)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, record.Regno("310620104012"), res.Regno)

	// Nothing was persisted.
	assert.Equal(t, 0, store.CountSemesters())
	assert.Equal(t, 0, store.CountGrades())
}

func TestProcessDocument_MissingIdentity(t *testing.T) {
	store := memory.NewRecordStore()
	h := newTestHandler(t, store)

	// No registration number anywhere.
	res := process(t, h, "Provisional Results for NOV 2024 Examinations\nName : JANE DOE\n")
	assert.Equal(t, StatusFailed, res.Status)

	// Regno present but the name line is missing for a new student.
	res = process(t, h, `Provisional Results for NOV 2024 Examinations
Register No : 310620104012
D.O.B : 14-06-2005
`)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 0, store.CountSemesters())
}

func TestProcessDocument_EmptyDocument(t *testing.T) {
	store := memory.NewRecordStore()
	h := newTestHandler(t, store)

	res, err := h.Handle(context.Background(), ProcessDocumentCommand{Source: "empty.pdf"})
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
}

func TestProcessBatch(t *testing.T) {
	store := memory.NewRecordStore()
	h := newTestHandler(t, store)
	batch := NewProcessBatchHandler(h, nil)

	res, err := batch.Handle(context.Background(), ProcessBatchCommand{
		Documents: []BatchDocument{
			{Source: "sem3.pdf", Pages: []string{semesterThreeDoc}},
			{Source: "sem5.pdf", Pages: []string{semesterFiveDoc}},
			{Source: "sem3-again.pdf", Pages: []string{semesterThreeDoc}},
			{Source: "garbage.pdf", Pages: []string{"not a transcript"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.Aborted)
	assert.Len(t, res.Outcomes, 4)
	assert.Equal(t, StatusSkippedDuplicate, res.Outcomes[2].Status)
}

// semesterConflictStore simulates losing the (student, semester) uniqueness
// race: every CreateSemester reports a conflict, as the SQL stores do when a
// concurrent document commits the row first.
type semesterConflictStore struct{ record.Store }

func (s semesterConflictStore) Begin(ctx context.Context) (record.Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return semesterConflictTx{tx}, nil
}

type semesterConflictTx struct{ record.Tx }

func (t semesterConflictTx) CreateSemester(context.Context, *record.Semester) error {
	return shared.ErrSemesterConflict
}

func TestProcessDocument_SemesterRaceSkips(t *testing.T) {
	backing := memory.NewRecordStore()
	h := newTestHandler(t, semesterConflictStore{backing})

	res, err := h.Handle(context.Background(), ProcessDocumentCommand{
		Pages:  []string{semesterThreeDoc},
		Source: "race.pdf",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSkippedDuplicate, res.Status)
	assert.Equal(t, record.Regno("310620104012"), res.Regno)
	assert.Equal(t, record.Ordinal(3), res.ResolvedSemester)
	// The losing document rolls back wholesale.
	assert.Equal(t, 0, backing.CountSemesters())
	assert.Equal(t, 0, backing.CountGrades())
}
