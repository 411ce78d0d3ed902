package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD STORE IMPLEMENTATION
// One RecordTx per document: every mutation the reconciliation engine emits
// for a document commits or rolls back as a unit.
// ══════════════════════════════════════════════════════════════════════════════

// RecordStore implements record.Store for PostgreSQL.
type RecordStore struct {
	conn *Connection
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(conn *Connection) *RecordStore {
	return &RecordStore{conn: conn}
}

// Begin starts a per-document transaction.
func (s *RecordStore) Begin(ctx context.Context) (record.Tx, error) {
	tx, err := s.conn.BeginTx(ctx)
	if err != nil {
		return nil, shared.WrapError("record", "Begin", shared.ErrServiceUnavailable, "begin transaction", err)
	}
	return &RecordTx{tx: tx}, nil
}

// Ping checks that the database is reachable.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return shared.WrapError("record", "Ping", shared.ErrServiceUnavailable, "ping database", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RecordStore) Close() error {
	s.conn.Close()
	return nil
}

// RecordTx implements record.Tx over a pgx transaction.
type RecordTx struct {
	tx pgx.Tx
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

// FindStudent returns the student with the given registration number.
func (t *RecordTx) FindStudent(ctx context.Context, regno record.Regno) (*record.Student, error) {
	query := `SELECT id, regno, name, dob FROM students WHERE regno = $1`

	var s record.Student
	err := t.tx.QueryRow(ctx, query, regno.String()).Scan(&s.ID, &s.Regno, &s.Name, &s.DOB)
	if IsNoRows(err) {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, wrapStoreError("FindStudent", err)
	}
	return &s, nil
}

// CreateStudent persists a new student.
func (t *RecordTx) CreateStudent(ctx context.Context, s *record.Student) error {
	query := `INSERT INTO students (id, regno, name, dob) VALUES ($1, $2, $3, $4)`

	_, err := t.tx.Exec(ctx, query, s.ID, s.Regno.String(), s.Name, s.DOB)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("record", "CreateStudent", shared.ErrAlreadyExists, "student already exists", err)
		}
		return wrapStoreError("CreateStudent", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Subjects
// ─────────────────────────────────────────────────────────────────────────────

// FindSubject returns the subject with the given code.
func (t *RecordTx) FindSubject(ctx context.Context, code record.SubjectCode) (*record.Subject, error) {
	query := `SELECT id, code, name, credits, home_semester FROM subjects WHERE code = $1`

	var s record.Subject
	err := t.tx.QueryRow(ctx, query, code.String()).Scan(&s.ID, &s.Code, &s.Name, &s.Credits, &s.HomeSemester)
	if IsNoRows(err) {
		return nil, shared.ErrSubjectNotFound
	}
	if err != nil {
		return nil, wrapStoreError("FindSubject", err)
	}
	return &s, nil
}

// FindOrCreateSubject resolves the subject by code, creating it on first
// sight. Existing rows win: credits and home semester are never corrected by
// later documents.
func (t *RecordTx) FindOrCreateSubject(ctx context.Context, s *record.Subject) (*record.Subject, bool, error) {
	existing, err := t.FindSubject(ctx, s.Code)
	if err == nil {
		return existing, false, nil
	}
	if !shared.IsNotFound(err) {
		return nil, false, err
	}

	// ON CONFLICT keeps the transaction usable when a concurrent document
	// inserts the same code first; a failed statement would abort the
	// transaction and poison every query after it.
	query := `INSERT INTO subjects (id, code, name, credits, home_semester)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (code) DO NOTHING`
	tag, err := t.tx.Exec(ctx, query, s.ID, s.Code.String(), s.Name, s.Credits, int(s.HomeSemester))
	if err != nil {
		return nil, false, wrapStoreError("FindOrCreateSubject", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost a race with a concurrent document; the winner's row stands.
		existing, ferr := t.FindSubject(ctx, s.Code)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}
	return s, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Semesters
// ─────────────────────────────────────────────────────────────────────────────

// FindSemester returns the semester for (student, ordinal).
func (t *RecordTx) FindSemester(ctx context.Context, studentID string, ordinal record.Ordinal) (*record.Semester, error) {
	query := `SELECT id, student_id, semester, gpa FROM semesters WHERE student_id = $1 AND semester = $2`

	var s record.Semester
	err := t.tx.QueryRow(ctx, query, studentID, int(ordinal)).Scan(&s.ID, &s.StudentID, &s.Ordinal, &s.GPA)
	if IsNoRows(err) {
		return nil, shared.ErrSemesterNotFound
	}
	if err != nil {
		return nil, wrapStoreError("FindSemester", err)
	}
	return &s, nil
}

// CreateSemester persists a new semester. A unique violation on the
// (student, semester) pair surfaces as shared.ErrSemesterConflict.
func (t *RecordTx) CreateSemester(ctx context.Context, s *record.Semester) error {
	query := `INSERT INTO semesters (id, student_id, semester, gpa) VALUES ($1, $2, $3, $4)`

	_, err := t.tx.Exec(ctx, query, s.ID, s.StudentID, int(s.Ordinal), s.GPA)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrSemesterConflict
		}
		return wrapStoreError("CreateSemester", err)
	}
	return nil
}

// ListSemesters returns all semesters of a student in ordinal order.
func (t *RecordTx) ListSemesters(ctx context.Context, studentID string) ([]*record.Semester, error) {
	query := `SELECT id, student_id, semester, gpa FROM semesters WHERE student_id = $1 ORDER BY semester`

	rows, err := t.tx.Query(ctx, query, studentID)
	if err != nil {
		return nil, wrapStoreError("ListSemesters", err)
	}
	defer rows.Close()

	var semesters []*record.Semester
	for rows.Next() {
		var s record.Semester
		if err := rows.Scan(&s.ID, &s.StudentID, &s.Ordinal, &s.GPA); err != nil {
			return nil, wrapStoreError("ListSemesters", err)
		}
		semesters = append(semesters, &s)
	}
	return semesters, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Grades
// ─────────────────────────────────────────────────────────────────────────────

// FindGrade returns the grade for (semester, subject).
func (t *RecordTx) FindGrade(ctx context.Context, semesterID, subjectID string) (*record.Grade, error) {
	query := `SELECT id, semester_id, subject_id, grade, grade_points_earned
	          FROM grades WHERE semester_id = $1 AND subject_id = $2`

	var g record.Grade
	err := t.tx.QueryRow(ctx, query, semesterID, subjectID).
		Scan(&g.ID, &g.SemesterID, &g.SubjectID, &g.Letter, &g.PointsEarned)
	if IsNoRows(err) {
		return nil, shared.ErrGradeNotFound
	}
	if err != nil {
		return nil, wrapStoreError("FindGrade", err)
	}
	return &g, nil
}

// InsertGrade persists a new grade row.
func (t *RecordTx) InsertGrade(ctx context.Context, g *record.Grade) error {
	query := `INSERT INTO grades (id, semester_id, subject_id, grade, grade_points_earned)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := t.tx.Exec(ctx, query, g.ID, g.SemesterID, g.SubjectID, g.Letter, g.PointsEarned)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("record", "InsertGrade", shared.ErrAlreadyExists, "grade already exists for (semester, subject)", err)
		}
		return wrapStoreError("InsertGrade", err)
	}
	return nil
}

// UpdateGrade overwrites the letter and points of an existing grade in place.
func (t *RecordTx) UpdateGrade(ctx context.Context, g *record.Grade) error {
	query := `UPDATE grades SET grade = $1, grade_points_earned = $2 WHERE id = $3`

	tag, err := t.tx.Exec(ctx, query, g.Letter, g.PointsEarned, g.ID)
	if err != nil {
		return wrapStoreError("UpdateGrade", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrGradeNotFound
	}
	return nil
}

// ListGrades returns a semester's grade rows joined with subject details.
func (t *RecordTx) ListGrades(ctx context.Context, semesterID string) ([]*record.GradeRow, error) {
	query := `SELECT sub.code, sub.name, sub.credits, g.grade, g.grade_points_earned
	          FROM grades g
	          JOIN subjects sub ON sub.id = g.subject_id
	          WHERE g.semester_id = $1
	          ORDER BY sub.code`

	rows, err := t.tx.Query(ctx, query, semesterID)
	if err != nil {
		return nil, wrapStoreError("ListGrades", err)
	}
	defer rows.Close()

	var result []*record.GradeRow
	for rows.Next() {
		var r record.GradeRow
		if err := rows.Scan(&r.SubjectCode, &r.SubjectName, &r.Credits, &r.Letter, &r.PointsEarned); err != nil {
			return nil, wrapStoreError("ListGrades", err)
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Grade changes
// ─────────────────────────────────────────────────────────────────────────────

// InsertGradeChange appends an audit row. changed_at is set by the database.
func (t *RecordTx) InsertGradeChange(ctx context.Context, c *record.GradeChange) error {
	query := `INSERT INTO grade_changes (id, regno, subject_code, semester, original_grade, new_grade, credits)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := t.tx.Exec(ctx, query,
		c.ID, c.Regno.String(), c.SubjectCode.String(), int(c.Semester),
		c.OriginalGrade, c.NewGrade, c.Credits)
	if err != nil {
		return wrapStoreError("InsertGradeChange", err)
	}
	return nil
}

// ListGradeChanges returns a student's grade changes, most recent first.
func (t *RecordTx) ListGradeChanges(ctx context.Context, regno record.Regno) ([]*record.GradeChange, error) {
	query := `SELECT id, regno, subject_code, semester, original_grade, new_grade, credits, changed_at
	          FROM grade_changes WHERE regno = $1 ORDER BY changed_at DESC`

	rows, err := t.tx.Query(ctx, query, regno.String())
	if err != nil {
		return nil, wrapStoreError("ListGradeChanges", err)
	}
	defer rows.Close()

	var changes []*record.GradeChange
	for rows.Next() {
		var c record.GradeChange
		var changedAt time.Time
		if err := rows.Scan(&c.ID, &c.Regno, &c.SubjectCode, &c.Semester,
			&c.OriginalGrade, &c.NewGrade, &c.Credits, &changedAt); err != nil {
			return nil, wrapStoreError("ListGradeChanges", err)
		}
		c.ChangedAt = changedAt.UTC().Format(time.RFC3339)
		changes = append(changes, &c)
	}
	return changes, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Commit commits the per-document transaction.
func (t *RecordTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. Safe to call after Commit.
func (t *RecordTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == nil || err == pgx.ErrTxClosed {
		return nil
	}
	return err
}

func wrapStoreError(op string, err error) error {
	return shared.WrapError("record", op, shared.ErrServiceUnavailable, "store operation failed", err)
}
