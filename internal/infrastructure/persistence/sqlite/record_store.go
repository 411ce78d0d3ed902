// Package sqlite implements the record store on an embedded SQLite database.
// It is the zero-infrastructure alternative to the PostgreSQL store, intended
// for single-operator batch runs where standing up a server is not worth it.
//
// Uses modernc.org/sqlite (pure Go, no CGO).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/domain/shared"
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
    id    TEXT PRIMARY KEY,
    regno TEXT UNIQUE NOT NULL,
    name  TEXT NOT NULL,
    dob   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
    id            TEXT PRIMARY KEY,
    code          TEXT UNIQUE NOT NULL,
    name          TEXT NOT NULL,
    credits       INTEGER NOT NULL CHECK (credits > 0),
    home_semester INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS semesters (
    id         TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    semester   INTEGER NOT NULL,
    gpa        REAL,
    UNIQUE (student_id, semester)
);

CREATE TABLE IF NOT EXISTS grades (
    id                  TEXT PRIMARY KEY,
    semester_id         TEXT NOT NULL REFERENCES semesters(id) ON DELETE CASCADE,
    subject_id          TEXT NOT NULL REFERENCES subjects(id),
    grade               TEXT NOT NULL,
    grade_points_earned INTEGER NOT NULL,
    UNIQUE (semester_id, subject_id)
);

CREATE TABLE IF NOT EXISTS grade_changes (
    id             TEXT PRIMARY KEY,
    regno          TEXT NOT NULL,
    subject_code   TEXT NOT NULL,
    semester       INTEGER NOT NULL,
    original_grade TEXT NOT NULL,
    new_grade      TEXT NOT NULL,
    credits        INTEGER NOT NULL,
    changed_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_semesters_student ON semesters(student_id);
CREATE INDEX IF NOT EXISTS idx_grades_semester   ON grades(semester_id);
CREATE INDEX IF NOT EXISTS idx_grade_changes_regno ON grade_changes(regno);
`

// Config holds store configuration.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// DefaultConfig returns sensible defaults for an embedded store.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
	}
}

// RecordStore implements record.Store over a SQLite file.
type RecordStore struct {
	db   *sql.DB
	path string
}

// Open opens or creates the store at the configured path and bootstraps the
// schema.
func Open(cfg Config) (*RecordStore, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer; serialize access through one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &RecordStore{db: db, path: cfg.Path}, nil
}

// Path returns the database file path.
func (s *RecordStore) Path() string {
	return s.path
}

// Begin starts a per-document transaction.
func (s *RecordStore) Begin(ctx context.Context) (record.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, shared.WrapError("record", "Begin", shared.ErrServiceUnavailable, "begin transaction", err)
	}
	return &recordTx{tx: tx}, nil
}

// Ping checks that the store is reachable.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return shared.WrapError("record", "Ping", shared.ErrServiceUnavailable, "ping database", err)
	}
	return nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a SQLite uniqueness failure.
// modernc.org/sqlite surfaces constraint errors by message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type recordTx struct {
	tx *sql.Tx
}

func (t *recordTx) FindStudent(ctx context.Context, regno record.Regno) (*record.Student, error) {
	var s record.Student
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, regno, name, dob FROM students WHERE regno = ?`, regno.String()).
		Scan(&s.ID, &s.Regno, &s.Name, &s.DOB)
	if err == sql.ErrNoRows {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, wrapStoreError("FindStudent", err)
	}
	return &s, nil
}

func (t *recordTx) CreateStudent(ctx context.Context, s *record.Student) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO students (id, regno, name, dob) VALUES (?, ?, ?, ?)`,
		s.ID, s.Regno.String(), s.Name, s.DOB)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.WrapError("record", "CreateStudent", shared.ErrAlreadyExists, "student already exists", err)
		}
		return wrapStoreError("CreateStudent", err)
	}
	return nil
}

func (t *recordTx) FindSubject(ctx context.Context, code record.SubjectCode) (*record.Subject, error) {
	var s record.Subject
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, code, name, credits, home_semester FROM subjects WHERE code = ?`, code.String()).
		Scan(&s.ID, &s.Code, &s.Name, &s.Credits, &s.HomeSemester)
	if err == sql.ErrNoRows {
		return nil, shared.ErrSubjectNotFound
	}
	if err != nil {
		return nil, wrapStoreError("FindSubject", err)
	}
	return &s, nil
}

func (t *recordTx) FindOrCreateSubject(ctx context.Context, s *record.Subject) (*record.Subject, bool, error) {
	existing, err := t.FindSubject(ctx, s.Code)
	if err == nil {
		return existing, false, nil
	}
	if !shared.IsNotFound(err) {
		return nil, false, err
	}

	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO subjects (id, code, name, credits, home_semester) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Code.String(), s.Name, s.Credits, int(s.HomeSemester))
	if err != nil {
		if isUniqueViolation(err) {
			existing, ferr := t.FindSubject(ctx, s.Code)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, wrapStoreError("FindOrCreateSubject", err)
	}
	return s, true, nil
}

func (t *recordTx) FindSemester(ctx context.Context, studentID string, ordinal record.Ordinal) (*record.Semester, error) {
	var s record.Semester
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, student_id, semester, gpa FROM semesters WHERE student_id = ? AND semester = ?`,
		studentID, int(ordinal)).
		Scan(&s.ID, &s.StudentID, &s.Ordinal, &s.GPA)
	if err == sql.ErrNoRows {
		return nil, shared.ErrSemesterNotFound
	}
	if err != nil {
		return nil, wrapStoreError("FindSemester", err)
	}
	return &s, nil
}

func (t *recordTx) CreateSemester(ctx context.Context, s *record.Semester) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO semesters (id, student_id, semester, gpa) VALUES (?, ?, ?, ?)`,
		s.ID, s.StudentID, int(s.Ordinal), s.GPA)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrSemesterConflict
		}
		return wrapStoreError("CreateSemester", err)
	}
	return nil
}

func (t *recordTx) ListSemesters(ctx context.Context, studentID string) ([]*record.Semester, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, student_id, semester, gpa FROM semesters WHERE student_id = ? ORDER BY semester`,
		studentID)
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

func (t *recordTx) FindGrade(ctx context.Context, semesterID, subjectID string) (*record.Grade, error) {
	var g record.Grade
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, semester_id, subject_id, grade, grade_points_earned
		 FROM grades WHERE semester_id = ? AND subject_id = ?`,
		semesterID, subjectID).
		Scan(&g.ID, &g.SemesterID, &g.SubjectID, &g.Letter, &g.PointsEarned)
	if err == sql.ErrNoRows {
		return nil, shared.ErrGradeNotFound
	}
	if err != nil {
		return nil, wrapStoreError("FindGrade", err)
	}
	return &g, nil
}

func (t *recordTx) InsertGrade(ctx context.Context, g *record.Grade) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO grades (id, semester_id, subject_id, grade, grade_points_earned)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.SemesterID, g.SubjectID, g.Letter, g.PointsEarned)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.WrapError("record", "InsertGrade", shared.ErrAlreadyExists, "grade already exists for (semester, subject)", err)
		}
		return wrapStoreError("InsertGrade", err)
	}
	return nil
}

func (t *recordTx) UpdateGrade(ctx context.Context, g *record.Grade) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE grades SET grade = ?, grade_points_earned = ? WHERE id = ?`,
		g.Letter, g.PointsEarned, g.ID)
	if err != nil {
		return wrapStoreError("UpdateGrade", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrGradeNotFound
	}
	return nil
}

func (t *recordTx) ListGrades(ctx context.Context, semesterID string) ([]*record.GradeRow, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT sub.code, sub.name, sub.credits, g.grade, g.grade_points_earned
		 FROM grades g
		 JOIN subjects sub ON sub.id = g.subject_id
		 WHERE g.semester_id = ?
		 ORDER BY sub.code`,
		semesterID)
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

func (t *recordTx) InsertGradeChange(ctx context.Context, c *record.GradeChange) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO grade_changes (id, regno, subject_code, semester, original_grade, new_grade, credits)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Regno.String(), c.SubjectCode.String(), int(c.Semester),
		c.OriginalGrade, c.NewGrade, c.Credits)
	if err != nil {
		return wrapStoreError("InsertGradeChange", err)
	}
	return nil
}

func (t *recordTx) ListGradeChanges(ctx context.Context, regno record.Regno) ([]*record.GradeChange, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, regno, subject_code, semester, original_grade, new_grade, credits, changed_at
		 FROM grade_changes WHERE regno = ? ORDER BY changed_at DESC, id DESC`,
		regno.String())
	if err != nil {
		return nil, wrapStoreError("ListGradeChanges", err)
	}
	defer rows.Close()

	var changes []*record.GradeChange
	for rows.Next() {
		var c record.GradeChange
		if err := rows.Scan(&c.ID, &c.Regno, &c.SubjectCode, &c.Semester,
			&c.OriginalGrade, &c.NewGrade, &c.Credits, &c.ChangedAt); err != nil {
			return nil, wrapStoreError("ListGradeChanges", err)
		}
		changes = append(changes, &c)
	}
	return changes, rows.Err()
}

func (t *recordTx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

func (t *recordTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback()
	if err == nil || err == sql.ErrTxDone {
		return nil
	}
	return err
}

func wrapStoreError(op string, err error) error {
	return shared.WrapError("record", op, shared.ErrServiceUnavailable, "store operation failed", err)
}
