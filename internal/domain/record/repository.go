package record

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE CONTRACT
// These interfaces define the contract for the record store adapter.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Store opens transactional units against the persistent record store. One Tx
// spans exactly one document: every mutation for the document commits or
// rolls back as a unit.
type Store interface {
	// Begin starts a new transactional unit.
	// Returns shared.ErrServiceUnavailable-kinded errors when the store
	// cannot be reached.
	Begin(ctx context.Context) (Tx, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// Tx is a scoped transaction bound to one document's processing lifetime.
// Callers must finish it on every exit path: Commit on success, Rollback
// otherwise. No operation retries internally; the engine decides rollback.
type Tx interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Students
	// ─────────────────────────────────────────────────────────────────────────

	// FindStudent returns the student with the given registration number.
	// Returns shared.ErrStudentNotFound when absent.
	FindStudent(ctx context.Context, regno Regno) (*Student, error)

	// CreateStudent persists a new student. Students are append-only from
	// the engine's perspective: created once, then only referenced.
	CreateStudent(ctx context.Context, s *Student) error

	// ─────────────────────────────────────────────────────────────────────────
	// Subjects
	// ─────────────────────────────────────────────────────────────────────────

	// FindOrCreateSubject resolves the subject by code, creating it on first
	// sight. An existing subject is returned as stored: credits and home
	// semester are never corrected by later documents. The bool reports
	// whether the subject was created by this call.
	FindOrCreateSubject(ctx context.Context, s *Subject) (*Subject, bool, error)

	// FindSubject returns the subject with the given code.
	// Returns shared.ErrSubjectNotFound when absent.
	FindSubject(ctx context.Context, code SubjectCode) (*Subject, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Semesters
	// ─────────────────────────────────────────────────────────────────────────

	// FindSemester returns the semester for (student, ordinal).
	// Returns shared.ErrSemesterNotFound when absent.
	FindSemester(ctx context.Context, studentID string, ordinal Ordinal) (*Semester, error)

	// CreateSemester persists a new semester. A uniqueness violation on the
	// (student, ordinal) pair is reported as shared.ErrSemesterConflict so a
	// concurrent-document race becomes detectable instead of a duplicate row.
	CreateSemester(ctx context.Context, s *Semester) error

	// ListSemesters returns all semesters of a student in ordinal order.
	ListSemesters(ctx context.Context, studentID string) ([]*Semester, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Grades
	// ─────────────────────────────────────────────────────────────────────────

	// FindGrade returns the grade for (semester, subject).
	// Returns shared.ErrGradeNotFound when absent.
	FindGrade(ctx context.Context, semesterID, subjectID string) (*Grade, error)

	// InsertGrade persists a new grade row.
	InsertGrade(ctx context.Context, g *Grade) error

	// UpdateGrade overwrites the letter and points of an existing grade row
	// in place. This is the only mutation path that changes a stored grade.
	UpdateGrade(ctx context.Context, g *Grade) error

	// ListGrades returns the grade rows of a semester joined with their
	// subject details, in subject-code order.
	ListGrades(ctx context.Context, semesterID string) ([]*GradeRow, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Grade changes (audit)
	// ─────────────────────────────────────────────────────────────────────────

	// InsertGradeChange appends an audit row for a grade overwrite.
	InsertGradeChange(ctx context.Context, c *GradeChange) error

	// ListGradeChanges returns a student's grade changes, most recent first.
	ListGradeChanges(ctx context.Context, regno Regno) ([]*GradeChange, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Lifecycle
	// ─────────────────────────────────────────────────────────────────────────

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// GradeRow is a read model joining a grade with its subject, used by the
// record view and the export.
type GradeRow struct {
	SubjectCode  SubjectCode
	SubjectName  string
	Credits      int
	Letter       string
	PointsEarned int
}
