// Package memory provides an in-memory transactional record store. It backs
// engine and query tests and dry runs; the SQL stores mirror its semantics.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/domain/shared"
)

// RecordStore implements record.Store with copy-on-write transactions. One
// transaction runs at a time; Begin blocks until the previous one finishes,
// which mirrors the single-writer discipline of the SQLite store.
type RecordStore struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	students  map[string]*record.Student  // by ID
	subjects  map[string]*record.Subject  // by ID
	semesters map[string]*record.Semester // by ID
	grades    map[string]*record.Grade    // by ID
	changes   []*record.GradeChange
}

func newState() *state {
	return &state{
		students:  make(map[string]*record.Student),
		subjects:  make(map[string]*record.Subject),
		semesters: make(map[string]*record.Semester),
		grades:    make(map[string]*record.Grade),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, v := range s.students {
		cp := *v
		c.students[id] = &cp
	}
	for id, v := range s.subjects {
		cp := *v
		c.subjects[id] = &cp
	}
	for id, v := range s.semesters {
		cp := *v
		c.semesters[id] = &cp
	}
	for id, v := range s.grades {
		cp := *v
		c.grades[id] = &cp
	}
	c.changes = make([]*record.GradeChange, len(s.changes))
	for i, v := range s.changes {
		cp := *v
		c.changes[i] = &cp
	}
	return c
}

// NewRecordStore creates an empty in-memory store.
func NewRecordStore() *RecordStore {
	return &RecordStore{state: newState()}
}

// Begin starts a transaction over a private copy of the state. Commit swaps
// the copy in; Rollback discards it.
func (s *RecordStore) Begin(ctx context.Context) (record.Tx, error) {
	s.mu.Lock()
	return &recordTx{store: s, work: s.state.clone()}, nil
}

// Ping always succeeds.
func (s *RecordStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *RecordStore) Close() error {
	return nil
}

// CountSemesters reports the number of stored semesters, for test assertions.
func (s *RecordStore) CountSemesters() int {
	return len(s.state.semesters)
}

// CountGrades reports the number of stored grades, for test assertions.
func (s *RecordStore) CountGrades() int {
	return len(s.state.grades)
}

type recordTx struct {
	store *RecordStore
	work  *state
	done  bool
}

func (t *recordTx) FindStudent(ctx context.Context, regno record.Regno) (*record.Student, error) {
	for _, s := range t.work.students {
		if s.Regno == regno {
			cp := *s
			return &cp, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (t *recordTx) CreateStudent(ctx context.Context, s *record.Student) error {
	for _, existing := range t.work.students {
		if existing.Regno == s.Regno {
			return shared.WrapError("record", "CreateStudent", shared.ErrAlreadyExists, "student already exists", nil)
		}
	}
	cp := *s
	t.work.students[s.ID] = &cp
	return nil
}

func (t *recordTx) FindSubject(ctx context.Context, code record.SubjectCode) (*record.Subject, error) {
	for _, s := range t.work.subjects {
		if s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, shared.ErrSubjectNotFound
}

func (t *recordTx) FindOrCreateSubject(ctx context.Context, s *record.Subject) (*record.Subject, bool, error) {
	existing, err := t.FindSubject(ctx, s.Code)
	if err == nil {
		return existing, false, nil
	}
	cp := *s
	t.work.subjects[s.ID] = &cp
	out := cp
	return &out, true, nil
}

func (t *recordTx) FindSemester(ctx context.Context, studentID string, ordinal record.Ordinal) (*record.Semester, error) {
	for _, s := range t.work.semesters {
		if s.StudentID == studentID && s.Ordinal == ordinal {
			cp := *s
			return &cp, nil
		}
	}
	return nil, shared.ErrSemesterNotFound
}

func (t *recordTx) CreateSemester(ctx context.Context, s *record.Semester) error {
	for _, existing := range t.work.semesters {
		if existing.StudentID == s.StudentID && existing.Ordinal == s.Ordinal {
			return shared.ErrSemesterConflict
		}
	}
	cp := *s
	t.work.semesters[s.ID] = &cp
	return nil
}

func (t *recordTx) ListSemesters(ctx context.Context, studentID string) ([]*record.Semester, error) {
	var out []*record.Semester
	for _, s := range t.work.semesters {
		if s.StudentID == studentID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (t *recordTx) FindGrade(ctx context.Context, semesterID, subjectID string) (*record.Grade, error) {
	for _, g := range t.work.grades {
		if g.SemesterID == semesterID && g.SubjectID == subjectID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, shared.ErrGradeNotFound
}

func (t *recordTx) InsertGrade(ctx context.Context, g *record.Grade) error {
	for _, existing := range t.work.grades {
		if existing.SemesterID == g.SemesterID && existing.SubjectID == g.SubjectID {
			return shared.WrapError("record", "InsertGrade", shared.ErrAlreadyExists, "grade already exists for (semester, subject)", nil)
		}
	}
	cp := *g
	t.work.grades[g.ID] = &cp
	return nil
}

func (t *recordTx) UpdateGrade(ctx context.Context, g *record.Grade) error {
	existing, ok := t.work.grades[g.ID]
	if !ok {
		return shared.ErrGradeNotFound
	}
	existing.Letter = g.Letter
	existing.PointsEarned = g.PointsEarned
	return nil
}

func (t *recordTx) ListGrades(ctx context.Context, semesterID string) ([]*record.GradeRow, error) {
	var out []*record.GradeRow
	for _, g := range t.work.grades {
		if g.SemesterID != semesterID {
			continue
		}
		sub, ok := t.work.subjects[g.SubjectID]
		if !ok {
			continue
		}
		out = append(out, &record.GradeRow{
			SubjectCode:  sub.Code,
			SubjectName:  sub.Name,
			Credits:      sub.Credits,
			Letter:       g.Letter,
			PointsEarned: g.PointsEarned,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectCode < out[j].SubjectCode })
	return out, nil
}

func (t *recordTx) InsertGradeChange(ctx context.Context, c *record.GradeChange) error {
	cp := *c
	cp.ChangedAt = time.Now().UTC().Format(time.RFC3339)
	t.work.changes = append(t.work.changes, &cp)
	return nil
}

func (t *recordTx) ListGradeChanges(ctx context.Context, regno record.Regno) ([]*record.GradeChange, error) {
	var out []*record.GradeChange
	for i := len(t.work.changes) - 1; i >= 0; i-- {
		if t.work.changes[i].Regno == regno {
			cp := *t.work.changes[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *recordTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.state = t.work
	t.store.mu.Unlock()
	return nil
}

func (t *recordTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}
