// Package query contains read operations (CQRS - Queries).
// Queries never mutate the academic record.
package query

import (
	"context"
	"errors"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT RECORD QUERY
// Builds the per-student academic record view: semesters in ordinal order,
// each with its grade rows, reported GPA, and integer credit / grade-point
// totals, plus the audit trail of grade changes.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentRecordQuery identifies the student.
type GetStudentRecordQuery struct {
	Regno record.Regno
}

// SubjectRow is one grade row in the view.
type SubjectRow struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Credits      int    `json:"credits"`
	Grade        string `json:"grade"`
	PointsEarned int    `json:"grade_points_earned"`
}

// SemesterView is one semester of the record.
type SemesterView struct {
	Semester         int          `json:"semester"`
	GPA              *float64     `json:"gpa,omitempty"`
	Subjects         []SubjectRow `json:"subjects"`
	TotalCredits     int          `json:"total_credits"`
	TotalGradePoints int          `json:"total_grade_points"`
}

// GradeChangeView is one audit entry.
type GradeChangeView struct {
	SubjectCode   string `json:"subject_code"`
	Semester      int    `json:"semester"`
	OriginalGrade string `json:"original_grade"`
	NewGrade      string `json:"new_grade"`
	Credits       int    `json:"credits"`
	ChangedAt     string `json:"changed_at"`
}

// StudentRecord is the complete record view.
type StudentRecord struct {
	Regno        string            `json:"regno"`
	Name         string            `json:"name"`
	Semesters    []SemesterView    `json:"semesters"`
	GradeChanges []GradeChangeView `json:"grade_changes,omitempty"`
}

// RecordViewCache caches rendered record views by regno. Optional.
type RecordViewCache interface {
	Get(ctx context.Context, regno string, dest any) error
	Set(ctx context.Context, regno string, v any) error
}

// GetStudentRecordHandler handles the GetStudentRecordQuery.
type GetStudentRecordHandler struct {
	store  record.Store
	cache  RecordViewCache
	logger *logger.Logger
}

// NewGetStudentRecordHandler creates a new handler. cache may be nil.
func NewGetStudentRecordHandler(store record.Store, cache RecordViewCache, log *logger.Logger) *GetStudentRecordHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetStudentRecordHandler{
		store:  store,
		cache:  cache,
		logger: log.With(logger.Component("get_student_record")),
	}
}

// Handle builds the record view, serving from cache when possible.
func (h *GetStudentRecordHandler) Handle(ctx context.Context, q GetStudentRecordQuery) (*StudentRecord, error) {
	if !q.Regno.IsValid() {
		return nil, errors.New("get_student_record: invalid registration number")
	}

	if h.cache != nil {
		var cached StudentRecord
		if err := h.cache.Get(ctx, q.Regno.String(), &cached); err == nil {
			return &cached, nil
		}
	}

	tx, err := h.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	student, err := tx.FindStudent(ctx, q.Regno)
	if err != nil {
		return nil, err
	}

	semesters, err := tx.ListSemesters(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	view := &StudentRecord{
		Regno: student.Regno.String(),
		Name:  student.Name,
	}

	for _, sem := range semesters {
		rows, err := tx.ListGrades(ctx, sem.ID)
		if err != nil {
			return nil, err
		}

		sv := SemesterView{
			Semester: int(sem.Ordinal),
			GPA:      sem.GPA,
		}
		for _, r := range rows {
			sv.Subjects = append(sv.Subjects, SubjectRow{
				Code:         r.SubjectCode.String(),
				Name:         r.SubjectName,
				Credits:      r.Credits,
				Grade:        r.Letter,
				PointsEarned: r.PointsEarned,
			})
			sv.TotalCredits += r.Credits
			sv.TotalGradePoints += r.PointsEarned
		}
		view.Semesters = append(view.Semesters, sv)
	}

	changes, err := tx.ListGradeChanges(ctx, q.Regno)
	if err != nil {
		return nil, err
	}
	for _, c := range changes {
		view.GradeChanges = append(view.GradeChanges, GradeChangeView{
			SubjectCode:   c.SubjectCode.String(),
			Semester:      int(c.Semester),
			OriginalGrade: c.OriginalGrade,
			NewGrade:      c.NewGrade,
			Credits:       c.Credits,
			ChangedAt:     c.ChangedAt,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, view.Regno, view); err != nil {
			h.logger.Warn("record cache set failed", logger.Err(err))
		}
	}

	return view, nil
}
