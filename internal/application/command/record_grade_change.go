package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD GRADE CHANGE COMMAND
// A manual correction of a stored grade, outside document processing. The
// stored letter and derived points are rewritten and an audit row is
// appended, in one transaction.
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradeChangeCommand identifies the grade by (regno, subject code,
// semester ordinal) and carries the replacement letter.
type RecordGradeChangeCommand struct {
	Regno       record.Regno
	SubjectCode record.SubjectCode
	Semester    record.Ordinal
	NewGrade    string
}

// Validate validates the command. Unlike row matching, a manual correction
// with an unknown letter is rejected: there is no document to degrade
// gracefully for.
func (c RecordGradeChangeCommand) Validate() error {
	if !c.Regno.IsValid() {
		return errors.New("record_grade_change: invalid registration number")
	}
	if !c.SubjectCode.IsValid() {
		return errors.New("record_grade_change: invalid subject code")
	}
	if !c.Semester.IsValid() {
		return errors.New("record_grade_change: invalid semester ordinal")
	}
	if !record.IsKnownGrade(c.NewGrade) {
		return fmt.Errorf("record_grade_change: unknown grade letter %q", c.NewGrade)
	}
	return nil
}

// RecordGradeChangeResult reports the applied correction.
type RecordGradeChangeResult struct {
	OriginalGrade string
	NewGrade      string
	PointsEarned  int
}

// RecordGradeChangeHandler handles the RecordGradeChangeCommand.
type RecordGradeChangeHandler struct {
	store  record.Store
	cache  RecordCacheInvalidator
	logger *logger.Logger
}

// NewRecordGradeChangeHandler creates a new handler. cache may be nil.
func NewRecordGradeChangeHandler(store record.Store, cache RecordCacheInvalidator, log *logger.Logger) *RecordGradeChangeHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RecordGradeChangeHandler{
		store:  store,
		cache:  cache,
		logger: log.With(logger.Component("record_grade_change")),
	}
}

// Handle applies the correction.
func (h *RecordGradeChangeHandler) Handle(ctx context.Context, cmd RecordGradeChangeCommand) (*RecordGradeChangeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	tx, err := h.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	student, err := tx.FindStudent(ctx, cmd.Regno)
	if err != nil {
		return nil, err
	}
	subject, err := tx.FindSubject(ctx, cmd.SubjectCode)
	if err != nil {
		return nil, err
	}
	semester, err := tx.FindSemester(ctx, student.ID, cmd.Semester)
	if err != nil {
		return nil, err
	}
	grade, err := tx.FindGrade(ctx, semester.ID, subject.ID)
	if err != nil {
		return nil, err
	}

	oldLetter := grade.Letter
	grade.Letter = cmd.NewGrade
	grade.Recompute(subject.Credits)
	if err := tx.UpdateGrade(ctx, grade); err != nil {
		return nil, err
	}

	change := &record.GradeChange{
		ID:            uuid.NewString(),
		Regno:         cmd.Regno,
		SubjectCode:   cmd.SubjectCode,
		Semester:      cmd.Semester,
		OriginalGrade: oldLetter,
		NewGrade:      cmd.NewGrade,
		Credits:       subject.Credits,
	}
	if err := tx.InsertGradeChange(ctx, change); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit grade change: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, cmd.Regno.String()); err != nil {
			h.logger.Warn("record cache invalidation failed", logger.Err(err))
		}
	}

	h.logger.Info("grade change recorded",
		logger.Regno(cmd.Regno.String()),
		logger.SubjectCode(cmd.SubjectCode.String()),
		logger.Semester(int(cmd.Semester)),
		logger.String("old_grade", oldLetter),
		logger.Grade(cmd.NewGrade))

	return &RecordGradeChangeResult{
		OriginalGrade: oldLetter,
		NewGrade:      cmd.NewGrade,
		PointsEarned:  grade.PointsEarned,
	}, nil
}
