// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the academic record.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/domain/shared"
	"github.com/acadhub/transcript-hub/internal/extract"
	"github.com/acadhub/transcript-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS DOCUMENT COMMAND
// Reconciles one transcript document into the normalized academic record.
// This is the core of the engine: it classifies every matched grade row as a
// same-semester grade, an arrear overwrite, or an arrear backfill, and applies
// all mutations in a single per-document transaction.
// ══════════════════════════════════════════════════════════════════════════════

// ProcessDocumentCommand contains one document's page texts in page order.
type ProcessDocumentCommand struct {
	// Pages are the extracted page texts, in order. Upstream PDF decoding is
	// an external collaborator; this engine never touches binary formats.
	Pages []string

	// Source names the document for log lines (file name, queue ID).
	Source string
}

// Validate validates the command.
func (c ProcessDocumentCommand) Validate() error {
	if len(c.Pages) == 0 {
		return errors.New("process_document: at least one page is required")
	}
	return nil
}

// Status is the per-document outcome classification.
type Status string

const (
	// StatusProcessed means the document's mutations were committed.
	StatusProcessed Status = "processed"

	// StatusSkippedDuplicate means the semester was already recorded for the
	// student and no mutation was applied. This is an expected outcome.
	StatusSkippedDuplicate Status = "skipped_duplicate"

	// StatusFailed means the document was aborted and rolled back wholesale.
	StatusFailed Status = "failed"
)

// ProcessDocumentResult is the structured per-document outcome.
type ProcessDocumentResult struct {
	Regno            record.Regno
	ResolvedSemester record.Ordinal
	GradesInserted   int
	GradesUpdated    int
	SubjectsCreated  int
	StudentCreated   bool
	Status           Status
	Reason           string
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// PeriodResolver maps a free-text exam-period label to an ordinal semester.
type PeriodResolver interface {
	Resolve(label string) (record.Ordinal, error)
}

// SubjectCatalog provides credit-weights from the static reference table.
// The second return reports whether the code was listed.
type SubjectCatalog interface {
	Credits(code record.SubjectCode) (int, bool)
}

// RecordCacheInvalidator drops cached record views after mutations. Optional.
type RecordCacheInvalidator interface {
	Invalidate(ctx context.Context, regno string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ProcessDocumentHandler handles the ProcessDocumentCommand.
type ProcessDocumentHandler struct {
	store    record.Store
	resolver PeriodResolver
	catalog  SubjectCatalog
	cache    RecordCacheInvalidator
	logger   *logger.Logger
}

// NewProcessDocumentHandler creates a new handler. cache may be nil when no
// view cache is configured.
func NewProcessDocumentHandler(
	store record.Store,
	resolver PeriodResolver,
	catalog SubjectCatalog,
	cache RecordCacheInvalidator,
	log *logger.Logger,
) *ProcessDocumentHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ProcessDocumentHandler{
		store:    store,
		resolver: resolver,
		catalog:  catalog,
		cache:    cache,
		logger:   log.With(logger.Component("process_document")),
	}
}

// Handle processes one document. Document-level anomalies (missing identity,
// unresolved period) produce a failed result and a nil error; only
// environment-level store failures are returned as errors so a batch driver
// can stop the run.
func (h *ProcessDocumentHandler) Handle(ctx context.Context, cmd ProcessDocumentCommand) (*ProcessDocumentResult, error) {
	log := h.logger.With(logger.Document(cmd.Source))

	if err := cmd.Validate(); err != nil {
		return failed("", 0, err.Error()), nil
	}

	text, err := extract.NormalizePages(cmd.Pages)
	if err != nil {
		log.Warn("document has no readable text", logger.Err(err))
		return failed("", 0, err.Error()), nil
	}

	regno, err := extract.Regno(text)
	if err != nil {
		log.Warn("registration number not found", logger.Err(err))
		return failed("", 0, err.Error()), nil
	}
	log = log.With(logger.Regno(regno.String()))

	label, err := extract.ExamPeriod(text)
	if err != nil {
		log.Warn("exam period banner not found", logger.Err(err))
		return failed(regno, 0, err.Error()), nil
	}

	docSemester, err := h.resolver.Resolve(label)
	if err != nil {
		// Unresolved labels abort the document: a wrong guess would silently
		// corrupt semester attribution. Operators extend the table instead.
		log.Warn("exam period not in lookup table", logger.String("label", label))
		return failed(regno, 0, err.Error()), nil
	}
	log = log.With(logger.Semester(int(docSemester)))

	tx, err := h.store.Begin(ctx)
	if err != nil {
		return failed(regno, docSemester, err.Error()), err
	}
	// Rollback is a no-op after Commit; this releases the transaction on
	// every exit path.
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := h.reconcile(ctx, tx, log, text, regno, docSemester)
	if err != nil {
		if shared.IsConflict(err) {
			// Another document raced us to the same (student, ordinal) pair.
			// The uniqueness constraint converted the race into a conflict;
			// equivalent to a duplicate, never fatal.
			log.Info("document skipped: concurrent duplicate")
			return skipped(regno, docSemester, "concurrent duplicate of (student, semester)"), nil
		}
		if shared.IsAlreadyProcessed(err) {
			log.Info("document skipped: semester already processed")
			return skipped(regno, docSemester, "semester already processed"), nil
		}
		if shared.IsUnavailable(err) {
			return failed(regno, docSemester, err.Error()), err
		}
		log.Error("document failed, rolled back", logger.Err(err))
		return failed(regno, docSemester, err.Error()), nil
	}

	if err := tx.Commit(ctx); err != nil {
		err = fmt.Errorf("commit document: %w", err)
		return failed(regno, docSemester, err.Error()), err
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, regno.String()); err != nil {
			log.Warn("record cache invalidation failed", logger.Err(err))
		}
	}

	log.Info("document processed",
		logger.Int("grades_inserted", res.GradesInserted),
		logger.Int("grades_updated", res.GradesUpdated),
		logger.Int("subjects_created", res.SubjectsCreated))
	return res, nil
}

// reconcile runs the per-document algorithm inside the transaction. It
// returns shared.ErrAlreadyProcessed when the idempotency guard fires and
// shared.ErrSemesterConflict when a concurrent creation raced us.
func (h *ProcessDocumentHandler) reconcile(
	ctx context.Context,
	tx record.Tx,
	log *logger.Logger,
	text string,
	regno record.Regno,
	docSemester record.Ordinal,
) (*ProcessDocumentResult, error) {
	res := &ProcessDocumentResult{
		Regno:            regno,
		ResolvedSemester: docSemester,
		Status:           StatusProcessed,
	}

	student, err := tx.FindStudent(ctx, regno)
	if shared.IsNotFound(err) {
		student, err = h.createStudent(ctx, tx, text, regno)
		if err != nil {
			return nil, err
		}
		res.StudentCreated = true
		log.Info("student created", logger.String("name", student.Name))
	} else if err != nil {
		return nil, err
	}

	// Idempotency guard: a semester already recorded for (student, D) means
	// this document was processed before. Coarse-grained and per document.
	if _, err := tx.FindSemester(ctx, student.ID, docSemester); err == nil {
		return nil, shared.ErrSemesterProcessed
	} else if !shared.IsNotFound(err) {
		return nil, err
	}

	// The new semester is created before any rows are processed so
	// same-semester rows always have their target.
	docSem := &record.Semester{
		ID:        uuid.NewString(),
		StudentID: student.ID,
		Ordinal:   docSemester,
		GPA:       extract.GPA(text),
	}
	if err := tx.CreateSemester(ctx, docSem); err != nil {
		return nil, err
	}

	// Guards the no-duplicate-(semester, subject) invariant against a
	// malformed document repeating a row.
	seen := make(map[record.SubjectCode]bool)

	for row := range extract.Rows(text) {
		subject, created, err := h.resolveSubject(ctx, tx, row)
		if err != nil {
			return nil, err
		}
		if created {
			res.SubjectsCreated++
			log.Info("subject created",
				logger.SubjectCode(subject.Code.String()),
				logger.String("subject_name", subject.Name))
		}

		if !record.IsKnownGrade(row.Grade) {
			// Absorbed locally with zero points; one malformed row must not
			// abort an otherwise valid transcript.
			log.Warn("unrecognized grade letter, counting zero points",
				logger.SubjectCode(subject.Code.String()), logger.Grade(row.Grade))
		}

		if row.DeclaredSemester == docSemester {
			if seen[subject.Code] {
				log.Warn("duplicate row for subject in document, ignored",
					logger.SubjectCode(subject.Code.String()))
				continue
			}
			seen[subject.Code] = true

			g := &record.Grade{
				ID:         uuid.NewString(),
				SemesterID: docSem.ID,
				SubjectID:  subject.ID,
				Letter:     row.Grade,
			}
			g.Recompute(subject.Credits)
			if err := tx.InsertGrade(ctx, g); err != nil {
				return nil, err
			}
			res.GradesInserted++
			continue
		}

		// Arrear case: the row belongs to an earlier semester and must
		// correct the historical record, not pollute this document's
		// semester.
		inserted, updated, err := h.applyArrear(ctx, tx, log, student, regno, subject, row)
		if err != nil {
			return nil, err
		}
		res.GradesInserted += inserted
		res.GradesUpdated += updated
	}

	return res, nil
}

// createStudent extracts the student identity from the document and persists
// it. A new student with an unreadable name or DOB aborts the document: the
// record would be unusable.
func (h *ProcessDocumentHandler) createStudent(ctx context.Context, tx record.Tx, text string, regno record.Regno) (*record.Student, error) {
	name, err := extract.Name(text)
	if err != nil {
		return nil, err
	}
	dob, err := extract.DOB(text)
	if err != nil {
		return nil, err
	}

	student := &record.Student{
		ID:    uuid.NewString(),
		Regno: regno,
		Name:  name,
		DOB:   dob,
	}
	if err := tx.CreateStudent(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// resolveSubject finds or creates the subject for a row. On first sight the
// credit-weight comes from the static catalog (default when unlisted) and the
// home semester is the row's declared semester. Existing subjects are
// returned as stored - never corrected by later documents.
func (h *ProcessDocumentHandler) resolveSubject(ctx context.Context, tx record.Tx, row extract.Row) (*record.Subject, bool, error) {
	credits, listed := h.catalog.Credits(row.Code)
	if !listed {
		h.logger.Warn("subject not in catalog, using default credits",
			logger.SubjectCode(row.Code.String()), logger.Int("credits", credits))
	}

	return tx.FindOrCreateSubject(ctx, &record.Subject{
		ID:           uuid.NewString(),
		Code:         row.Code,
		Name:         row.Name,
		Credits:      credits,
		HomeSemester: row.DeclaredSemester,
	})
}

// applyArrear attributes a retake row back to its declared semester:
// overwrite when a grade exists, insert when the semester exists without one,
// and backfill the semester itself when this document is the first evidence
// of it. Returns (inserted, updated) counts.
func (h *ProcessDocumentHandler) applyArrear(
	ctx context.Context,
	tx record.Tx,
	log *logger.Logger,
	student *record.Student,
	regno record.Regno,
	subject *record.Subject,
	row extract.Row,
) (int, int, error) {
	home, err := tx.FindSemester(ctx, student.ID, row.DeclaredSemester)
	if shared.IsNotFound(err) {
		// First evidence of this semester's existence. Its GPA is unknown -
		// it was never reported on its own transcript.
		home = &record.Semester{
			ID:        uuid.NewString(),
			StudentID: student.ID,
			Ordinal:   row.DeclaredSemester,
		}
		if err := tx.CreateSemester(ctx, home); err != nil {
			return 0, 0, err
		}
		log.Info("arrear semester backfilled",
			logger.Int("home_semester", int(row.DeclaredSemester)),
			logger.SubjectCode(subject.Code.String()))
	} else if err != nil {
		return 0, 0, err
	}

	existing, err := tx.FindGrade(ctx, home.ID, subject.ID)
	if shared.IsNotFound(err) {
		g := &record.Grade{
			ID:         uuid.NewString(),
			SemesterID: home.ID,
			SubjectID:  subject.ID,
			Letter:     row.Grade,
		}
		g.Recompute(subject.Credits)
		if err := tx.InsertGrade(ctx, g); err != nil {
			return 0, 0, err
		}
		log.Info("arrear grade added",
			logger.Int("home_semester", int(row.DeclaredSemester)),
			logger.SubjectCode(subject.Code.String()),
			logger.Grade(row.Grade))
		return 1, 0, nil
	} else if err != nil {
		return 0, 0, err
	}

	// The only mutation path that changes an existing grade in place.
	oldLetter := existing.Letter
	existing.Letter = row.Grade
	existing.Recompute(subject.Credits)
	if err := tx.UpdateGrade(ctx, existing); err != nil {
		return 0, 0, err
	}

	change := &record.GradeChange{
		ID:            uuid.NewString(),
		Regno:         regno,
		SubjectCode:   subject.Code,
		Semester:      row.DeclaredSemester,
		OriginalGrade: oldLetter,
		NewGrade:      row.Grade,
		Credits:       subject.Credits,
	}
	if err := tx.InsertGradeChange(ctx, change); err != nil {
		return 0, 0, err
	}

	log.Info("arrear grade updated",
		logger.Int("home_semester", int(row.DeclaredSemester)),
		logger.SubjectCode(subject.Code.String()),
		logger.String("old_grade", oldLetter),
		logger.Grade(row.Grade))
	return 0, 1, nil
}

func failed(regno record.Regno, semester record.Ordinal, reason string) *ProcessDocumentResult {
	return &ProcessDocumentResult{
		Regno:            regno,
		ResolvedSemester: semester,
		Status:           StatusFailed,
		Reason:           reason,
	}
}

func skipped(regno record.Regno, semester record.Ordinal, reason string) *ProcessDocumentResult {
	return &ProcessDocumentResult{
		Regno:            regno,
		ResolvedSemester: semester,
		Status:           StatusSkippedDuplicate,
		Reason:           reason,
	}
}
