// Package export renders assembled student records as XLSX workbooks, one
// sheet per semester plus an audit sheet when grade changes exist.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/acadhub/transcript-hub/internal/application/query"
	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/pkg/logger"
)

// Service produces XLSX bytes for a student's full record.
type Service struct {
	records *query.GetStudentRecordHandler
	logger  *logger.Logger
}

// NewService creates a new export service.
func NewService(records *query.GetStudentRecordHandler, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{records: records, logger: log}
}

// ExportRecordXLSX returns an XLSX workbook (as bytes) with the student's
// semesters in ordinal order.
func (s *Service) ExportRecordXLSX(ctx context.Context, regno record.Regno) ([]byte, error) {
	start := time.Now()

	rec, err := s.records.Handle(ctx, query.GetStudentRecordQuery{Regno: regno})
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	f := excelize.NewFile()

	for i, sem := range rec.Semesters {
		sheet := fmt.Sprintf("Semester %d", sem.Semester)
		if i == 0 {
			// Rename the default sheet instead of leaving it empty.
			_ = f.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
		}

		writeSemesterSheet(f, sheet, rec, sem)
	}

	if len(rec.GradeChanges) > 0 {
		const sheet = "Grade Changes"
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		writeGradeChangesSheet(f, sheet, rec.GradeChanges)
	}

	if len(rec.Semesters) > 0 {
		idx, _ := f.GetSheetIndex(fmt.Sprintf("Semester %d", rec.Semesters[0].Semester))
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("record exported",
		logger.Regno(rec.Regno),
		logger.Int("semesters", len(rec.Semesters)),
		logger.Latency(time.Since(start)),
	)
	return buf.Bytes(), nil
}

func writeSemesterSheet(f *excelize.File, sheet string, rec *query.StudentRecord, sem query.SemesterView) {
	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(1, 1, "Name")
	write(2, 1, rec.Name)
	write(1, 2, "Regno")
	write(2, 2, rec.Regno)

	headers := []string{"Subject Code", "Subject Name", "Credits", "Grade", "Grade Points"}
	for i, h := range headers {
		write(i+1, 4, h)
	}

	row := 5
	for _, sub := range sem.Subjects {
		write(1, row, sub.Code)
		write(2, row, sub.Name)
		write(3, row, sub.Credits)
		write(4, row, sub.Grade)
		write(5, row, sub.PointsEarned)
		row++
	}

	write(1, row+1, "Total Credits")
	write(3, row+1, sem.TotalCredits)
	write(1, row+2, "Total Grade Points")
	write(3, row+2, sem.TotalGradePoints)
	if sem.GPA != nil {
		write(1, row+3, "GPA")
		write(3, row+3, *sem.GPA)
	}

	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "B", 42)
	_ = f.SetColWidth(sheet, "C", "E", 14)
}

func writeGradeChangesSheet(f *excelize.File, sheet string, changes []query.GradeChangeView) {
	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	headers := []string{"Subject Code", "Semester", "Original Grade", "New Grade", "Credits", "Changed At"}
	for i, h := range headers {
		write(i+1, 1, h)
	}

	row := 2
	for _, c := range changes {
		write(1, row, c.SubjectCode)
		write(2, row, c.Semester)
		write(3, row, c.OriginalGrade)
		write(4, row, c.NewGrade)
		write(5, row, c.Credits)
		write(6, row, c.ChangedAt)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "E", 14)
	_ = f.SetColWidth(sheet, "F", "F", 24)
}
