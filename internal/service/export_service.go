package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

var exportHeader = []any{
	"Attempt ID", "Name", "Email", "Status", "End Reason",
	"Marks", "Possible", "Percentage", "Correct", "Answered",
	"Time Spent (s)", "Started At", "Ended At",
}

// ExportService renders finalised attempts of an exam as a spreadsheet.
type ExportService struct {
	attemptRepo *repository.AttemptRepository
	examService *ExamService
	log         zerolog.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(attemptRepo *repository.AttemptRepository, examService *ExamService, log zerolog.Logger) *ExportService {
	return &ExportService{
		attemptRepo: attemptRepo,
		examService: examService,
		log:         log.With().Str("component", "export_service").Logger(),
	}
}

// ExamResults writes an XLSX workbook of every finalised attempt on examID
// to w and returns a suggested file name.
func (s *ExportService) ExamResults(ctx context.Context, examID uuid.UUID, w io.Writer) (string, error) {
	exam, err := s.examService.Get(ctx, examID)
	if err != nil {
		return "", err
	}
	rows, err := s.attemptRepo.ListFinishedByExam(ctx, examID)
	if err != nil {
		return "", fmt.Errorf("list attempts: %w", err)
	}

	f, err := buildResultsWorkbook(rows)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}
	s.log.Info().Str("exam_id", examID.String()).Int("rows", len(rows)).Msg("Results exported")
	return fmt.Sprintf("%s-results.xlsx", exam.ID), nil
}

func buildResultsWorkbook(rows []repository.AttemptExportRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &exportHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
		_ = f.SetCellStyle(resultsSheet, "A1", last, bold)
	}

	for i, r := range rows {
		endReason, ended := "", ""
		if r.EndReason != nil {
			endReason = string(*r.EndReason)
		}
		if r.EndedAt != nil {
			ended = r.EndedAt.UTC().Format(time.RFC3339)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := []any{
			r.AttemptID.String(), r.UserName, r.UserEmail, string(r.Status), endReason,
			r.TotalMarks, r.PossibleMarks, r.Percentage, r.CorrectCount, r.AnsweredCount,
			r.TimeSpent, r.StartedAt.UTC().Format(time.RFC3339), ended,
		}
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f, nil
}
