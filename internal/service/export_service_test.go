package service

import (
	"testing"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/google/uuid"
)

func TestBuildResultsWorkbook(t *testing.T) {
	ended := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	reason := model.EndReasonManual
	rows := []repository.AttemptExportRow{
		{
			AttemptID:     uuid.New(),
			UserName:      "Ada",
			UserEmail:     "ada@example.com",
			Status:        model.AttemptStatusCompleted,
			EndReason:     &reason,
			TotalMarks:    3,
			PossibleMarks: 8,
			Percentage:    37.5,
			StartedAt:     ended.Add(-10 * time.Minute),
			EndedAt:       &ended,
		},
		{
			AttemptID: uuid.New(),
			UserName:  "Grace",
			Status:    model.AttemptStatusExpired,
			StartedAt: ended,
		},
	}

	f, err := buildResultsWorkbook(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(resultsSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(got))
	}
	if got[0][0] != "Attempt ID" {
		t.Errorf("unexpected header %v", got[0])
	}
	if got[1][1] != "Ada" || got[1][4] != "MANUAL" || got[1][7] != "37.5" {
		t.Errorf("unexpected first row %v", got[1])
	}
	if got[2][3] != "EXPIRED" {
		t.Errorf("unexpected second row %v", got[2])
	}
}
