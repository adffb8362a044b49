package model

import "github.com/google/uuid"

// CategoryStat aggregates a user's completed attempts in one category.
type CategoryStat struct {
	CategoryID        *uuid.UUID `json:"category_id,omitempty"`
	CategoryName      string     `json:"category_name"`
	Attempts          int        `json:"attempts"`
	AveragePercentage float64    `json:"average_percentage"`
}

// UserAnalytics backs the user dashboard.
type UserAnalytics struct {
	TotalAttempts     int               `json:"total_attempts"`
	CompletedAttempts int               `json:"completed_attempts"`
	AveragePercentage float64           `json:"average_percentage"`
	BestPercentage    float64           `json:"best_percentage"`
	TotalTimeSpent    int               `json:"total_time_spent"`
	ByCategory        []CategoryStat    `json:"by_category"`
	Recent            []AttemptListItem `json:"recent"`
}

// AdminDashboard backs the back-office overview.
type AdminDashboard struct {
	TotalUsers       int `json:"total_users"`
	ActiveExams      int `json:"active_exams"`
	TotalQuestions   int `json:"total_questions"`
	AttemptsToday    int `json:"attempts_today"`
	InProgress       int `json:"in_progress"`
	CreditsPurchased int `json:"credits_purchased"`
}
