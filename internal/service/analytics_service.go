package service

import (
	"context"
	"fmt"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// recentAttempts is how many attempts the user dashboard shows.
const recentAttempts = 5

// AnalyticsService aggregates attempt history for the dashboards.
type AnalyticsService struct {
	repo        *repository.AnalyticsRepository
	attemptRepo *repository.AttemptRepository
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(repo *repository.AnalyticsRepository, attemptRepo *repository.AttemptRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo, attemptRepo: attemptRepo}
}

// User returns the caller's performance summary. The three queries are
// independent and run concurrently.
func (s *AnalyticsService) User(ctx context.Context, userID uuid.UUID) (*model.UserAnalytics, error) {
	out := &model.UserAnalytics{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.repo.UserSummary(gctx, userID, out); err != nil {
			return fmt.Errorf("user summary: %w", err)
		}
		return nil
	})
	var byCategory []model.CategoryStat
	g.Go(func() error {
		var err error
		if byCategory, err = s.repo.UserByCategory(gctx, userID); err != nil {
			return fmt.Errorf("category stats: %w", err)
		}
		return nil
	})
	var recent []model.AttemptListItem
	g.Go(func() error {
		var err error
		if recent, _, err = s.attemptRepo.ListByUser(gctx, userID, recentAttempts, 0); err != nil {
			return fmt.Errorf("recent attempts: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.ByCategory = byCategory
	out.Recent = recent
	return out, nil
}

// Admin returns the back-office overview counters.
func (s *AnalyticsService) Admin(ctx context.Context) (*model.AdminDashboard, error) {
	d, err := s.repo.AdminCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin counts: %w", err)
	}
	return d, nil
}
