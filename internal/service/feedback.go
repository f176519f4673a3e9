package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lotterydesk/lottery-api/internal/domain"
)

const (
	feedbackListLimit  = 200
	feedbackNameMax    = 100
	feedbackMessageMin = 5
	feedbackMessageMax = 2000
)

type FeedbackRepository interface {
	Create(ctx context.Context, feedback domain.Feedback) (domain.Feedback, error)
	List(ctx context.Context, status *domain.FeedbackStatus, limit int) ([]domain.Feedback, error)
	UpdateStatus(ctx context.Context, id string, status domain.FeedbackStatus) (domain.Feedback, error)
}

type FeedbackService struct {
	repo FeedbackRepository
}

func NewFeedbackService(repo FeedbackRepository) *FeedbackService {
	return &FeedbackService{
		repo: repo,
	}
}

// SubmitFeedback stores a contact form message as NEW. Name and mobile are
// optional.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, input domain.FeedbackInput) (domain.Feedback, error) {
	name := strings.TrimSpace(input.Name)
	mobile := strings.TrimSpace(input.Mobile)
	message := strings.TrimSpace(input.Message)

	if utf8.RuneCountInString(name) > feedbackNameMax {
		return domain.Feedback{}, validationErr("name must be at most %d characters", feedbackNameMax)
	}
	if mobile != "" && !MobilePattern.MatchString(mobile) {
		return domain.Feedback{}, validationErr("mobile must be a valid mobile number")
	}
	if n := utf8.RuneCountInString(message); n < feedbackMessageMin || n > feedbackMessageMax {
		return domain.Feedback{}, validationErr("message must be between %d and %d characters", feedbackMessageMin, feedbackMessageMax)
	}

	feedback := domain.Feedback{
		Message: message,
		Status:  domain.FeedbackNew,
	}
	if name != "" {
		feedback.Name = &name
	}
	if mobile != "" {
		feedback.Mobile = &mobile
	}

	created, err := s.repo.Create(ctx, feedback)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	zap.L().Info("feedback received", zap.String("feedback_id", created.ID))

	return created, nil
}

// ListFeedback returns the latest entries, optionally only those in status.
func (s *FeedbackService) ListFeedback(ctx context.Context, status *domain.FeedbackStatus) ([]domain.Feedback, error) {
	if status != nil && !status.IsValid() {
		return nil, validationErr("status must be one of NEW, READ, DONE")
	}

	items, err := s.repo.List(ctx, status, feedbackListLimit)
	if err != nil {
		return nil, fmt.Errorf("s.repo.List -> %w", err)
	}

	return items, nil
}

func (s *FeedbackService) UpdateFeedbackStatus(ctx context.Context, id string, status domain.FeedbackStatus) (domain.Feedback, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Feedback{}, validationErr("id is required")
	}
	if !status.IsValid() {
		return domain.Feedback{}, validationErr("status must be one of NEW, READ, DONE")
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("s.repo.UpdateStatus -> %w", err)
	}

	return updated, nil
}
