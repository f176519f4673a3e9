package repository

import (
	"context"
	"fmt"

	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/repository/dao"
)

var ErrFeedbackNotFound = dao.ErrFeedbackNotFound

type FeedbackDAO interface {
	Insert(ctx context.Context, feedback dao.Feedback) (dao.Feedback, error)
	List(ctx context.Context, status string, limit int) ([]dao.Feedback, error)
	UpdateStatus(ctx context.Context, id, status string) (dao.Feedback, error)
}

type FeedbackRepository struct {
	dao FeedbackDAO
}

func NewFeedbackRepository(dao FeedbackDAO) *FeedbackRepository {
	return &FeedbackRepository{
		dao: dao,
	}
}

func (r *FeedbackRepository) Create(ctx context.Context, feedback domain.Feedback) (domain.Feedback, error) {
	created, err := r.dao.Insert(ctx, dao.Feedback{
		Name:    feedback.Name,
		Mobile:  feedback.Mobile,
		Message: feedback.Message,
		Status:  string(feedback.Status),
	})
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return feedbackToDomain(created), nil
}

func (r *FeedbackRepository) List(ctx context.Context, status *domain.FeedbackStatus, limit int) ([]domain.Feedback, error) {
	filter := ""
	if status != nil {
		filter = string(*status)
	}

	found, err := r.dao.List(ctx, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.List -> %w", err)
	}

	items := make([]domain.Feedback, 0, len(found))
	for _, f := range found {
		items = append(items, feedbackToDomain(f))
	}

	return items, nil
}

func (r *FeedbackRepository) UpdateStatus(ctx context.Context, id string, status domain.FeedbackStatus) (domain.Feedback, error) {
	updated, err := r.dao.UpdateStatus(ctx, id, string(status))
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("r.dao.UpdateStatus -> %w", err)
	}

	return feedbackToDomain(updated), nil
}

func feedbackToDomain(f dao.Feedback) domain.Feedback {
	return domain.Feedback{
		ID:        f.ID,
		Name:      f.Name,
		Mobile:    f.Mobile,
		Message:   f.Message,
		Status:    domain.FeedbackStatus(f.Status),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
