package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lotterydesk/lottery-api/internal/domain"
)

type UserService struct {
	repo    UserRepository
	lottery *LotteryService
}

func NewUserService(repo UserRepository, lottery *LotteryService) *UserService {
	return &UserService{
		repo:    repo,
		lottery: lottery,
	}
}

func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if name := strings.TrimSpace(update.Name); name != "" {
		user.Name = &name
	}
	if handle := strings.TrimPrefix(strings.TrimSpace(update.InstagramID), "@"); handle != "" {
		user.InstagramID = &handle
	}
	if update.TermsAccepted {
		user.TermsAccepted = true
	}

	user, err = s.repo.Save(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.Save -> %w", err)
	}

	return user, nil
}

func (s *UserService) GetDashboard(ctx context.Context, id string) (domain.Dashboard, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return domain.Dashboard{}, err
	}

	return s.lottery.Dashboard(ctx, user)
}
