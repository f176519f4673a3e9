package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lotterydesk/lottery-api/internal/domain"
)

// GetSettings returns the singleton settings, creating the defaults on first
// use.
func (s *LotteryService) GetSettings(ctx context.Context) (domain.Settings, error) {
	settings, err := s.repo.FindSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, ErrSettingsNotFound) {
		return domain.Settings{}, fmt.Errorf("s.repo.FindSettings -> %w", err)
	}

	settings, _, err = s.repo.CreateSettingsIfAbsent(ctx, domain.DefaultSettings())
	if err != nil {
		return domain.Settings{}, fmt.Errorf("s.repo.CreateSettingsIfAbsent -> %w", err)
	}

	return settings, nil
}

func validateSettingsUpdate(update domain.SettingsUpdate) error {
	if update.Capacity <= 0 {
		return validationErr("capacity must be a positive integer")
	}
	if update.WinnersCount <= 0 {
		return validationErr("winnersCount must be a positive integer")
	}
	if update.EntryPrice <= 0 {
		return validationErr("entryPrice must be a positive amount")
	}
	if update.Status != nil && !update.Status.IsValid() {
		return validationErr("status must be one of OPEN, CLOSED, DRAWN")
	}

	return nil
}

// UpdateSettings stores new parameters and rolls over to a fresh round that
// uses them. Rounds opened earlier keep their own frozen parameters.
func (s *LotteryService) UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (domain.Settings, domain.Round, error) {
	if err := validateSettingsUpdate(update); err != nil {
		return domain.Settings{}, domain.Round{}, err
	}

	var (
		saved domain.Settings
		round domain.Round
		ob    outbox
	)
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		current, created, err := s.repo.CreateSettingsIfAbsent(ctx, domain.DefaultSettings())
		if err != nil {
			return fmt.Errorf("s.repo.CreateSettingsIfAbsent -> %w", err)
		}

		current.Capacity = update.Capacity
		current.EntryPrice = update.EntryPrice
		current.WinnersCount = update.WinnersCount
		current.Status = domain.StatusOpen
		if update.Status != nil {
			current.Status = *update.Status
		}
		if update.PrizeType != nil {
			current.PrizeType = nil
			if prizeType := strings.TrimSpace(*update.PrizeType); prizeType != "" {
				current.PrizeType = &prizeType
			}
		}
		current.DrawDate = nil

		saved, err = s.repo.SaveSettings(ctx, current)
		if err != nil {
			return fmt.Errorf("s.repo.SaveSettings -> %w", err)
		}

		if _, _, err = s.closeActiveRound(ctx, "settings_update", &ob); err != nil {
			return err
		}

		round, err = s.openRound(ctx, saved, &ob)
		if err != nil {
			return err
		}

		action := domain.ActionSettingsUpdated
		if created {
			action = domain.ActionSettingsCreated
		}

		return s.audit(ctx, nil, action,
			fmt.Sprintf("newRound=%d. capacity=%d, entryPrice=%d, winnersCount=%d",
				round.Number, saved.Capacity, saved.EntryPrice, saved.WinnersCount),
			map[string]any{
				"roundId":      round.ID,
				"roundNumber":  round.Number,
				"capacity":     saved.Capacity,
				"entryPrice":   saved.EntryPrice,
				"winnersCount": saved.WinnersCount,
			},
		)
	})
	if err != nil {
		return domain.Settings{}, domain.Round{}, err
	}

	s.publish(&ob)

	return saved, round, nil
}
