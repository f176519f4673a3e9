package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lotterydesk/lottery-api/internal/domain"
)

const roundListLimit = 50

// GetOrCreateActiveRound returns the OPEN round, opening the next one from
// the current settings when none exists.
func (s *LotteryService) GetOrCreateActiveRound(ctx context.Context) (domain.Round, error) {
	var ob outbox
	round, err := s.activeRound(ctx, &ob)
	if err != nil {
		return domain.Round{}, err
	}

	s.publish(&ob)

	return round, nil
}

func (s *LotteryService) activeRound(ctx context.Context, ob *outbox) (domain.Round, error) {
	round, err := s.repo.FindOpenRound(ctx)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, ErrRoundNotFound) {
		return domain.Round{}, fmt.Errorf("s.repo.FindOpenRound -> %w", err)
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return domain.Round{}, err
	}

	var opened outbox
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		round, err = s.openRound(ctx, settings, &opened)
		return err
	})
	if errors.Is(err, ErrRoundConflict) {
		// Another request opened a round first; use that one.
		round, err = s.repo.FindOpenRound(ctx)
		if err != nil {
			return domain.Round{}, fmt.Errorf("s.repo.FindOpenRound -> %w", err)
		}

		return round, nil
	}
	if err != nil {
		return domain.Round{}, err
	}

	ob.events = append(ob.events, opened.events...)

	return round, nil
}

// CloseActiveRoundIfAny closes the OPEN round. The boolean is false when no
// round was open.
func (s *LotteryService) CloseActiveRoundIfAny(ctx context.Context) (domain.Round, bool, error) {
	var (
		closed domain.Round
		ok     bool
		ob     outbox
	)
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		closed, ok, err = s.closeActiveRound(ctx, "manual", &ob)
		return err
	})
	if err != nil {
		return domain.Round{}, false, err
	}

	s.publish(&ob)

	return closed, ok, nil
}

// CreateNewOpenRoundFromSettings closes the OPEN round if any, reopens the
// settings and opens the next round with the current parameters.
func (s *LotteryService) CreateNewOpenRoundFromSettings(ctx context.Context) (domain.Round, error) {
	var (
		round domain.Round
		ob    outbox
	)
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		settings, err := s.GetSettings(ctx)
		if err != nil {
			return err
		}

		closed, ok, err := s.closeActiveRound(ctx, "reset", &ob)
		if err != nil {
			return err
		}

		if settings.Status != domain.StatusOpen || settings.DrawDate != nil {
			settings.Status = domain.StatusOpen
			settings.DrawDate = nil
			if settings, err = s.repo.SaveSettings(ctx, settings); err != nil {
				return fmt.Errorf("s.repo.SaveSettings -> %w", err)
			}
		}

		round, err = s.openRound(ctx, settings, &ob)
		if err != nil {
			return err
		}

		closedRound := "none"
		if ok {
			closedRound = fmt.Sprint(closed.Number)
		}

		return s.audit(ctx, nil, domain.ActionRoundReset,
			fmt.Sprintf("closedRound=%s, newRound=%d", closedRound, round.Number),
			map[string]any{"roundId": round.ID, "roundNumber": round.Number},
		)
	})
	if err != nil {
		return domain.Round{}, err
	}

	s.publish(&ob)

	return round, nil
}

func (s *LotteryService) GetRound(ctx context.Context, id string) (domain.RoundProgress, error) {
	round, err := s.repo.FindRoundByID(ctx, id)
	if err != nil {
		return domain.RoundProgress{}, fmt.Errorf("s.repo.FindRoundByID -> %w", err)
	}

	return s.progress(ctx, round)
}

func (s *LotteryService) ListRounds(ctx context.Context, limit int) ([]domain.Round, error) {
	if limit <= 0 || limit > roundListLimit {
		limit = roundListLimit
	}

	rounds, err := s.repo.ListRounds(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("s.repo.ListRounds -> %w", err)
	}

	return rounds, nil
}

func (s *LotteryService) progress(ctx context.Context, round domain.Round) (domain.RoundProgress, error) {
	codes, err := s.repo.CountCodes(ctx, round.ID)
	if err != nil {
		return domain.RoundProgress{}, fmt.Errorf("s.repo.CountCodes -> %w", err)
	}

	winners, err := s.repo.CountWinners(ctx, round.ID)
	if err != nil {
		return domain.RoundProgress{}, fmt.Errorf("s.repo.CountWinners -> %w", err)
	}

	return domain.NewRoundProgress(round, codes, winners), nil
}

func (s *LotteryService) openRound(ctx context.Context, settings domain.Settings, ob *outbox) (domain.Round, error) {
	last, err := s.repo.MaxRoundNumber(ctx)
	if err != nil {
		return domain.Round{}, fmt.Errorf("s.repo.MaxRoundNumber -> %w", err)
	}

	now := s.now()
	round, err := s.repo.CreateRound(ctx, domain.NewRoundFromSettings(last+1, settings, now))
	if err != nil {
		return domain.Round{}, fmt.Errorf("s.repo.CreateRound -> %w", err)
	}

	err = s.audit(ctx, nil, domain.ActionRoundCreated,
		fmt.Sprintf("Round=%d. capacity=%d, entryPrice=%d, winnersCount=%d",
			round.Number, round.Capacity, round.EntryPrice, round.WinnersCount),
		map[string]any{"roundId": round.ID, "roundNumber": round.Number},
	)
	if err != nil {
		return domain.Round{}, err
	}

	ob.add(domain.EventRoundOpened, round, nil, now)

	return round, nil
}

func (s *LotteryService) closeActiveRound(ctx context.Context, reason string, ob *outbox) (domain.Round, bool, error) {
	round, err := s.repo.FindOpenRound(ctx)
	if errors.Is(err, ErrRoundNotFound) {
		return domain.Round{}, false, nil
	}
	if err != nil {
		return domain.Round{}, false, fmt.Errorf("s.repo.FindOpenRound -> %w", err)
	}

	closed, err := s.closeRound(ctx, round, reason, ob)
	if err != nil {
		return domain.Round{}, false, err
	}

	return closed, true, nil
}

func (s *LotteryService) closeRound(ctx context.Context, round domain.Round, reason string, ob *outbox) (domain.Round, error) {
	now := s.now()
	round.Close(now)

	closed, err := s.repo.UpdateRoundState(ctx, round)
	if err != nil {
		return domain.Round{}, fmt.Errorf("s.repo.UpdateRoundState -> %w", err)
	}

	err = s.audit(ctx, nil, domain.ActionRoundClosed,
		fmt.Sprintf("Round=%d closed. reason=%s", closed.Number, reason),
		map[string]any{"roundId": closed.ID, "roundNumber": closed.Number, "reason": reason},
	)
	if err != nil {
		return domain.Round{}, err
	}

	ob.add(domain.EventRoundClosed, closed, nil, now)

	return closed, nil
}
