package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/repository"
)

const winnerNotifyTimeout = 10 * time.Second

// RegisterWinner records code as a winner of its round. There is no random
// draw; the administrator enters the code. When roundID is empty the round
// that owns the code is used.
func (s *LotteryService) RegisterWinner(ctx context.Context, roundID, code string) (domain.WinnerRegistration, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.WinnerRegistration{}, validationErr("lotteryCode is required")
	}

	if roundID == "" {
		owner, err := s.repo.FindCodeByValue(ctx, code)
		if err != nil {
			return domain.WinnerRegistration{}, fmt.Errorf("s.repo.FindCodeByValue -> %w", err)
		}
		roundID = owner.RoundID
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		return domain.WinnerRegistration{}, err
	}

	var (
		reg domain.WinnerRegistration
		ob  outbox
	)
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		round, err := s.repo.LockRound(ctx, roundID)
		if err != nil {
			return fmt.Errorf("s.repo.LockRound -> %w", err)
		}
		if round.Status == domain.StatusDrawn {
			return fmt.Errorf("%w: round %d is already drawn", ErrInvalidRoundState, round.Number)
		}

		lc, err := s.repo.FindCodeInRound(ctx, round.ID, code)
		if err != nil {
			return fmt.Errorf("s.repo.FindCodeInRound -> %w", err)
		}

		won, err := s.repo.WinnerExists(ctx, round.ID, lc.Code)
		if err != nil {
			return fmt.Errorf("s.repo.WinnerExists -> %w", err)
		}
		if won {
			return ErrAlreadyWon
		}

		count, err := s.repo.CountWinners(ctx, round.ID)
		if err != nil {
			return fmt.Errorf("s.repo.CountWinners -> %w", err)
		}
		if count >= round.WinnersCount {
			return ErrQuotaFull
		}

		prize, err := s.prizeAmount(ctx, round)
		if err != nil {
			return err
		}

		now := s.now()
		winner, err := s.repo.CreateWinner(ctx, domain.Winner{
			UserID:      lc.UserID,
			RoundID:     round.ID,
			LotteryCode: lc.Code,
			CodeNumber:  lc.CodeNumber,
			DrawDate:    now,
			PrizeAmount: prize,
			PrizeType:   settings.PrizeType,
		})
		if errors.Is(err, repository.ErrWinnerExists) {
			return ErrAlreadyWon
		}
		if err != nil {
			return fmt.Errorf("s.repo.CreateWinner -> %w", err)
		}

		err = s.audit(ctx, &winner.UserID, domain.ActionWinnerSelected,
			fmt.Sprintf("Round=%d. code=%s codeNumber=%d", round.Number, lc.Code, lc.CodeNumber),
			map[string]any{"roundId": round.ID, "code": lc.Code, "prizeAmount": prize},
		)
		if err != nil {
			return err
		}
		ob.add(domain.EventWinnerRegistered, round, &lc, now)

		if count+1 >= round.WinnersCount {
			round.MarkDrawn(now)
			if round, err = s.repo.UpdateRoundState(ctx, round); err != nil {
				return fmt.Errorf("s.repo.UpdateRoundState -> %w", err)
			}

			err = s.audit(ctx, nil, domain.ActionDrawCompleted,
				fmt.Sprintf("Round=%d drawn with %d winners", round.Number, count+1),
				map[string]any{"roundId": round.ID, "winners": count + 1},
			)
			if err != nil {
				return err
			}
			ob.add(domain.EventRoundDrawn, round, nil, now)
		}

		reg = domain.WinnerRegistration{Winner: winner, Round: round}

		return nil
	})
	if err != nil {
		return domain.WinnerRegistration{}, err
	}

	s.publish(&ob)
	s.notifyWinner(ctx, reg.Winner)

	return reg, nil
}

func (s *LotteryService) prizeAmount(ctx context.Context, round domain.Round) (int64, error) {
	if s.conf.PrizePolicy != PrizePolicyRevenueSplit || round.WinnersCount <= 0 {
		return 0, nil
	}

	revenue, err := s.payments.SumSuccessful(ctx, round.ID)
	if err != nil {
		return 0, fmt.Errorf("s.payments.SumSuccessful -> %w", err)
	}

	share := decimal.NewFromInt(revenue).
		Div(decimal.NewFromInt(int64(round.WinnersCount))).
		Floor()

	return share.IntPart(), nil
}

// notifyWinner never fails the registration. Errors are logged.
func (s *LotteryService) notifyWinner(ctx context.Context, winner domain.Winner) {
	if s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), winnerNotifyTimeout)
	defer cancel()

	user, err := s.users.FindByID(ctx, winner.UserID)
	if err == nil {
		err = s.notifier.NotifyWinner(ctx, user.Mobile, winner.LotteryCode)
	}
	if err == nil {
		return
	}

	zap.L().Warn("failed to notify winner",
		zap.String("winner_id", winner.ID),
		zap.String("code", winner.LotteryCode),
		zap.Error(err),
	)
	s.auditBestEffort(ctx, &winner.UserID, domain.ActionWinnerSMSFailed,
		fmt.Sprintf("code=%s error=%v", winner.LotteryCode, err),
		map[string]any{"winnerId": winner.ID, "code": winner.LotteryCode},
	)
}
