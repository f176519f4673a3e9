package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lotterydesk/lottery-api/internal/domain"
)

const (
	overviewLogLimit     = 50
	dashboardPaymentsMax = 20
)

// AdminOverview gathers what the admin panel shows for one round. An empty
// roundID selects the OPEN round, or the latest one when none is open.
func (s *LotteryService) AdminOverview(ctx context.Context, roundID string) (domain.AdminOverview, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return domain.AdminOverview{}, err
	}

	rounds, err := s.ListRounds(ctx, roundListLimit)
	if err != nil {
		return domain.AdminOverview{}, err
	}

	logs, err := s.repo.ListLogs(ctx, overviewLogLimit)
	if err != nil {
		return domain.AdminOverview{}, fmt.Errorf("s.repo.ListLogs -> %w", err)
	}

	overview := domain.AdminOverview{
		Settings: settings,
		Rounds:   rounds,
		Codes:    []domain.LotteryCode{},
		Winners:  []domain.Winner{},
		Payments: []domain.Payment{},
		Logs:     logs,
	}

	selected, ok, err := s.selectRound(ctx, roundID, rounds)
	if err != nil || !ok {
		return overview, err
	}

	progress, err := s.progress(ctx, selected)
	if err != nil {
		return domain.AdminOverview{}, err
	}
	overview.Selected = &progress

	if overview.Codes, err = s.repo.ListCodesByRound(ctx, selected.ID); err != nil {
		return domain.AdminOverview{}, fmt.Errorf("s.repo.ListCodesByRound -> %w", err)
	}
	if overview.Winners, err = s.repo.ListWinnersByRound(ctx, selected.ID); err != nil {
		return domain.AdminOverview{}, fmt.Errorf("s.repo.ListWinnersByRound -> %w", err)
	}
	if overview.Payments, err = s.payments.ListByRound(ctx, selected.ID); err != nil {
		return domain.AdminOverview{}, fmt.Errorf("s.payments.ListByRound -> %w", err)
	}

	return overview, nil
}

func (s *LotteryService) selectRound(ctx context.Context, roundID string, rounds []domain.Round) (domain.Round, bool, error) {
	if roundID != "" {
		round, err := s.repo.FindRoundByID(ctx, roundID)
		if err != nil {
			return domain.Round{}, false, fmt.Errorf("s.repo.FindRoundByID -> %w", err)
		}

		return round, true, nil
	}

	round, err := s.repo.FindOpenRound(ctx)
	if err == nil {
		return round, true, nil
	}
	if !errors.Is(err, ErrRoundNotFound) {
		return domain.Round{}, false, fmt.Errorf("s.repo.FindOpenRound -> %w", err)
	}
	if len(rounds) == 0 {
		return domain.Round{}, false, nil
	}

	return rounds[0], true, nil
}

// FinanceReport summarises revenue and prizes of the latest rounds.
func (s *LotteryService) FinanceReport(ctx context.Context) (domain.FinanceReport, error) {
	rounds, err := s.ListRounds(ctx, roundListLimit)
	if err != nil {
		return domain.FinanceReport{}, err
	}

	revenue, err := s.payments.RevenueByRound(ctx)
	if err != nil {
		return domain.FinanceReport{}, fmt.Errorf("s.payments.RevenueByRound -> %w", err)
	}

	report := domain.FinanceReport{Rounds: make([]domain.RoundFinance, 0, len(rounds))}
	totalRevenue := decimal.Zero
	totalPrizes := decimal.Zero
	totalPayments := 0

	for _, round := range rounds {
		codes, err := s.repo.CountCodes(ctx, round.ID)
		if err != nil {
			return domain.FinanceReport{}, fmt.Errorf("s.repo.CountCodes -> %w", err)
		}

		winners, err := s.repo.ListWinnersByRound(ctx, round.ID)
		if err != nil {
			return domain.FinanceReport{}, fmt.Errorf("s.repo.ListWinnersByRound -> %w", err)
		}

		prizes := decimal.Zero
		for _, w := range winners {
			prizes = prizes.Add(decimal.NewFromInt(w.PrizeAmount))
		}

		paid := revenue[round.ID]
		report.Rounds = append(report.Rounds, domain.RoundFinance{
			RoundID:            round.ID,
			RoundNumber:        round.Number,
			Status:             round.Status,
			EntryPrice:         round.EntryPrice,
			SuccessfulPayments: paid.SuccessfulPayments,
			Revenue:            paid.Revenue,
			CodesIssued:        codes,
			Winners:            len(winners),
			PrizePaid:          prizes.IntPart(),
		})

		totalRevenue = totalRevenue.Add(decimal.NewFromInt(paid.Revenue))
		totalPrizes = totalPrizes.Add(prizes)
		totalPayments += paid.SuccessfulPayments
	}

	report.TotalRevenue = totalRevenue.IntPart()
	report.TotalPrizes = totalPrizes.IntPart()
	report.AverageTicket = decimal.Zero.StringFixed(2)
	if totalPayments > 0 {
		report.AverageTicket = totalRevenue.Div(decimal.NewFromInt(int64(totalPayments))).StringFixed(2)
	}

	return report, nil
}

// Dashboard is what a signed-in participant sees.
func (s *LotteryService) Dashboard(ctx context.Context, user domain.User) (domain.Dashboard, error) {
	codes, err := s.repo.ListCodesByUser(ctx, user.ID)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("s.repo.ListCodesByUser -> %w", err)
	}

	payments, err := s.payments.ListByUser(ctx, user.ID, dashboardPaymentsMax)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("s.payments.ListByUser -> %w", err)
	}

	dashboard := domain.Dashboard{
		User:     user,
		Codes:    codes,
		Payments: payments,
	}

	round, err := s.repo.FindOpenRound(ctx)
	if errors.Is(err, ErrRoundNotFound) {
		return dashboard, nil
	}
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("s.repo.FindOpenRound -> %w", err)
	}

	progress, err := s.progress(ctx, round)
	if err != nil {
		return domain.Dashboard{}, err
	}
	dashboard.ActiveRound = &progress

	return dashboard, nil
}
