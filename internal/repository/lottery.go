package repository

import (
	"context"
	"fmt"

	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/repository/dao"
)

var (
	ErrSettingsNotFound = dao.ErrSettingsNotFound
	ErrRoundNotFound    = dao.ErrRoundNotFound
	ErrRoundConflict    = dao.ErrRoundConflict
	ErrCodeNotFound     = dao.ErrCodeNotFound
	ErrDuplicateCode    = dao.ErrDuplicateCode
	ErrPaymentHasCode   = dao.ErrPaymentHasCode
	ErrWinnerExists     = dao.ErrWinnerExists
)

type LotteryDAO interface {
	FindSettings(ctx context.Context) (dao.Settings, error)
	InsertSettingsIfAbsent(ctx context.Context, settings dao.Settings) (dao.Settings, bool, error)
	SaveSettings(ctx context.Context, settings dao.Settings) (dao.Settings, error)
	FindOpenRound(ctx context.Context) (dao.Round, error)
	FindRoundByID(ctx context.Context, id string, forUpdate bool) (dao.Round, error)
	MaxRoundNumber(ctx context.Context) (int, error)
	InsertRound(ctx context.Context, round dao.Round) (dao.Round, error)
	UpdateRoundState(ctx context.Context, round dao.Round) (dao.Round, error)
	ListRounds(ctx context.Context, limit int) ([]dao.Round, error)
	CountCodes(ctx context.Context, roundID string) (int64, error)
	MaxCodeNumber(ctx context.Context, roundID string) (int, error)
	InsertCode(ctx context.Context, code dao.LotteryCode) (dao.LotteryCode, error)
	FindCodeByPaymentID(ctx context.Context, paymentID string) (dao.LotteryCode, error)
	FindCodeByValue(ctx context.Context, code string) (dao.LotteryCode, error)
	FindCodeInRound(ctx context.Context, roundID, code string) (dao.LotteryCode, error)
	ListCodesByRound(ctx context.Context, roundID string) ([]dao.LotteryCode, error)
	ListCodesByUser(ctx context.Context, userID string) ([]dao.LotteryCode, error)
	CountWinners(ctx context.Context, roundID string) (int64, error)
	WinnerExists(ctx context.Context, roundID, code string) (bool, error)
	InsertWinner(ctx context.Context, winner dao.Winner) (dao.Winner, error)
	ListWinnersByRound(ctx context.Context, roundID string) ([]dao.Winner, error)
	InsertLog(ctx context.Context, entry dao.TransactionLog) (dao.TransactionLog, error)
	ListLogs(ctx context.Context, limit int) ([]dao.TransactionLog, error)
}

type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type LotteryRepository struct {
	dao LotteryDAO
	tx  TxManager
}

func NewLotteryRepository(dao LotteryDAO, tx TxManager) *LotteryRepository {
	return &LotteryRepository{
		dao: dao,
		tx:  tx,
	}
}

func (r *LotteryRepository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.tx.Transaction(ctx, fn)
}

func (r *LotteryRepository) FindSettings(ctx context.Context) (domain.Settings, error) {
	found, err := r.dao.FindSettings(ctx)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("r.dao.FindSettings -> %w", err)
	}

	return settingsToDomain(found), nil
}

func (r *LotteryRepository) CreateSettingsIfAbsent(ctx context.Context, settings domain.Settings) (domain.Settings, bool, error) {
	found, created, err := r.dao.InsertSettingsIfAbsent(ctx, settingsToDao(settings))
	if err != nil {
		return domain.Settings{}, false, fmt.Errorf("r.dao.InsertSettingsIfAbsent -> %w", err)
	}

	return settingsToDomain(found), created, nil
}

func (r *LotteryRepository) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	saved, err := r.dao.SaveSettings(ctx, settingsToDao(settings))
	if err != nil {
		return domain.Settings{}, fmt.Errorf("r.dao.SaveSettings -> %w", err)
	}

	return settingsToDomain(saved), nil
}

func (r *LotteryRepository) FindOpenRound(ctx context.Context) (domain.Round, error) {
	found, err := r.dao.FindOpenRound(ctx)
	if err != nil {
		return domain.Round{}, fmt.Errorf("r.dao.FindOpenRound -> %w", err)
	}

	return roundToDomain(found), nil
}

func (r *LotteryRepository) FindRoundByID(ctx context.Context, id string) (domain.Round, error) {
	found, err := r.dao.FindRoundByID(ctx, id, false)
	if err != nil {
		return domain.Round{}, fmt.Errorf("r.dao.FindRoundByID -> %w", err)
	}

	return roundToDomain(found), nil
}

func (r *LotteryRepository) LockRound(ctx context.Context, id string) (domain.Round, error) {
	found, err := r.dao.FindRoundByID(ctx, id, true)
	if err != nil {
		return domain.Round{}, fmt.Errorf("r.dao.FindRoundByID -> %w", err)
	}

	return roundToDomain(found), nil
}

func (r *LotteryRepository) MaxRoundNumber(ctx context.Context) (int, error) {
	n, err := r.dao.MaxRoundNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("r.dao.MaxRoundNumber -> %w", err)
	}

	return n, nil
}

func (r *LotteryRepository) CreateRound(ctx context.Context, round domain.Round) (domain.Round, error) {
	created, err := r.dao.InsertRound(ctx, roundToDao(round))
	if err != nil {
		return domain.Round{}, fmt.Errorf("r.dao.InsertRound -> %w", err)
	}

	return roundToDomain(created), nil
}

func (r *LotteryRepository) UpdateRoundState(ctx context.Context, round domain.Round) (domain.Round, error) {
	saved, err := r.dao.UpdateRoundState(ctx, roundToDao(round))
	if err != nil {
		return domain.Round{}, fmt.Errorf("r.dao.UpdateRoundState -> %w", err)
	}

	return roundToDomain(saved), nil
}

func (r *LotteryRepository) ListRounds(ctx context.Context, limit int) ([]domain.Round, error) {
	found, err := r.dao.ListRounds(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListRounds -> %w", err)
	}

	rounds := make([]domain.Round, 0, len(found))
	for _, round := range found {
		rounds = append(rounds, roundToDomain(round))
	}

	return rounds, nil
}

func (r *LotteryRepository) CountCodes(ctx context.Context, roundID string) (int, error) {
	n, err := r.dao.CountCodes(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountCodes -> %w", err)
	}

	return int(n), nil
}

func (r *LotteryRepository) MaxCodeNumber(ctx context.Context, roundID string) (int, error) {
	n, err := r.dao.MaxCodeNumber(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.MaxCodeNumber -> %w", err)
	}

	return n, nil
}

func (r *LotteryRepository) CreateCode(ctx context.Context, code domain.LotteryCode) (domain.LotteryCode, error) {
	created, err := r.dao.InsertCode(ctx, codeToDao(code))
	if err != nil {
		return domain.LotteryCode{}, fmt.Errorf("r.dao.InsertCode -> %w", err)
	}

	return codeToDomain(created), nil
}

func (r *LotteryRepository) FindCodeByPaymentID(ctx context.Context, paymentID string) (domain.LotteryCode, error) {
	found, err := r.dao.FindCodeByPaymentID(ctx, paymentID)
	if err != nil {
		return domain.LotteryCode{}, fmt.Errorf("r.dao.FindCodeByPaymentID -> %w", err)
	}

	return codeToDomain(found), nil
}

func (r *LotteryRepository) FindCodeByValue(ctx context.Context, code string) (domain.LotteryCode, error) {
	found, err := r.dao.FindCodeByValue(ctx, code)
	if err != nil {
		return domain.LotteryCode{}, fmt.Errorf("r.dao.FindCodeByValue -> %w", err)
	}

	return codeToDomain(found), nil
}

func (r *LotteryRepository) FindCodeInRound(ctx context.Context, roundID, code string) (domain.LotteryCode, error) {
	found, err := r.dao.FindCodeInRound(ctx, roundID, code)
	if err != nil {
		return domain.LotteryCode{}, fmt.Errorf("r.dao.FindCodeInRound -> %w", err)
	}

	return codeToDomain(found), nil
}

func (r *LotteryRepository) ListCodesByRound(ctx context.Context, roundID string) ([]domain.LotteryCode, error) {
	found, err := r.dao.ListCodesByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListCodesByRound -> %w", err)
	}

	return codesToDomain(found), nil
}

func (r *LotteryRepository) ListCodesByUser(ctx context.Context, userID string) ([]domain.LotteryCode, error) {
	found, err := r.dao.ListCodesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListCodesByUser -> %w", err)
	}

	return codesToDomain(found), nil
}

func (r *LotteryRepository) CountWinners(ctx context.Context, roundID string) (int, error) {
	n, err := r.dao.CountWinners(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountWinners -> %w", err)
	}

	return int(n), nil
}

func (r *LotteryRepository) WinnerExists(ctx context.Context, roundID, code string) (bool, error) {
	exists, err := r.dao.WinnerExists(ctx, roundID, code)
	if err != nil {
		return false, fmt.Errorf("r.dao.WinnerExists -> %w", err)
	}

	return exists, nil
}

func (r *LotteryRepository) CreateWinner(ctx context.Context, winner domain.Winner) (domain.Winner, error) {
	created, err := r.dao.InsertWinner(ctx, dao.Winner{
		ID:          winner.ID,
		RoundID:     winner.RoundID,
		LotteryCode: winner.LotteryCode,
		CodeNumber:  winner.CodeNumber,
		UserID:      winner.UserID,
		DrawDate:    winner.DrawDate,
		PrizeAmount: winner.PrizeAmount,
		PrizeType:   winner.PrizeType,
	})
	if err != nil {
		return domain.Winner{}, fmt.Errorf("r.dao.InsertWinner -> %w", err)
	}

	return winnerToDomain(created), nil
}

func (r *LotteryRepository) ListWinnersByRound(ctx context.Context, roundID string) ([]domain.Winner, error) {
	found, err := r.dao.ListWinnersByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListWinnersByRound -> %w", err)
	}

	winners := make([]domain.Winner, 0, len(found))
	for _, w := range found {
		winners = append(winners, winnerToDomain(w))
	}

	return winners, nil
}

func (r *LotteryRepository) AppendLog(ctx context.Context, entry domain.TransactionLog) error {
	if _, err := r.dao.InsertLog(ctx, dao.TransactionLog{
		UserID:   entry.UserID,
		Action:   entry.Action,
		Details:  entry.Details,
		Metadata: entry.Metadata,
	}); err != nil {
		return fmt.Errorf("r.dao.InsertLog -> %w", err)
	}

	return nil
}

func (r *LotteryRepository) ListLogs(ctx context.Context, limit int) ([]domain.TransactionLog, error) {
	found, err := r.dao.ListLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListLogs -> %w", err)
	}

	logs := make([]domain.TransactionLog, 0, len(found))
	for _, l := range found {
		logs = append(logs, domain.TransactionLog{
			ID:        l.ID,
			UserID:    l.UserID,
			Action:    l.Action,
			Details:   l.Details,
			Metadata:  l.Metadata,
			CreatedAt: l.CreatedAt,
		})
	}

	return logs, nil
}

func settingsToDao(s domain.Settings) dao.Settings {
	return dao.Settings{
		ID:           s.ID,
		Capacity:     s.Capacity,
		EntryPrice:   s.EntryPrice,
		WinnersCount: s.WinnersCount,
		Status:       string(s.Status),
		PrizeType:    s.PrizeType,
		DrawDate:     s.DrawDate,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func settingsToDomain(s dao.Settings) domain.Settings {
	return domain.Settings{
		ID:           s.ID,
		Capacity:     s.Capacity,
		EntryPrice:   s.EntryPrice,
		WinnersCount: s.WinnersCount,
		Status:       domain.LotteryStatus(s.Status),
		PrizeType:    s.PrizeType,
		DrawDate:     s.DrawDate,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func roundToDao(r domain.Round) dao.Round {
	return dao.Round{
		ID:           r.ID,
		Number:       r.Number,
		Capacity:     r.Capacity,
		EntryPrice:   r.EntryPrice,
		WinnersCount: r.WinnersCount,
		Status:       string(r.Status),
		StartedAt:    r.StartedAt,
		ClosedAt:     r.ClosedAt,
		DrawDate:     r.DrawDate,
	}
}

func roundToDomain(r dao.Round) domain.Round {
	return domain.Round{
		ID:           r.ID,
		Number:       r.Number,
		Capacity:     r.Capacity,
		EntryPrice:   r.EntryPrice,
		WinnersCount: r.WinnersCount,
		Status:       domain.LotteryStatus(r.Status),
		StartedAt:    r.StartedAt,
		ClosedAt:     r.ClosedAt,
		DrawDate:     r.DrawDate,
	}
}

func codeToDao(c domain.LotteryCode) dao.LotteryCode {
	return dao.LotteryCode{
		ID:         c.ID,
		Code:       c.Code,
		CodeNumber: c.CodeNumber,
		RoundID:    c.RoundID,
		UserID:     c.UserID,
		PaymentID:  c.PaymentID,
		CreatedAt:  c.CreatedAt,
	}
}

func codeToDomain(c dao.LotteryCode) domain.LotteryCode {
	return domain.LotteryCode{
		ID:         c.ID,
		Code:       c.Code,
		CodeNumber: c.CodeNumber,
		RoundID:    c.RoundID,
		UserID:     c.UserID,
		PaymentID:  c.PaymentID,
		CreatedAt:  c.CreatedAt,
	}
}

func codesToDomain(found []dao.LotteryCode) []domain.LotteryCode {
	codes := make([]domain.LotteryCode, 0, len(found))
	for _, c := range found {
		codes = append(codes, codeToDomain(c))
	}

	return codes
}

func winnerToDomain(w dao.Winner) domain.Winner {
	return domain.Winner{
		ID:          w.ID,
		UserID:      w.UserID,
		RoundID:     w.RoundID,
		LotteryCode: w.LotteryCode,
		CodeNumber:  w.CodeNumber,
		DrawDate:    w.DrawDate,
		PrizeAmount: w.PrizeAmount,
		PrizeType:   w.PrizeType,
		CreatedAt:   w.CreatedAt,
	}
}
