package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/domain"
)

type LotteryRepository interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	FindSettings(ctx context.Context) (domain.Settings, error)
	CreateSettingsIfAbsent(ctx context.Context, settings domain.Settings) (domain.Settings, bool, error)
	SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)

	FindOpenRound(ctx context.Context) (domain.Round, error)
	FindRoundByID(ctx context.Context, id string) (domain.Round, error)
	LockRound(ctx context.Context, id string) (domain.Round, error)
	MaxRoundNumber(ctx context.Context) (int, error)
	CreateRound(ctx context.Context, round domain.Round) (domain.Round, error)
	UpdateRoundState(ctx context.Context, round domain.Round) (domain.Round, error)
	ListRounds(ctx context.Context, limit int) ([]domain.Round, error)

	CountCodes(ctx context.Context, roundID string) (int, error)
	MaxCodeNumber(ctx context.Context, roundID string) (int, error)
	CreateCode(ctx context.Context, code domain.LotteryCode) (domain.LotteryCode, error)
	FindCodeByPaymentID(ctx context.Context, paymentID string) (domain.LotteryCode, error)
	FindCodeByValue(ctx context.Context, code string) (domain.LotteryCode, error)
	FindCodeInRound(ctx context.Context, roundID, code string) (domain.LotteryCode, error)
	ListCodesByRound(ctx context.Context, roundID string) ([]domain.LotteryCode, error)
	ListCodesByUser(ctx context.Context, userID string) ([]domain.LotteryCode, error)

	CountWinners(ctx context.Context, roundID string) (int, error)
	WinnerExists(ctx context.Context, roundID, code string) (bool, error)
	CreateWinner(ctx context.Context, winner domain.Winner) (domain.Winner, error)
	ListWinnersByRound(ctx context.Context, roundID string) ([]domain.Winner, error)

	AppendLog(ctx context.Context, entry domain.TransactionLog) error
	ListLogs(ctx context.Context, limit int) ([]domain.TransactionLog, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	Save(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	FailPending(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (domain.Payment, error)
	FindByAuthority(ctx context.Context, authority string) (domain.Payment, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Payment, error)
	ListByRound(ctx context.Context, roundID string) ([]domain.Payment, error)
	SumSuccessful(ctx context.Context, roundID string) (int64, error)
	RevenueByRound(ctx context.Context) (map[string]domain.RoundFinance, error)
}

type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindByMobile(ctx context.Context, mobile string) (domain.User, error)
	FindByInstagramID(ctx context.Context, instagramID string) (domain.User, error)
	CreateOTP(ctx context.Context, otp domain.OTP) (domain.OTP, error)
	FindPendingOTPs(ctx context.Context, userID string, now time.Time, limit int) ([]domain.OTP, error)
	MarkOTPVerified(ctx context.Context, id string) error
	DeleteOTPsBefore(ctx context.Context, before time.Time) (int64, error)
}

type WinnerNotifier interface {
	NotifyWinner(ctx context.Context, mobile, code string) error
}

type EventPublisher interface {
	Publish(event domain.LotteryEvent)
}

const (
	PrizePolicyNone         = "none"
	PrizePolicyRevenueSplit = "revenue_split"
)

// LotteryService owns settings, rounds, code allocation and winner
// registration. Every state change is written to the transaction log in the
// same database transaction.
type LotteryService struct {
	repo     LotteryRepository
	payments PaymentRepository
	users    UserRepository
	notifier WinnerNotifier
	events   EventPublisher
	conf     *config.LotteryConfig
	now      func() time.Time
}

func NewLotteryService(
	repo LotteryRepository,
	payments PaymentRepository,
	users UserRepository,
	notifier WinnerNotifier,
	events EventPublisher,
	conf *config.LotteryConfig,
) *LotteryService {
	if conf == nil {
		conf = &config.LotteryConfig{PrizePolicy: PrizePolicyNone}
	}

	return &LotteryService{
		repo:     repo,
		payments: payments,
		users:    users,
		notifier: notifier,
		events:   events,
		conf:     conf,
		now:      time.Now,
	}
}

// outbox collects events raised inside a transaction. They are published
// only after it commits.
type outbox struct {
	events []domain.LotteryEvent
}

func (o *outbox) add(eventType domain.EventType, round domain.Round, code *domain.LotteryCode, at time.Time) {
	event := domain.LotteryEvent{
		Type:        eventType,
		RoundID:     round.ID,
		RoundNumber: round.Number,
		Status:      round.Status,
		At:          at,
	}
	if code != nil {
		event.Code = code.Code
		event.CodeNumber = code.CodeNumber
	}

	o.events = append(o.events, event)
}

func (s *LotteryService) publish(o *outbox) {
	if s.events == nil {
		return
	}

	for _, event := range o.events {
		s.events.Publish(event)
	}
}

func (s *LotteryService) audit(ctx context.Context, userID *string, action, details string, metadata map[string]any) error {
	err := s.repo.AppendLog(ctx, domain.TransactionLog{
		UserID:   userID,
		Action:   action,
		Details:  details,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("s.repo.AppendLog -> %w", err)
	}

	return nil
}

// auditBestEffort is for entries written outside a transaction whose failure
// must not change the outcome of the operation.
func (s *LotteryService) auditBestEffort(ctx context.Context, userID *string, action, details string, metadata map[string]any) {
	if err := s.audit(ctx, userID, action, details, metadata); err != nil {
		zap.L().Error("failed to append transaction log",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
