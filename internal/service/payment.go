package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lotterydesk/lottery-api/internal/domain"
)

// GatewayStatusOK is the status a gateway callback carries for a completed
// checkout. Anything else means the user cancelled.
const GatewayStatusOK = "OK"

type PaymentGateway interface {
	RequestPayment(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error)
	// VerifyPayment confirms the charge and returns the gateway reference id.
	VerifyPayment(ctx context.Context, amount int64, authority string) (string, error)
}

type PaymentService struct {
	lottery  *LotteryService
	payments PaymentRepository
	users    UserRepository
	gateway  PaymentGateway
	now      func() time.Time
}

func NewPaymentService(lottery *LotteryService, payments PaymentRepository, users UserRepository, gateway PaymentGateway) *PaymentService {
	return &PaymentService{
		lottery:  lottery,
		payments: payments,
		users:    users,
		gateway:  gateway,
		now:      time.Now,
	}
}

// CreatePayment opens a gateway checkout for one entry into the active
// round at that round's entry price.
func (s *PaymentService) CreatePayment(ctx context.Context, userID string) (domain.Payment, domain.CheckoutSession, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.Payment{}, domain.CheckoutSession{}, fmt.Errorf("s.users.FindByID -> %w", err)
	}

	settings, err := s.lottery.GetSettings(ctx)
	if err != nil {
		return domain.Payment{}, domain.CheckoutSession{}, err
	}
	if settings.Status != domain.StatusOpen {
		return domain.Payment{}, domain.CheckoutSession{}, ErrLotteryClosed
	}

	round, err := s.lottery.GetOrCreateActiveRound(ctx)
	if err != nil {
		return domain.Payment{}, domain.CheckoutSession{}, err
	}

	progress, err := s.lottery.progress(ctx, round)
	if err != nil {
		return domain.Payment{}, domain.CheckoutSession{}, err
	}
	if progress.Remaining == 0 {
		return domain.Payment{}, domain.CheckoutSession{}, fmt.Errorf("%w: round %d", ErrCapacityFull, round.Number)
	}

	payment, err := s.payments.Create(ctx, domain.Payment{
		UserID:        user.ID,
		RoundID:       round.ID,
		Amount:        round.EntryPrice,
		Status:        domain.PaymentPending,
		TransactionID: newTransactionID(s.now()),
	})
	if err != nil {
		return domain.Payment{}, domain.CheckoutSession{}, fmt.Errorf("s.payments.Create -> %w", err)
	}

	session, err := s.gateway.RequestPayment(ctx, domain.CheckoutRequest{
		Amount:      payment.Amount,
		Description: fmt.Sprintf("Lottery round %d entry", round.Number),
		Mobile:      user.Mobile,
		OrderID:     payment.TransactionID,
	})
	if err != nil {
		_, _ = s.markFailed(ctx, payment, domain.ActionPaymentFailed, fmt.Sprintf("gateway request failed: %v", err))
		return domain.Payment{}, domain.CheckoutSession{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	payment.Authority = session.Authority
	payment, err = s.payments.Save(ctx, payment)
	if err != nil {
		return domain.Payment{}, domain.CheckoutSession{}, fmt.Errorf("s.payments.Save -> %w", err)
	}

	s.lottery.auditBestEffort(ctx, &payment.UserID, domain.ActionPaymentCreated,
		fmt.Sprintf("Payment created. transactionId=%s, amount=%d, round=%d", payment.TransactionID, payment.Amount, round.Number),
		map[string]any{"paymentId": payment.ID, "authority": payment.Authority},
	)

	return payment, session, nil
}

// VerifyPayment handles the gateway callback for authority.
func (s *PaymentService) VerifyPayment(ctx context.Context, authority, status string) (domain.PaymentOutcome, error) {
	authority = strings.TrimSpace(authority)
	if authority == "" {
		return domain.PaymentOutcome{}, validationErr("authority is required")
	}

	payment, err := s.payments.FindByAuthority(ctx, authority)
	if err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("s.payments.FindByAuthority -> %w", err)
	}

	switch payment.Status {
	case domain.PaymentSuccess:
		return s.settled(ctx, payment)
	case domain.PaymentFailed:
		return domain.PaymentOutcome{Payment: payment}, ErrPaymentNotPending
	}

	if status != GatewayStatusOK {
		current, failed := s.markFailed(ctx, payment, domain.ActionPaymentFailed, "payment cancelled by user")
		if !failed && current.Status == domain.PaymentSuccess {
			return s.settled(ctx, current)
		}
		return domain.PaymentOutcome{Payment: current}, ErrPaymentCancelled
	}

	refID, err := s.gateway.VerifyPayment(ctx, payment.Amount, authority)
	if err != nil {
		current, failed := s.markFailed(ctx, payment, domain.ActionPaymentVerifyFailed, fmt.Sprintf("verification failed: %v", err))
		if !failed && current.Status == domain.PaymentSuccess {
			return s.settled(ctx, current)
		}
		return domain.PaymentOutcome{Payment: current}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	outcome, err := s.lottery.IssueCodeForPayment(ctx, payment.ID, refID)
	if err != nil {
		zap.L().Error("payment verified but no lottery code issued",
			zap.String("payment_id", payment.ID),
			zap.String("ref_id", refID),
			zap.Error(err),
		)
		return domain.PaymentOutcome{Payment: payment}, err
	}

	return outcome, nil
}

// markFailed fails payment only while it is still PENDING. A concurrent
// callback may have settled it in the meantime; the stored row is returned
// as is and false is reported.
func (s *PaymentService) markFailed(ctx context.Context, payment domain.Payment, action, reason string) (domain.Payment, bool) {
	failed, err := s.payments.FailPending(ctx, payment.ID)
	if err != nil {
		zap.L().Error("failed to mark payment as failed", zap.String("payment_id", payment.ID), zap.Error(err))
		return payment, false
	}

	current, err := s.payments.FindByID(ctx, payment.ID)
	if err != nil {
		zap.L().Error("failed to reload payment", zap.String("payment_id", payment.ID), zap.Error(err))
		current = payment
		if failed {
			current.Status = domain.PaymentFailed
		}
	}
	if !failed {
		return current, false
	}

	s.lottery.auditBestEffort(ctx, &payment.UserID, action,
		fmt.Sprintf("transactionId=%s. %s", payment.TransactionID, reason),
		map[string]any{"paymentId": payment.ID, "authority": payment.Authority},
	)

	return current, true
}

// settled returns the code already issued for a successful payment.
func (s *PaymentService) settled(ctx context.Context, payment domain.Payment) (domain.PaymentOutcome, error) {
	refID := ""
	if payment.RefID != nil {
		refID = *payment.RefID
	}

	return s.lottery.IssueCodeForPayment(ctx, payment.ID, refID)
}

// newTransactionID builds ids like TXN-LZ3K9QX1-3F9A0C2B.
func newTransactionID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	return fmt.Sprintf("TXN-%s-%s",
		strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)),
		strings.ToUpper(random),
	)
}
