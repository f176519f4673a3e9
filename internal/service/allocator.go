package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/pkg/lotterycode"
	"github.com/lotterydesk/lottery-api/internal/repository"
)

// maxAllocationAttempts bounds the retries on unique violations when two
// writers race for the same code number.
const maxAllocationAttempts = 10

// AllocateCode mints the next sequential code of round for userID. When
// paymentID already owns a code that code is returned unchanged.
func (s *LotteryService) AllocateCode(ctx context.Context, round domain.Round, userID string, paymentID *string) (domain.Allocation, error) {
	var (
		alloc domain.Allocation
		ob    outbox
	)
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		alloc, err = s.allocate(ctx, round.ID, userID, paymentID, domain.ActionCodeIssued, &ob)
		return err
	})
	if err != nil {
		return domain.Allocation{}, err
	}

	s.publish(&ob)

	return alloc, nil
}

// GiftCodes issues count free codes to one user. Either all codes are
// created or none.
func (s *LotteryService) GiftCodes(ctx context.Context, req domain.GiftRequest) ([]domain.LotteryCode, domain.Round, error) {
	if req.Count < 1 {
		return nil, domain.Round{}, validationErr("count must be at least 1")
	}

	user, err := s.findRecipient(ctx, req.Recipient)
	if err != nil {
		return nil, domain.Round{}, err
	}

	var (
		codes []domain.LotteryCode
		round domain.Round
		ob    outbox
	)
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		roundID := req.RoundID
		if roundID == "" {
			open, err := s.repo.FindOpenRound(ctx)
			if err != nil {
				return fmt.Errorf("s.repo.FindOpenRound -> %w", err)
			}
			roundID = open.ID
		}

		round, err = s.repo.LockRound(ctx, roundID)
		if err != nil {
			return fmt.Errorf("s.repo.LockRound -> %w", err)
		}
		if !round.IsOpen() {
			return fmt.Errorf("%w: round %d is %s", ErrInvalidRoundState, round.Number, round.Status)
		}

		existing, err := s.repo.CountCodes(ctx, round.ID)
		if err != nil {
			return fmt.Errorf("s.repo.CountCodes -> %w", err)
		}
		if existing+req.Count > round.Capacity {
			return fmt.Errorf("%w: %d of %d slots left", ErrCapacityFull, round.Capacity-existing, round.Capacity)
		}

		codes = make([]domain.LotteryCode, 0, req.Count)
		for i := 0; i < req.Count; i++ {
			alloc, err := s.allocate(ctx, round.ID, user.ID, nil, domain.ActionCodeGifted, &ob)
			if err != nil {
				return err
			}
			codes = append(codes, alloc.Code)
			round = alloc.Round
		}

		return nil
	})
	if err != nil {
		return nil, domain.Round{}, err
	}

	s.publish(&ob)

	return codes, round, nil
}

// IssueCodeForPayment turns a gateway-confirmed payment into a lottery code
// in the active round. Calling it again for the same payment returns the
// code issued the first time.
func (s *LotteryService) IssueCodeForPayment(ctx context.Context, paymentID, refID string) (domain.PaymentOutcome, error) {
	var (
		outcome domain.PaymentOutcome
		ob      outbox
	)
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		payment, err := s.payments.FindByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("s.payments.FindByID -> %w", err)
		}

		if payment.Status == domain.PaymentSuccess {
			code, err := s.repo.FindCodeByPaymentID(ctx, payment.ID)
			if err != nil {
				return fmt.Errorf("s.repo.FindCodeByPaymentID -> %w", err)
			}
			outcome = domain.PaymentOutcome{Payment: payment, Code: &code}

			return nil
		}
		if payment.Status != domain.PaymentPending {
			return ErrPaymentNotPending
		}

		round, err := s.activeRound(ctx, &ob)
		if err != nil {
			return err
		}

		alloc, err := s.allocate(ctx, round.ID, payment.UserID, &payment.ID, domain.ActionCodeIssued, &ob)
		if err != nil {
			return err
		}
		if alloc.Existing {
			// Another callback issued this payment's code; it owns the settlement.
			payment, err = s.payments.FindByID(ctx, payment.ID)
			if err != nil {
				return fmt.Errorf("s.payments.FindByID -> %w", err)
			}
			outcome = domain.PaymentOutcome{Payment: payment, Code: &alloc.Code}

			return nil
		}

		now := s.now()
		payment.Status = domain.PaymentSuccess
		payment.RefID = &refID
		payment.PaymentDate = &now
		payment.RoundID = alloc.Round.ID
		payment, err = s.payments.Save(ctx, payment)
		if err != nil {
			return fmt.Errorf("s.payments.Save -> %w", err)
		}

		err = s.audit(ctx, &payment.UserID, domain.ActionPaymentSuccess,
			fmt.Sprintf("Payment verified. refId=%s, amount=%d, code=%s", refID, payment.Amount, alloc.Code.Code),
			map[string]any{"paymentId": payment.ID, "refId": refID, "code": alloc.Code.Code},
		)
		if err != nil {
			return err
		}

		outcome = domain.PaymentOutcome{Payment: payment, Code: &alloc.Code}

		return nil
	})
	if err != nil {
		return domain.PaymentOutcome{}, err
	}

	s.publish(&ob)

	return outcome, nil
}

// allocate must run inside a transaction. It locks the round row, so
// allocations for one round are serialized; the retry loop still guards
// against writers that do not take the lock.
func (s *LotteryService) allocate(ctx context.Context, roundID, userID string, paymentID *string, action string, ob *outbox) (domain.Allocation, error) {
	round, err := s.repo.LockRound(ctx, roundID)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("s.repo.LockRound -> %w", err)
	}

	if paymentID != nil {
		existing, err := s.repo.FindCodeByPaymentID(ctx, *paymentID)
		if err == nil {
			return domain.Allocation{Code: existing, Round: round, Existing: true}, nil
		}
		if !errors.Is(err, ErrCodeNotFound) {
			return domain.Allocation{}, fmt.Errorf("s.repo.FindCodeByPaymentID -> %w", err)
		}
	}

	last, err := s.repo.MaxCodeNumber(ctx, round.ID)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("s.repo.MaxCodeNumber -> %w", err)
	}
	if last+1 > round.Capacity {
		return domain.Allocation{}, fmt.Errorf("%w: round %d holds %d codes", ErrCapacityFull, round.Number, round.Capacity)
	}
	if !round.IsOpen() {
		return domain.Allocation{}, fmt.Errorf("%w: round %d is %s", ErrInvalidRoundState, round.Number, round.Status)
	}

	code, err := s.insertNextCode(ctx, round, last+1, userID, paymentID)
	if errors.Is(err, repository.ErrPaymentHasCode) {
		existing, err := s.repo.FindCodeByPaymentID(ctx, *paymentID)
		if err != nil {
			return domain.Allocation{}, fmt.Errorf("s.repo.FindCodeByPaymentID -> %w", err)
		}

		return domain.Allocation{Code: existing, Round: round, Existing: true}, nil
	}
	if err != nil {
		return domain.Allocation{}, err
	}

	details := fmt.Sprintf("Round=%d. code=%s codeNumber=%d", round.Number, code.Code, code.CodeNumber)
	if action == domain.ActionCodeGifted {
		details += " giftedByAdmin=true"
	}
	metadata := map[string]any{
		"roundId":     round.ID,
		"roundNumber": round.Number,
		"code":        code.Code,
		"codeNumber":  code.CodeNumber,
	}
	if paymentID != nil {
		metadata["paymentId"] = *paymentID
	}
	if err = s.audit(ctx, &userID, action, details, metadata); err != nil {
		return domain.Allocation{}, err
	}
	ob.add(domain.EventCodeIssued, round, &code, code.CreatedAt)

	alloc := domain.Allocation{Code: code, Round: round}

	issued, err := s.repo.CountCodes(ctx, round.ID)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("s.repo.CountCodes -> %w", err)
	}
	if issued >= round.Capacity {
		closed, err := s.closeRound(ctx, round, "capacity", ob)
		if err != nil {
			return domain.Allocation{}, err
		}
		alloc.Round = closed
		alloc.RoundClosed = true
	}

	return alloc, nil
}

func (s *LotteryService) insertNextCode(ctx context.Context, round domain.Round, next int, userID string, paymentID *string) (domain.LotteryCode, error) {
	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		if next > round.Capacity {
			return domain.LotteryCode{}, fmt.Errorf("%w: round %d holds %d codes", ErrCapacityFull, round.Number, round.Capacity)
		}

		now := s.now()
		code, err := s.repo.CreateCode(ctx, domain.LotteryCode{
			Code:       lotterycode.Format(next, round.Capacity, round.Number, now),
			CodeNumber: next,
			UserID:     userID,
			RoundID:    round.ID,
			PaymentID:  paymentID,
			CreatedAt:  now,
		})
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, ErrDuplicateCode) {
			return domain.LotteryCode{}, fmt.Errorf("s.repo.CreateCode -> %w", err)
		}

		zap.L().Warn("lottery code collision, retrying with next number",
			zap.String("round_id", round.ID),
			zap.Int("code_number", next),
			zap.Int("attempt", attempt),
		)
		next++
	}

	return domain.LotteryCode{}, fmt.Errorf("%w: gave up after %d attempts in round %d", ErrDuplicateCode, maxAllocationAttempts, round.Number)
}

func (s *LotteryService) findRecipient(ctx context.Context, recipient domain.GiftRecipient) (domain.User, error) {
	mobile := strings.TrimSpace(recipient.Mobile)
	instagramID := strings.TrimPrefix(strings.TrimSpace(recipient.InstagramID), "@")

	var (
		user domain.User
		err  error
	)
	switch {
	case mobile != "":
		user, err = s.users.FindByMobile(ctx, mobile)
	case instagramID != "":
		user, err = s.users.FindByInstagramID(ctx, instagramID)
	default:
		return domain.User{}, validationErr("mobile or instagramId is required")
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("s.users.Find -> %w", err)
	}

	return user, nil
}
