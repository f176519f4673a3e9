package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/lotterydesk/lottery-api/internal/repository"
)

var (
	ErrValidation = errors.New("validation failed")

	ErrSettingsNotFound = repository.ErrSettingsNotFound
	ErrRoundNotFound    = repository.ErrRoundNotFound
	ErrCodeNotFound     = repository.ErrCodeNotFound
	ErrUserNotFound     = repository.ErrUserNotFound
	ErrPaymentNotFound  = repository.ErrPaymentNotFound
	ErrFeedbackNotFound = repository.ErrFeedbackNotFound

	ErrCapacityFull      = errors.New("round capacity is full")
	ErrAlreadyWon        = errors.New("lottery code is already a winner of this round")
	ErrQuotaFull         = errors.New("round winners quota is full")
	ErrInvalidRoundState = errors.New("round state does not allow this operation")
	ErrLotteryClosed     = errors.New("lottery is not accepting entries")
	ErrPaymentNotPending = errors.New("payment is no longer pending")
	ErrPaymentCancelled  = errors.New("payment was cancelled")
	ErrInstagramTaken    = repository.ErrUserInstagramExists

	ErrDuplicateCode = repository.ErrDuplicateCode
	ErrRoundConflict = repository.ErrRoundConflict

	ErrGateway     = errors.New("payment gateway error")
	ErrSMSDelivery = errors.New("sms delivery failed")

	ErrInvalidOTP      = errors.New("invalid or expired otp code")
	ErrTooManyRequests = errors.New("too many requests")
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindTransient
	KindDownstream
	KindUnauthorized
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindTransient:
		return "TRANSIENT"
	case KindDownstream:
		return "DOWNSTREAM"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindRateLimited:
		return "RATE_LIMITED"
	}

	return "INTERNAL"
}

// KindOf classifies err for the transport layer.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrSettingsNotFound),
		errors.Is(err, ErrRoundNotFound),
		errors.Is(err, ErrCodeNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrFeedbackNotFound):
		return KindNotFound
	case errors.Is(err, ErrCapacityFull),
		errors.Is(err, ErrAlreadyWon),
		errors.Is(err, ErrQuotaFull),
		errors.Is(err, ErrInvalidRoundState),
		errors.Is(err, ErrLotteryClosed),
		errors.Is(err, ErrPaymentNotPending),
		errors.Is(err, ErrPaymentCancelled),
		errors.Is(err, ErrInstagramTaken):
		return KindConflict
	case errors.Is(err, ErrDuplicateCode), errors.Is(err, ErrRoundConflict):
		return KindTransient
	case errors.Is(err, ErrGateway), errors.Is(err, ErrSMSDelivery):
		return KindDownstream
	case errors.Is(err, ErrInvalidOTP):
		return KindUnauthorized
	case errors.Is(err, ErrTooManyRequests):
		return KindRateLimited
	}

	return KindInternal
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// RateLimitError is returned when a caller exceeded its request budget.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error {
	return ErrTooManyRequests
}
