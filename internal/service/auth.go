package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/repository"
)

const (
	otpDigits     = 6
	otpCandidates = 3
)

var (
	MobilePattern = regexp.MustCompile(`^09\d{9}$`)
	otpPattern    = regexp.MustCompile(`^\d{6}$`)
)

type RateLimiter interface {
	// Allow consumes one request for key and reports when the caller may
	// retry if the budget is spent.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type OTPSender interface {
	SendOTP(ctx context.Context, mobile, code string) error
}

type AuthService struct {
	repo    UserRepository
	limiter RateLimiter
	sender  OTPSender
	conf    *config.OTPConfig
	now     func() time.Time
}

func NewAuthService(repo UserRepository, limiter RateLimiter, sender OTPSender, conf *config.OTPConfig) *AuthService {
	return &AuthService{
		repo:    repo,
		limiter: limiter,
		sender:  sender,
		conf:    conf,
		now:     time.Now,
	}
}

// SendOTP texts a fresh one-time code to mobile and returns its expiry.
// Unknown numbers get an inactive user that VerifyOTP activates.
func (s *AuthService) SendOTP(ctx context.Context, mobile string) (time.Time, error) {
	if !MobilePattern.MatchString(mobile) {
		return time.Time{}, validationErr("mobile must look like 09XXXXXXXXX")
	}

	allowed, retryAfter, err := s.limiter.Allow(ctx, "otp:"+mobile)
	if err != nil {
		zap.L().Warn("otp rate limiter unavailable, allowing request", zap.Error(err))
	} else if !allowed {
		return time.Time{}, &RateLimitError{RetryAfter: retryAfter}
	}

	user, err := s.findOrCreateUser(ctx, mobile)
	if err != nil {
		return time.Time{}, err
	}

	code, err := generateOTP()
	if err != nil {
		return time.Time{}, fmt.Errorf("generateOTP -> %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return time.Time{}, fmt.Errorf("bcrypt.GenerateFromPassword -> %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.conf.TTL)
	if _, err = s.repo.CreateOTP(ctx, domain.OTP{
		UserID:    user.ID,
		Mobile:    mobile,
		CodeHash:  string(hash),
		ExpiresAt: expiresAt,
	}); err != nil {
		return time.Time{}, fmt.Errorf("s.repo.CreateOTP -> %w", err)
	}

	if err = s.sender.SendOTP(ctx, mobile, code); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrSMSDelivery, err)
	}

	if deleted, err := s.repo.DeleteOTPsBefore(ctx, now.Add(-s.conf.Retention)); err != nil {
		zap.L().Warn("failed to prune old otps", zap.Error(err))
	} else if deleted > 0 {
		zap.L().Debug("pruned old otps", zap.Int64("count", deleted))
	}

	return expiresAt, nil
}

// VerifyOTP checks code against the latest pending codes of mobile and
// activates the user on success.
func (s *AuthService) VerifyOTP(ctx context.Context, mobile, code string) (domain.User, error) {
	if !MobilePattern.MatchString(mobile) {
		return domain.User{}, validationErr("mobile must look like 09XXXXXXXXX")
	}
	if !otpPattern.MatchString(code) {
		return domain.User{}, validationErr("code must be %d digits", otpDigits)
	}

	user, err := s.repo.FindByMobile(ctx, mobile)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByMobile -> %w", err)
	}

	otps, err := s.repo.FindPendingOTPs(ctx, user.ID, s.now(), otpCandidates)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindPendingOTPs -> %w", err)
	}

	var matched *domain.OTP
	for i := range otps {
		if bcrypt.CompareHashAndPassword([]byte(otps[i].CodeHash), []byte(code)) == nil {
			matched = &otps[i]
			break
		}
	}
	if matched == nil {
		return domain.User{}, ErrInvalidOTP
	}

	if err = s.repo.MarkOTPVerified(ctx, matched.ID); err != nil {
		return domain.User{}, fmt.Errorf("s.repo.MarkOTPVerified -> %w", err)
	}

	if !user.IsActive {
		user.IsActive = true
		if user, err = s.repo.Save(ctx, user); err != nil {
			return domain.User{}, fmt.Errorf("s.repo.Save -> %w", err)
		}
	}

	return user, nil
}

func (s *AuthService) Precheck(ctx context.Context, mobile string) (domain.Precheck, error) {
	if !MobilePattern.MatchString(mobile) {
		return domain.Precheck{}, validationErr("mobile must look like 09XXXXXXXXX")
	}

	user, err := s.repo.FindByMobile(ctx, mobile)
	if errors.Is(err, repository.ErrUserNotFound) {
		return domain.Precheck{}, nil
	}
	if err != nil {
		return domain.Precheck{}, fmt.Errorf("s.repo.FindByMobile -> %w", err)
	}

	return domain.Precheck{Exists: true, Registered: user.IsRegistered()}, nil
}

func (s *AuthService) findOrCreateUser(ctx context.Context, mobile string) (domain.User, error) {
	user, err := s.repo.FindByMobile(ctx, mobile)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return domain.User{}, fmt.Errorf("s.repo.FindByMobile -> %w", err)
	}

	user, err = s.repo.Create(ctx, domain.User{Mobile: mobile})
	if errors.Is(err, repository.ErrUserMobileExists) {
		user, err = s.repo.FindByMobile(ctx, mobile)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return user, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
