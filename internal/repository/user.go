package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/repository/dao"
)

var (
	ErrUserMobileExists    = dao.ErrUserMobileExists
	ErrUserInstagramExists = dao.ErrUserInstagramExists
	ErrUserNotFound        = dao.ErrUserNotFound
)

type UserDAO interface {
	Insert(ctx context.Context, user dao.User) (dao.User, error)
	Save(ctx context.Context, user dao.User) (dao.User, error)
	FindByID(ctx context.Context, id string) (dao.User, error)
	FindByMobile(ctx context.Context, mobile string) (dao.User, error)
	FindByInstagramID(ctx context.Context, instagramID string) (dao.User, error)
	InsertOTP(ctx context.Context, otp dao.OTP) (dao.OTP, error)
	FindPendingOTPs(ctx context.Context, userID string, now time.Time, limit int) ([]dao.OTP, error)
	MarkOTPVerified(ctx context.Context, id string) error
	DeleteOTPsBefore(ctx context.Context, before time.Time) (int64, error)
}

type UserRepository struct {
	dao UserDAO
}

func NewUserRepository(dao UserDAO) *UserRepository {
	return &UserRepository{
		dao: dao,
	}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	saved, err := r.dao.Save(ctx, r.domainToDao(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Save -> %w", err)
	}

	return r.daoToDomain(saved), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) FindByMobile(ctx context.Context, mobile string) (domain.User, error) {
	found, err := r.dao.FindByMobile(ctx, mobile)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByMobile -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) FindByInstagramID(ctx context.Context, instagramID string) (domain.User, error) {
	found, err := r.dao.FindByInstagramID(ctx, instagramID)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByInstagramID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) CreateOTP(ctx context.Context, otp domain.OTP) (domain.OTP, error) {
	created, err := r.dao.InsertOTP(ctx, dao.OTP{
		UserID:    otp.UserID,
		Mobile:    otp.Mobile,
		CodeHash:  otp.CodeHash,
		ExpiresAt: otp.ExpiresAt,
	})
	if err != nil {
		return domain.OTP{}, fmt.Errorf("r.dao.InsertOTP -> %w", err)
	}

	return otpToDomain(created), nil
}

func (r *UserRepository) FindPendingOTPs(ctx context.Context, userID string, now time.Time, limit int) ([]domain.OTP, error) {
	found, err := r.dao.FindPendingOTPs(ctx, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindPendingOTPs -> %w", err)
	}

	otps := make([]domain.OTP, 0, len(found))
	for _, o := range found {
		otps = append(otps, otpToDomain(o))
	}

	return otps, nil
}

func (r *UserRepository) MarkOTPVerified(ctx context.Context, id string) error {
	if err := r.dao.MarkOTPVerified(ctx, id); err != nil {
		return fmt.Errorf("r.dao.MarkOTPVerified -> %w", err)
	}

	return nil
}

func (r *UserRepository) DeleteOTPsBefore(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.dao.DeleteOTPsBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("r.dao.DeleteOTPsBefore -> %w", err)
	}

	return n, nil
}

func (r *UserRepository) domainToDao(u domain.User) dao.User {
	return dao.User{
		ID:            u.ID,
		Mobile:        u.Mobile,
		InstagramID:   u.InstagramID,
		Name:          u.Name,
		TermsAccepted: u.TermsAccepted,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (r *UserRepository) daoToDomain(u dao.User) domain.User {
	return domain.User{
		ID:            u.ID,
		Mobile:        u.Mobile,
		InstagramID:   u.InstagramID,
		Name:          u.Name,
		TermsAccepted: u.TermsAccepted,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func otpToDomain(o dao.OTP) domain.OTP {
	return domain.OTP{
		ID:        o.ID,
		UserID:    o.UserID,
		Mobile:    o.Mobile,
		CodeHash:  o.CodeHash,
		ExpiresAt: o.ExpiresAt,
		Verified:  o.Verified,
		CreatedAt: o.CreatedAt,
	}
}
