package dao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserMobileExists    = errors.New("user mobile already exists")
	ErrUserInstagramExists = errors.New("instagram id already used by another user")
	ErrUserNotFound        = errors.New("user not found")
)

const uniqUsersInstagram = "uniq_users_instagram_id"

type User struct {
	ID            string  `gorm:"primaryKey;size:36"`
	Mobile        string  `gorm:"not null;size:11;uniqueIndex:uniq_users_mobile"`
	InstagramID   *string `gorm:"uniqueIndex:uniq_users_instagram_id"`
	Name          *string
	TermsAccepted bool `gorm:"not null;default:false"`
	IsActive      bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	return nil
}

type OTP struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"not null;size:36;index"`
	Mobile    string    `gorm:"not null;size:11"`
	CodeHash  string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	Verified  bool      `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;index"`
}

func (OTP) TableName() string {
	return "otps"
}

func (o *OTP) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	return nil
}

type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{
		db: db,
	}
}

func (d *UserDAO) Insert(ctx context.Context, user User) (User, error) {
	err := conn(ctx, d.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&user).Error
	})
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == uniqUsersInstagram {
				return User{}, ErrUserInstagramExists
			}

			return User{}, ErrUserMobileExists
		}

		return User{}, err
	}

	return user, nil
}

func (d *UserDAO) Save(ctx context.Context, user User) (User, error) {
	err := conn(ctx, d.db).Transaction(func(tx *gorm.DB) error {
		return tx.Save(&user).Error
	})
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return User{}, ErrUserInstagramExists
		}

		return User{}, err
	}

	return user, nil
}

func (d *UserDAO) FindByID(ctx context.Context, id string) (User, error) {
	return d.find(ctx, "id = ?", id)
}

func (d *UserDAO) FindByMobile(ctx context.Context, mobile string) (User, error) {
	return d.find(ctx, "mobile = ?", mobile)
}

func (d *UserDAO) FindByInstagramID(ctx context.Context, instagramID string) (User, error) {
	return d.find(ctx, "instagram_id = ?", instagramID)
}

func (d *UserDAO) find(ctx context.Context, query string, args ...any) (User, error) {
	var user User
	result := conn(ctx, d.db).Where(query, args...).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, result.Error
	}

	return user, nil
}

func (d *UserDAO) InsertOTP(ctx context.Context, otp OTP) (OTP, error) {
	if err := conn(ctx, d.db).Create(&otp).Error; err != nil {
		return OTP{}, err
	}

	return otp, nil
}

// FindPendingOTPs returns unverified, unexpired codes, newest first.
func (d *UserDAO) FindPendingOTPs(ctx context.Context, userID string, now time.Time, limit int) ([]OTP, error) {
	var otps []OTP
	err := conn(ctx, d.db).
		Where("user_id = ? AND verified = ? AND expires_at > ?", userID, false, now).
		Order("created_at DESC").
		Limit(limit).
		Find(&otps).Error

	return otps, err
}

func (d *UserDAO) MarkOTPVerified(ctx context.Context, id string) error {
	return conn(ctx, d.db).Model(&OTP{}).Where("id = ?", id).Update("verified", true).Error
}

func (d *UserDAO) DeleteOTPsBefore(ctx context.Context, before time.Time) (int64, error) {
	result := conn(ctx, d.db).Where("created_at < ?", before).Delete(&OTP{})

	return result.RowsAffected, result.Error
}
