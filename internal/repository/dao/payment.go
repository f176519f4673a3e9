package dao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentTransactionID = errors.New("payment transaction id already exists")
)

type Payment struct {
	ID            string `gorm:"primaryKey;size:36"`
	UserID        string `gorm:"not null;size:36;index"`
	RoundID       string `gorm:"not null;size:36;index"`
	Amount        int64  `gorm:"not null"`
	Status        string `gorm:"not null;index;default:PENDING"`
	Authority     string `gorm:"not null;index"`
	TransactionID string `gorm:"not null;uniqueIndex:uniq_payments_transaction_id"`
	RefID         *string
	PaymentDate   *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	return nil
}

// RoundRevenue aggregates successful payments of one round.
type RoundRevenue struct {
	RoundID  string
	Payments int64
	Revenue  int64
}

type PaymentDAO struct {
	db *gorm.DB
}

func NewPaymentDAO(db *gorm.DB) *PaymentDAO {
	return &PaymentDAO{
		db: db,
	}
}

func (d *PaymentDAO) Insert(ctx context.Context, payment Payment) (Payment, error) {
	err := conn(ctx, d.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&payment).Error
	})
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return Payment{}, ErrPaymentTransactionID
		}

		return Payment{}, err
	}

	return payment, nil
}

func (d *PaymentDAO) Save(ctx context.Context, payment Payment) (Payment, error) {
	if err := conn(ctx, d.db).Save(&payment).Error; err != nil {
		return Payment{}, err
	}

	return payment, nil
}

// FailPending moves a PENDING payment to FAILED. It reports false when the
// row was no longer PENDING, leaving it untouched.
func (d *PaymentDAO) FailPending(ctx context.Context, id string) (bool, error) {
	result := conn(ctx, d.db).Model(&Payment{}).
		Where("id = ? AND status = ?", id, "PENDING").
		Update("status", "FAILED")
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (d *PaymentDAO) FindByID(ctx context.Context, id string) (Payment, error) {
	return d.find(ctx, "id = ?", id)
}

func (d *PaymentDAO) FindByAuthority(ctx context.Context, authority string) (Payment, error) {
	return d.find(ctx, "authority = ?", authority)
}

func (d *PaymentDAO) find(ctx context.Context, query string, args ...any) (Payment, error) {
	var payment Payment
	result := conn(ctx, d.db).Where(query, args...).Order("created_at DESC").First(&payment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Payment{}, ErrPaymentNotFound
		}

		return Payment{}, result.Error
	}

	return payment, nil
}

func (d *PaymentDAO) ListByUser(ctx context.Context, userID string, limit int) ([]Payment, error) {
	var payments []Payment
	err := conn(ctx, d.db).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&payments).Error

	return payments, err
}

func (d *PaymentDAO) ListByRound(ctx context.Context, roundID string) ([]Payment, error) {
	var payments []Payment
	err := conn(ctx, d.db).Where("round_id = ?", roundID).Order("created_at DESC").Find(&payments).Error

	return payments, err
}

func (d *PaymentDAO) SumSuccessful(ctx context.Context, roundID string) (int64, error) {
	var sum int64
	err := conn(ctx, d.db).Model(&Payment{}).
		Where("round_id = ? AND status = ?", roundID, "SUCCESS").
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error

	return sum, err
}

func (d *PaymentDAO) RevenueByRound(ctx context.Context) ([]RoundRevenue, error) {
	var rows []RoundRevenue
	err := conn(ctx, d.db).Model(&Payment{}).
		Select("round_id, COUNT(*) AS payments, COALESCE(SUM(amount), 0) AS revenue").
		Where("status = ?", "SUCCESS").
		Group("round_id").
		Scan(&rows).Error

	return rows, err
}
