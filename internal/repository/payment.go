package repository

import (
	"context"
	"fmt"

	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/repository/dao"
)

var (
	ErrPaymentNotFound      = dao.ErrPaymentNotFound
	ErrPaymentTransactionID = dao.ErrPaymentTransactionID
)

type PaymentDAO interface {
	Insert(ctx context.Context, payment dao.Payment) (dao.Payment, error)
	Save(ctx context.Context, payment dao.Payment) (dao.Payment, error)
	FailPending(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (dao.Payment, error)
	FindByAuthority(ctx context.Context, authority string) (dao.Payment, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]dao.Payment, error)
	ListByRound(ctx context.Context, roundID string) ([]dao.Payment, error)
	SumSuccessful(ctx context.Context, roundID string) (int64, error)
	RevenueByRound(ctx context.Context) ([]dao.RoundRevenue, error)
}

type PaymentRepository struct {
	dao PaymentDAO
}

func NewPaymentRepository(dao PaymentDAO) *PaymentRepository {
	return &PaymentRepository{
		dao: dao,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(payment))
	if err != nil {
		return domain.Payment{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *PaymentRepository) Save(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	saved, err := r.dao.Save(ctx, r.domainToDao(payment))
	if err != nil {
		return domain.Payment{}, fmt.Errorf("r.dao.Save -> %w", err)
	}

	return r.daoToDomain(saved), nil
}

func (r *PaymentRepository) FailPending(ctx context.Context, id string) (bool, error) {
	ok, err := r.dao.FailPending(ctx, id)
	if err != nil {
		return false, fmt.Errorf("r.dao.FailPending -> %w", err)
	}

	return ok, nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (domain.Payment, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *PaymentRepository) FindByAuthority(ctx context.Context, authority string) (domain.Payment, error) {
	found, err := r.dao.FindByAuthority(ctx, authority)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("r.dao.FindByAuthority -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Payment, error) {
	found, err := r.dao.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListByUser -> %w", err)
	}

	return r.listToDomain(found), nil
}

func (r *PaymentRepository) ListByRound(ctx context.Context, roundID string) ([]domain.Payment, error) {
	found, err := r.dao.ListByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListByRound -> %w", err)
	}

	return r.listToDomain(found), nil
}

func (r *PaymentRepository) SumSuccessful(ctx context.Context, roundID string) (int64, error) {
	sum, err := r.dao.SumSuccessful(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.SumSuccessful -> %w", err)
	}

	return sum, nil
}

// RevenueByRound returns successful payment totals keyed by round id. Only
// the payment fields of each RoundFinance are filled.
func (r *PaymentRepository) RevenueByRound(ctx context.Context) (map[string]domain.RoundFinance, error) {
	rows, err := r.dao.RevenueByRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.RevenueByRound -> %w", err)
	}

	revenue := make(map[string]domain.RoundFinance, len(rows))
	for _, row := range rows {
		revenue[row.RoundID] = domain.RoundFinance{
			RoundID:            row.RoundID,
			SuccessfulPayments: int(row.Payments),
			Revenue:            row.Revenue,
		}
	}

	return revenue, nil
}

func (r *PaymentRepository) listToDomain(found []dao.Payment) []domain.Payment {
	payments := make([]domain.Payment, 0, len(found))
	for _, p := range found {
		payments = append(payments, r.daoToDomain(p))
	}

	return payments
}

func (r *PaymentRepository) domainToDao(p domain.Payment) dao.Payment {
	return dao.Payment{
		ID:            p.ID,
		UserID:        p.UserID,
		RoundID:       p.RoundID,
		Amount:        p.Amount,
		Status:        string(p.Status),
		Authority:     p.Authority,
		TransactionID: p.TransactionID,
		RefID:         p.RefID,
		PaymentDate:   p.PaymentDate,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r *PaymentRepository) daoToDomain(p dao.Payment) domain.Payment {
	return domain.Payment{
		ID:            p.ID,
		UserID:        p.UserID,
		RoundID:       p.RoundID,
		Amount:        p.Amount,
		Status:        domain.PaymentStatus(p.Status),
		Authority:     p.Authority,
		TransactionID: p.TransactionID,
		RefID:         p.RefID,
		PaymentDate:   p.PaymentDate,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
