package dao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrFeedbackNotFound = errors.New("feedback not found")

type Feedback struct {
	ID      string  `gorm:"primaryKey;size:36"`
	Name    *string `gorm:"size:100"`
	Mobile  *string `gorm:"size:11"`
	Message string  `gorm:"not null;type:text"`
	Status  string  `gorm:"not null;index;default:NEW"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}

func (f *Feedback) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	return nil
}

type FeedbackDAO struct {
	db *gorm.DB
}

func NewFeedbackDAO(db *gorm.DB) *FeedbackDAO {
	return &FeedbackDAO{
		db: db,
	}
}

func (d *FeedbackDAO) Insert(ctx context.Context, feedback Feedback) (Feedback, error) {
	if err := conn(ctx, d.db).Create(&feedback).Error; err != nil {
		return Feedback{}, err
	}

	return feedback, nil
}

// List returns the newest entries first. An empty status lists every entry.
func (d *FeedbackDAO) List(ctx context.Context, status string, limit int) ([]Feedback, error) {
	query := conn(ctx, d.db).Order("created_at DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var items []Feedback
	err := query.Find(&items).Error

	return items, err
}

func (d *FeedbackDAO) UpdateStatus(ctx context.Context, id, status string) (Feedback, error) {
	var feedback Feedback
	err := conn(ctx, d.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Feedback{}).Where("id = ?", id).Update("status", status)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrFeedbackNotFound
		}

		return tx.Where("id = ?", id).First(&feedback).Error
	})
	if err != nil {
		return Feedback{}, err
	}

	return feedback, nil
}
