package dao

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultSettingsID = "default"

type TransactionLog struct {
	ID       string  `gorm:"primaryKey;size:36"`
	UserID   *string `gorm:"size:36;index"`
	Action   string  `gorm:"not null;index"`
	Details  string  `gorm:"type:text;not null"`
	Metadata datatypes.JSONMap

	CreatedAt time.Time `gorm:"not null;index"`
}

func (TransactionLog) TableName() string {
	return "transaction_logs"
}

func (l *TransactionLog) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	return nil
}

func (d *LotteryDAO) InsertLog(ctx context.Context, entry TransactionLog) (TransactionLog, error) {
	if err := conn(ctx, d.db).Create(&entry).Error; err != nil {
		return TransactionLog{}, err
	}

	return entry, nil
}

func (d *LotteryDAO) ListLogs(ctx context.Context, limit int) ([]TransactionLog, error) {
	var logs []TransactionLog
	err := conn(ctx, d.db).Order("created_at DESC").Limit(limit).Find(&logs).Error

	return logs, err
}
