package domain

import "time"

const SettingsID = "default"

const (
	DefaultCapacity     = 1000
	DefaultEntryPrice   = int64(50000)
	DefaultWinnersCount = 1
)

type LotteryStatus string

const (
	StatusOpen   LotteryStatus = "OPEN"
	StatusClosed LotteryStatus = "CLOSED"
	StatusDrawn  LotteryStatus = "DRAWN"
)

func (s LotteryStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusDrawn:
		return true
	}

	return false
}

// Settings holds the parameters copied into every new round.
type Settings struct {
	ID           string        `json:"id"`
	Capacity     int           `json:"capacity"`
	EntryPrice   int64         `json:"entryPrice"`
	WinnersCount int           `json:"winnersCount"`
	Status       LotteryStatus `json:"status"`
	PrizeType    *string       `json:"prizeType,omitempty"`
	DrawDate     *time.Time    `json:"drawDate,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func DefaultSettings() Settings {
	return Settings{
		ID:           SettingsID,
		Capacity:     DefaultCapacity,
		EntryPrice:   DefaultEntryPrice,
		WinnersCount: DefaultWinnersCount,
		Status:       StatusOpen,
	}
}

type SettingsUpdate struct {
	Capacity     int
	EntryPrice   int64
	WinnersCount int
	Status       *LotteryStatus
	PrizeType    *string
}
