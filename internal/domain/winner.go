package domain

import "time"

type Winner struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	RoundID     string    `json:"roundId"`
	LotteryCode string    `json:"lotteryCode"`
	CodeNumber  int       `json:"codeNumber"`
	DrawDate    time.Time `json:"drawDate"`
	PrizeAmount int64     `json:"prizeAmount"`
	PrizeType   *string   `json:"prizeType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type WinnerRegistration struct {
	Winner Winner `json:"winner"`
	Round  Round  `json:"round"`
}
