package domain

import "time"

type LotteryCode struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	CodeNumber int       `json:"codeNumber"`
	UserID     string    `json:"userId"`
	RoundID    string    `json:"roundId"`
	PaymentID  *string   `json:"paymentId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type GiftRecipient struct {
	Mobile      string
	InstagramID string
}

type GiftRequest struct {
	Recipient GiftRecipient
	RoundID   string
	Count     int
}

type Allocation struct {
	Code        LotteryCode `json:"code"`
	Round       Round       `json:"round"`
	Existing    bool        `json:"existing"`
	RoundClosed bool        `json:"roundClosed"`
}
