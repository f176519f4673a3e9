package domain

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

type Payment struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	RoundID       string        `json:"roundId"`
	Amount        int64         `json:"amount"`
	Status        PaymentStatus `json:"status"`
	Authority     string        `json:"authority"`
	TransactionID string        `json:"transactionId"`
	RefID         *string       `json:"refId,omitempty"`
	PaymentDate   *time.Time    `json:"paymentDate,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// CheckoutRequest is what the payment gateway needs to open a session.
type CheckoutRequest struct {
	Amount      int64
	Description string
	Mobile      string
	OrderID     string
}

type CheckoutSession struct {
	Authority  string `json:"authority"`
	PaymentURL string `json:"paymentUrl"`
}

type PaymentOutcome struct {
	Payment Payment      `json:"payment"`
	Code    *LotteryCode `json:"code,omitempty"`
}
