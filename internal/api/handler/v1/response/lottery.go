package response

import (
	"time"

	"github.com/lotterydesk/lottery-api/internal/domain"
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type SendOTPResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

type CheckoutResponse struct {
	Payment    domain.Payment `json:"payment"`
	PaymentURL string         `json:"paymentUrl"`
}

type SettingsUpdateResponse struct {
	Settings domain.Settings `json:"settings"`
	Round    domain.Round    `json:"round"`
}

type CloseRoundResponse struct {
	Round  *domain.Round `json:"round,omitempty"`
	Closed bool          `json:"closed"`
}

type GiftResponse struct {
	Codes []domain.LotteryCode `json:"codes"`
	Round domain.Round         `json:"round"`
}

type Healthcheck struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type FeedbackListResponse struct {
	Items []domain.Feedback `json:"items"`
}
