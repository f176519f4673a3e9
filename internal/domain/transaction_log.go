package domain

import "time"

const (
	ActionCodeIssued          = "LOTTERY_CODE_ISSUED"
	ActionCodeGifted          = "LOTTERY_CODE_GIFTED"
	ActionRoundCreated        = "LOTTERY_ROUND_CREATED"
	ActionRoundClosed         = "LOTTERY_ROUND_CLOSED"
	ActionRoundReset          = "LOTTERY_RESET_NEW_ROUND"
	ActionSettingsCreated     = "LOTTERY_NEW_ROUND_ON_SETTINGS_CREATE"
	ActionSettingsUpdated     = "LOTTERY_NEW_ROUND_ON_SETTINGS_UPDATE"
	ActionWinnerSelected      = "LOTTERY_WINNER_SELECTED"
	ActionDrawCompleted       = "LOTTERY_DRAW_COMPLETED"
	ActionWinnerSMSFailed     = "WINNER_SMS_FAILED"
	ActionPaymentCreated      = "PAYMENT_CREATED"
	ActionPaymentSuccess      = "PAYMENT_SUCCESS"
	ActionPaymentFailed       = "PAYMENT_FAILED"
	ActionPaymentVerifyFailed = "PAYMENT_VERIFICATION_FAILED"
)

type TransactionLog struct {
	ID        string         `json:"id"`
	UserID    *string        `json:"userId,omitempty"`
	Action    string         `json:"action"`
	Details   string         `json:"details"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
