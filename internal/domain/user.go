package domain

import "time"

type User struct {
	ID            string    `json:"id"`
	Mobile        string    `json:"mobile"`
	InstagramID   *string   `json:"instagramId,omitempty"`
	Name          *string   `json:"name,omitempty"`
	TermsAccepted bool      `json:"termsAccepted"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsRegistered reports whether the user finished sign-up.
func (u User) IsRegistered() bool {
	return u.IsActive && u.TermsAccepted
}

type ProfileUpdate struct {
	Name          string
	InstagramID   string
	TermsAccepted bool
}

type OTP struct {
	ID        string
	UserID    string
	Mobile    string
	CodeHash  string
	ExpiresAt time.Time
	Verified  bool
	CreatedAt time.Time
}

type Precheck struct {
	Exists     bool `json:"exists"`
	Registered bool `json:"registered"`
}

type Dashboard struct {
	User        User           `json:"user"`
	Codes       []LotteryCode  `json:"codes"`
	Payments    []Payment      `json:"payments"`
	ActiveRound *RoundProgress `json:"activeRound,omitempty"`
}
