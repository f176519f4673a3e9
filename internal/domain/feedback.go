package domain

import "time"

type FeedbackStatus string

const (
	FeedbackNew  FeedbackStatus = "NEW"
	FeedbackRead FeedbackStatus = "READ"
	FeedbackDone FeedbackStatus = "DONE"
)

func (s FeedbackStatus) IsValid() bool {
	switch s {
	case FeedbackNew, FeedbackRead, FeedbackDone:
		return true
	}

	return false
}

// Feedback is a message left through the public contact form.
type Feedback struct {
	ID        string         `json:"id"`
	Name      *string        `json:"name"`
	Mobile    *string        `json:"mobile"`
	Message   string         `json:"message"`
	Status    FeedbackStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type FeedbackInput struct {
	Name    string
	Mobile  string
	Message string
}
