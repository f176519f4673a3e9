package domain

import "time"

type EventType string

const (
	EventCodeIssued       EventType = "code_issued"
	EventRoundOpened      EventType = "round_opened"
	EventRoundClosed      EventType = "round_closed"
	EventRoundDrawn       EventType = "round_drawn"
	EventWinnerRegistered EventType = "winner_registered"
)

// LotteryEvent is pushed to live subscribers after a state change commits.
type LotteryEvent struct {
	Type        EventType     `json:"type"`
	RoundID     string        `json:"roundId"`
	RoundNumber int           `json:"roundNumber"`
	Status      LotteryStatus `json:"status"`
	Code        string        `json:"code,omitempty"`
	CodeNumber  int           `json:"codeNumber,omitempty"`
	At          time.Time     `json:"at"`
}
