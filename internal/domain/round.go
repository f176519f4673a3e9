package domain

import "time"

// Round is one numbered raffle. Capacity, EntryPrice and WinnersCount are
// frozen when the round is opened.
type Round struct {
	ID           string        `json:"id"`
	Number       int           `json:"roundNumber"`
	Capacity     int           `json:"capacity"`
	EntryPrice   int64         `json:"entryPrice"`
	WinnersCount int           `json:"winnersCount"`
	Status       LotteryStatus `json:"status"`
	StartedAt    time.Time     `json:"startedAt"`
	ClosedAt     *time.Time    `json:"closedAt,omitempty"`
	DrawDate     *time.Time    `json:"drawDate,omitempty"`
}

func NewRoundFromSettings(number int, s Settings, now time.Time) Round {
	return Round{
		Number:       number,
		Capacity:     s.Capacity,
		EntryPrice:   s.EntryPrice,
		WinnersCount: s.WinnersCount,
		Status:       StatusOpen,
		StartedAt:    now,
	}
}

func (r *Round) IsOpen() bool {
	return r.Status == StatusOpen
}

func (r *Round) Close(now time.Time) {
	r.Status = StatusClosed
	if r.ClosedAt == nil {
		r.ClosedAt = &now
	}
}

func (r *Round) MarkDrawn(now time.Time) {
	r.Status = StatusDrawn
	r.DrawDate = &now
	if r.ClosedAt == nil {
		r.ClosedAt = &now
	}
}

// RoundProgress is a round together with how many codes and winners it holds.
type RoundProgress struct {
	Round       Round `json:"round"`
	CodesIssued int   `json:"codesIssued"`
	Remaining   int   `json:"remaining"`
	Winners     int   `json:"winners"`
}

func NewRoundProgress(r Round, codes, winners int) RoundProgress {
	remaining := r.Capacity - codes
	if remaining < 0 {
		remaining = 0
	}

	return RoundProgress{
		Round:       r,
		CodesIssued: codes,
		Remaining:   remaining,
		Winners:     winners,
	}
}
