package model

import "time"

// TurnEvent describes one completed conversation turn for analytics consumers.
type TurnEvent struct {
	User      string    `json:"user"`
	From      Step      `json:"from"`
	To        Step      `json:"to"`
	Genre     string    `json:"genre,omitempty"`
	Outcome   string    `json:"outcome"`
	MovieIDs  []int64   `json:"movie_ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
