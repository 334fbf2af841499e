// Package model holds the data types shared across the application.
package model

import "time"

// Step is the position of a conversation in the recommendation dialogue.
type Step string

const (
	StepGreet     Step = "greet"
	StepAskGenre  Step = "ask_genre"
	StepRecommend Step = "recommend"
	StepDone      Step = "done"
)

// Session is the per-user conversation state.
// Genre is set whenever Step is StepRecommend or StepDone.
type Session struct {
	Step                Step      `json:"step"`
	Genre               string    `json:"genre,omitempty"`
	GenreID             int64     `json:"genreId,omitempty"`
	LastRecommendations []Movie   `json:"lastRecommendations"`
	ShownIDs            []int64   `json:"shownIds,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// NewSession returns the state of a user that has never written.
func NewSession() Session {
	return Session{Step: StepGreet, LastRecommendations: []Movie{}}
}

// Restart clears the genre and history and asks for a genre again.
func (s *Session) Restart() {
	s.Step = StepAskGenre
	s.Genre = ""
	s.GenreID = 0
	s.LastRecommendations = []Movie{}
	s.ShownIDs = nil
}

// RememberShown appends the ids of movies to the shown history.
func (s *Session) RememberShown(movies []Movie) {
	for _, m := range movies {
		s.ShownIDs = append(s.ShownIDs, m.ID)
	}
}
