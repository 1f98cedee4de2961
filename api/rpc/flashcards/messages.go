// Package flashcards holds the wire messages and connect plumbing of
// flashcards.v1.FlashcardService. Messages are plain structs carried by a
// JSON codec; timestamps are RFC 3339 and absent timestamps are omitted.
package flashcards

import "time"

type Flashcard struct {
	Id          string     `json:"id"`
	DeckId      string     `json:"deck_id,omitempty"`
	Question    string     `json:"question"`
	Answer      string     `json:"answer"`
	Title       string     `json:"title,omitempty"`
	Tags        []string   `json:"tags"`
	Repetitions int        `json:"repetitions"`
	EaseFactor  float64    `json:"ease_factor"`
	Interval    int        `json:"interval"`
	LastReview  *time.Time `json:"last_review,omitempty"`
	NextReview  *time.Time `json:"next_review,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateFlashcardRequest struct {
	DeckId   string   `json:"deck_id,omitempty"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Title    string   `json:"title,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// GetFlashcardsRequest fetches one card when CardId is set, otherwise every
// card of the caller, optionally restricted to a deck.
type GetFlashcardsRequest struct {
	CardId string `json:"card_id,omitempty"`
	DeckId string `json:"deck_id,omitempty"`
}

type Flashcards struct {
	Cards []*Flashcard `json:"cards"`
}

// UpdateFlashcardRequest only carries content; fields left out are kept.
type UpdateFlashcardRequest struct {
	CardId   string    `json:"card_id"`
	Question *string   `json:"question,omitempty"`
	Answer   *string   `json:"answer,omitempty"`
	Title    *string   `json:"title,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

type DeleteFlashcardRequest struct {
	CardId string `json:"card_id"`
}

type DeleteFlashcardResponse struct{}

type GetDueCardsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type DueCardsResponse struct {
	Cards        []*Flashcard `json:"cards"`
	OverdueCount int          `json:"overdue_count"`
}

type RecordStudyResultRequest struct {
	CardId string `json:"card_id"`
	Rating int    `json:"rating"`
}

type GetCardInfoRequest struct {
	CardId string `json:"card_id"`
}

// ScheduledOutcome is what a rating would do to a card if given now.
type ScheduledOutcome struct {
	Rating     int       `json:"rating"`
	Name       string    `json:"name"`
	Interval   int       `json:"interval"`
	EaseFactor float64   `json:"ease_factor"`
	NextReview time.Time `json:"next_review"`
}

type CardInfo struct {
	Card           *Flashcard          `json:"card"`
	Retrievability float64             `json:"retrievability"`
	Outcomes       []*ScheduledOutcome `json:"outcomes"`
}

type GetStudyStatsRequest struct{}

type StudyStats struct {
	StudiedToday  int        `json:"studied_today"`
	CorrectToday  int        `json:"correct_today"`
	TotalStudied  int        `json:"total_studied"`
	TotalCorrect  int        `json:"total_correct"`
	Streak        int        `json:"streak"`
	LastStudyDate *time.Time `json:"last_study_date,omitempty"`
}

type GetDifficultCardsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type DifficultCard struct {
	Card            *Flashcard `json:"card"`
	DifficultyScore float64    `json:"difficulty_score"`
}

type DifficultCards struct {
	Cards []*DifficultCard `json:"cards"`
}
