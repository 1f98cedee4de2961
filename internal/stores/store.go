// Package stores persists flashcards and study statistics. Postgres is the
// production backend; SQLite serves single-user installs and tests.
package stores

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("flashcard not found")
	// ErrConflict means the card changed between the read and the write of
	// a review. The caller may re-read and try again.
	ErrConflict = errors.New("flashcard was modified concurrently")
)

// Store is implemented by PGStore and SQLiteStore. Every card operation is
// scoped to an owner; a card that belongs to somebody else is ErrNotFound.
type Store interface {
	AddCard(ctx context.Context, card *Flashcard) error
	GetCard(ctx context.Context, ownerID, cardID string) (*Flashcard, error)
	ListCards(ctx context.Context, ownerID, deckID string) ([]Flashcard, error)
	// UpdateContent never touches the scheduling fields or the version.
	UpdateContent(ctx context.Context, ownerID, cardID string, upd ContentUpdate) (*Flashcard, error)
	DeleteCard(ctx context.Context, ownerID, cardID string) error

	DueCards(ctx context.Context, ownerID string, now time.Time, limit int) ([]Flashcard, error)
	CountDue(ctx context.Context, ownerID string, now time.Time) (int, error)
	DifficultCards(ctx context.Context, ownerID string, maxEase float64, minReps int, limit int) ([]Flashcard, error)

	// SaveReview writes card's scheduling state if the stored version still
	// equals card.Version, and records the review in the owner's study
	// stats in the same transaction. On success card.Version is bumped.
	SaveReview(ctx context.Context, card *Flashcard, correct bool) error
	GetStudyStats(ctx context.Context, ownerID string) (*StudyStats, error)

	Close()
}

// Columns read for every card, in scan order.
const cardColumns = `id, owner_id, deck_id, question, answer, title, tags,
	repetitions, ease_factor, interval_days, last_review, next_review,
	version, created_at`
