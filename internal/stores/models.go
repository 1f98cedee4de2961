package stores

import (
	"time"

	"github.com/domino14/flashcard_server/internal/srs"
)

// Flashcard is a stored card with its scheduling state.
type Flashcard struct {
	ID       string
	OwnerID  string
	DeckID   string // empty when the card is not in a deck
	Question string
	Answer   string
	Title    string
	Tags     []string
	srs.State

	// Version is bumped by every scheduling write; see Store.SaveReview.
	Version   int64
	CreatedAt time.Time
}

// ContentUpdate holds the content fields an edit may change. Nil fields are
// left alone. Scheduling fields are deliberately absent.
type ContentUpdate struct {
	Question *string
	Answer   *string
	Title    *string
	Tags     *[]string
}

func (u ContentUpdate) Empty() bool {
	return u.Question == nil && u.Answer == nil && u.Title == nil && u.Tags == nil
}

func (u ContentUpdate) apply(c *Flashcard) {
	if u.Question != nil {
		c.Question = *u.Question
	}
	if u.Answer != nil {
		c.Answer = *u.Answer
	}
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Tags != nil {
		c.Tags = *u.Tags
	}
}

// StudyStats are per-user review counters.
type StudyStats struct {
	OwnerID       string
	StudiedToday  int
	CorrectToday  int
	TotalStudied  int
	TotalCorrect  int
	Streak        int
	LastStudyDate time.Time
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// RecordStudy returns the stats after one more review at `at`. Days are
// UTC days. Reviewing on the day after the last study extends the streak;
// a longer gap starts a new one.
func (s StudyStats) RecordStudy(correct bool, at time.Time) StudyStats {
	next := s
	switch {
	case s.LastStudyDate.IsZero():
		next.StudiedToday, next.CorrectToday, next.Streak = 0, 0, 1
	case sameDay(s.LastStudyDate, at):
		if next.Streak == 0 {
			next.Streak = 1
		}
	case sameDay(s.LastStudyDate.Add(24*time.Hour), at):
		next.StudiedToday, next.CorrectToday = 0, 0
		next.Streak++
	default:
		next.StudiedToday, next.CorrectToday, next.Streak = 0, 0, 1
	}
	next.StudiedToday++
	next.TotalStudied++
	if correct {
		next.CorrectToday++
		next.TotalCorrect++
	}
	next.LastStudyDate = at
	return next
}

// AsOf returns the stats as they read at now: the daily counters reset once
// the day of the last study is over, and the streak is broken after a
// missed day.
func (s StudyStats) AsOf(now time.Time) StudyStats {
	if s.LastStudyDate.IsZero() || sameDay(s.LastStudyDate, now) {
		return s
	}
	s.StudiedToday, s.CorrectToday = 0, 0
	if !sameDay(s.LastStudyDate.Add(24*time.Hour), now) {
		s.Streak = 0
	}
	return s
}
