// Package srs implements the SM-2 family spaced-repetition scheduler used to
// decide when a flashcard is due again. Everything here is a pure
// calculation: the caller supplies the clock.
package srs

import (
	"math"
	"time"
)

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3

	FirstInterval  = 1
	SecondInterval = 6
	// MaxInterval is roughly a century. It keeps NextReview representable
	// as a time.Duration offset and interval_days within a 32 bit column.
	MaxInterval = 36500

	Day = 24 * time.Hour
)

// State is the scheduling state of a single card. A zero LastReview means the
// card was never reviewed; a zero NextReview means it is due right away.
type State struct {
	Repetitions int
	EaseFactor  float64
	Interval    int
	LastReview  time.Time
	NextReview  time.Time
}

// NewState returns the state of a freshly created card.
func NewState() State {
	return State{
		Repetitions: 0,
		EaseFactor:  DefaultEaseFactor,
		Interval:    FirstInterval,
	}
}

// Due reports whether the card should be presented at now.
func (s State) Due(now time.Time) bool {
	return s.NextReview.IsZero() || !s.NextReview.After(now)
}

// Reviewed reports whether the card has been reviewed at least once.
func (s State) Reviewed() bool {
	return !s.LastReview.IsZero()
}

func (s State) normalized() State {
	s.EaseFactor = clampEase(s.EaseFactor)
	s.Interval = min(max(s.Interval, FirstInterval), MaxInterval)
	s.Repetitions = max(s.Repetitions, 0)
	return s
}

func clampEase(ef float64) float64 {
	if math.IsNaN(ef) || ef < MinEaseFactor {
		return MinEaseFactor
	}
	return ef
}

// easeDelta is the SM-2 ease adjustment for a recall quality between 0 and 5.
func easeDelta(quality float64) float64 {
	d := 5 - quality
	return 0.1 - d*(0.08+d*0.02)
}

// Schedule computes the state that follows rating the card r at now.
func Schedule(cur State, r Rating, now time.Time) (State, error) {
	if !r.IsValid() {
		return State{}, ErrInvalidRating
	}
	next := cur.normalized()

	if !r.Passed() {
		next.Repetitions = 0
		next.Interval = FirstInterval
	} else {
		next.Repetitions++
		next.EaseFactor = clampEase(next.EaseFactor + easeDelta(ratingQuality[r]))

		switch next.Repetitions {
		case 1:
			next.Interval = FirstInterval
		case 2:
			next.Interval = SecondInterval
		default:
			next.Interval = growInterval(next.Interval, next.EaseFactor)
		}
	}

	next.LastReview = now
	next.NextReview = now.Add(time.Duration(next.Interval) * Day)
	return next, nil
}

func growInterval(interval int, ef float64) int {
	product := float64(interval) * ef
	// Drop float noise such as 23.000000000000004 before taking the ceiling.
	product = math.Round(product*1e6) / 1e6
	if product >= MaxInterval {
		return MaxInterval
	}
	return max(int(math.Ceil(product)), FirstInterval)
}

// Preview returns the outcome of every possible rating, keyed by rating.
func Preview(cur State, now time.Time) map[Rating]State {
	out := make(map[Rating]State, len(Ratings))
	for _, r := range Ratings {
		// Ratings only holds valid values.
		out[r], _ = Schedule(cur, r, now)
	}
	return out
}
