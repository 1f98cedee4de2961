package srs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRating = errors.New("rating must be between 1 (again) and 4 (easy)")

// Rating is the grade a learner gives their own recall right after
// attempting a card.
type Rating int

const (
	Again Rating = iota + 1 // forgot
	Hard
	Good
	Easy
)

var ratingNames = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}

// SM-2 quality (0-5) for each passing rating.
var ratingQuality = [...]float64{Hard: 3, Good: 4, Easy: 5}

// Ratings lists every valid rating, lowest first.
var Ratings = []Rating{Again, Hard, Good, Easy}

func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// Passed reports whether the rating counts as a successful recall.
func (r Rating) Passed() bool {
	return r >= Hard
}

// Correct is what the study statistics count as a correct answer.
func (r Rating) Correct() bool {
	return r >= Good
}

func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating accepts either the number ("1".."4") or the name of a rating.
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		r := Rating(n)
		if !r.IsValid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidRating, n)
		}
		return r, nil
	}
	for _, r := range Ratings {
		if ratingNames[r] == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}
