package flashcards

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog/log"

	"github.com/domino14/flashcard_server/config"
	"github.com/domino14/flashcard_server/db/migrations"
	"github.com/domino14/flashcard_server/internal/srs"
	"github.com/domino14/flashcard_server/internal/stores"
)

var DefaultConfig = &config.Config{
	DefaultDueLimit:        20,
	DifficultEaseThreshold: 1.8,
	DifficultRepsThreshold: 2,
}

type FakeNower struct{ fakenow time.Time }

func (f FakeNower) Now() time.Time {
	return f.fakenow
}

func ctxForTests() context.Context {
	ctx := context.Background()
	ctx = log.Logger.WithContext(ctx)
	return ctx
}

func newTestService(t *testing.T) (*Service, *FakeNower) {
	t.Helper()
	store, err := stores.OpenSQLite(filepath.Join(t.TempDir(), "flashcards.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := migrations.SQLite(store.DB()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(store.Close)

	s := NewService(DefaultConfig, store)
	fakenower := &FakeNower{fakenow: time.Date(2024, 9, 22, 12, 0, 0, 0, time.UTC)}
	s.Nower = fakenower
	return s, fakenower
}

func addCard(t *testing.T, s *Service, owner, question string) *stores.Flashcard {
	t.Helper()
	card, err := s.CreateFlashcard(ctxForTests(), owner, NewCard{
		Question: question,
		Answer:   "answer to " + question,
	})
	if err != nil {
		t.Fatal(err)
	}
	return card
}

func isValidationError(err error, field string) bool {
	var verr *ValidationError
	return errors.As(err, &verr) && verr.Field == field
}

func TestCreateFlashcard(t *testing.T) {
	is := is.New(t)
	s, fakenower := newTestService(t)
	ctx := ctxForTests()

	card, err := s.CreateFlashcard(ctx, "cesar", NewCard{
		DeckID:   "capitals",
		Question: "  capital of France  ",
		Answer:   "Paris",
		Tags:     []string{"geo", " europe"},
	})
	is.NoErr(err)
	is.True(card.ID != "")
	is.Equal(card.Question, "capital of France")
	is.Equal(card.Tags, []string{"geo", "europe"})
	is.Equal(card.State, srs.NewState())
	is.Equal(card.Version, int64(1))
	is.Equal(card.CreatedAt, fakenower.fakenow)

	got, err := s.GetFlashcard(ctx, "cesar", card.ID)
	is.NoErr(err)
	is.Equal(got.DeckID, "capitals")
	is.True(got.Due(fakenower.fakenow))
}

func TestCreateFlashcardValidation(t *testing.T) {
	is := is.New(t)
	s, _ := newTestService(t)
	ctx := ctxForTests()

	_, err := s.CreateFlashcard(ctx, "cesar", NewCard{Question: "   ", Answer: "a"})
	is.True(isValidationError(err, "question"))

	_, err = s.CreateFlashcard(ctx, "cesar", NewCard{Question: "q"})
	is.True(isValidationError(err, "answer"))

	_, err = s.CreateFlashcard(ctx, "cesar", NewCard{Question: "q", Answer: "a", Tags: []string{""}})
	var verr *ValidationError
	is.True(errors.As(err, &verr))
	is.Equal(verr.Field, "tags[0]")

	_, err = s.CreateFlashcard(ctx, "", NewCard{Question: "q", Answer: "a"})
	is.True(isValidationError(err, "owner_id"))
}

func TestReviewSequence(t *testing.T) {
	is := is.New(t)
	s, fakenower := newTestService(t)
	ctx := ctxForTests()
	card := addCard(t, s, "cesar", "q1")
	start := fakenower.fakenow

	reviewed, err := s.RecordReview(ctx, "cesar", card.ID, srs.Good)
	is.NoErr(err)
	is.Equal(reviewed.Repetitions, 1)
	is.Equal(reviewed.Interval, 1)
	is.Equal(reviewed.EaseFactor, 2.5)
	is.Equal(reviewed.LastReview, start)
	is.Equal(reviewed.NextReview, start.Add(srs.Day))
	is.Equal(reviewed.Version, int64(2))

	fakenower.fakenow = start.Add(srs.Day)
	reviewed, err = s.RecordReview(ctx, "cesar", card.ID, srs.Good)
	is.NoErr(err)
	is.Equal(reviewed.Repetitions, 2)
	is.Equal(reviewed.Interval, 6)

	fakenower.fakenow = fakenower.fakenow.Add(6 * srs.Day)
	reviewed, err = s.RecordReview(ctx, "cesar", card.ID, srs.Good)
	is.NoErr(err)
	is.Equal(reviewed.Repetitions, 3)
	is.Equal(reviewed.Interval, 15)

	reviewed, err = s.RecordReview(ctx, "cesar", card.ID, srs.Again)
	is.NoErr(err)
	is.Equal(reviewed.Repetitions, 0)
	is.Equal(reviewed.Interval, 1)
	is.Equal(reviewed.EaseFactor, 2.5)

	stored, err := s.GetFlashcard(ctx, "cesar", card.ID)
	is.NoErr(err)
	is.Equal(stored.State, reviewed.State)
	is.Equal(stored.Version, int64(5))
}

func TestRecordReviewErrors(t *testing.T) {
	is := is.New(t)
	s, _ := newTestService(t)
	ctx := ctxForTests()
	card := addCard(t, s, "cesar", "q1")

	_, err := s.RecordReview(ctx, "cesar", card.ID, srs.Rating(0))
	is.True(isValidationError(err, "rating"))
	_, err = s.RecordReview(ctx, "cesar", card.ID, srs.Rating(5))
	is.True(isValidationError(err, "rating"))

	_, err = s.RecordReview(ctx, "cesar", "nope", srs.Good)
	is.True(errors.Is(err, stores.ErrNotFound))

	// Somebody else's card does not exist for this owner.
	_, err = s.RecordReview(ctx, "mina", card.ID, srs.Good)
	is.True(errors.Is(err, stores.ErrNotFound))

	stored, err := s.GetFlashcard(ctx, "cesar", card.ID)
	is.NoErr(err)
	is.Equal(stored.Version, int64(1))
}

func TestConcurrentReviewsBothApply(t *testing.T) {
	is := is.New(t)
	s, _ := newTestService(t)
	ctx := ctxForTests()
	card := addCard(t, s, "cesar", "q1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.RecordReview(ctx, "cesar", card.ID, srs.Good)
		}(i)
	}
	wg.Wait()
	is.NoErr(errs[0])
	is.NoErr(errs[1])

	stored, err := s.GetFlashcard(ctx, "cesar", card.ID)
	is.NoErr(err)
	is.Equal(stored.Repetitions, 2)
	is.Equal(stored.Interval, 6)
	is.Equal(stored.Version, int64(3))

	stats, err := s.StudyStats(ctx, "cesar")
	is.NoErr(err)
	is.Equal(stats.TotalStudied, 2)
}

// conflictStore fails the first n saves with ErrConflict.
type conflictStore struct {
	stores.Store
	conflicts int
}

func (c *conflictStore) SaveReview(ctx context.Context, card *stores.Flashcard, correct bool) error {
	if c.conflicts > 0 {
		c.conflicts--
		return stores.ErrConflict
	}
	return c.Store.SaveReview(ctx, card, correct)
}

func TestRecordReviewRetriesOnce(t *testing.T) {
	is := is.New(t)
	s, _ := newTestService(t)
	ctx := ctxForTests()
	card := addCard(t, s, "cesar", "q1")

	cs := &conflictStore{Store: s.Store, conflicts: 1}
	s.Store = cs
	reviewed, err := s.RecordReview(ctx, "cesar", card.ID, srs.Easy)
	is.NoErr(err)
	is.Equal(reviewed.Repetitions, 1)

	cs.conflicts = 2
	_, err = s.RecordReview(ctx, "cesar", card.ID, srs.Easy)
	is.True(errors.Is(err, stores.ErrConflict))

	stored, err := s.GetFlashcard(ctx, "cesar", card.ID)
	is.NoErr(err)
	is.Equal(stored.Repetitions, 1)
}

func TestDueCards(t *testing.T) {
	is := is.New(t)
	s, fakenower := newTestService(t)
	ctx := ctxForTests()
	start := fakenower.fakenow

	first := addCard(t, s, "cesar", "first")
	fakenower.fakenow = start.Add(time.Minute)
	second := addCard(t, s, "cesar", "second")
	fakenower.fakenow = start.Add(2 * time.Minute)
	third := addCard(t, s, "cesar", "third")
	addCard(t, s, "mina", "not yours")

	due, err := s.DueCards(ctx, "cesar", 20)
	is.NoErr(err)
	is.Equal(len(due.Cards), 3)
	is.Equal(due.Cards[0].ID, first.ID)
	is.Equal(due.Cards[1].ID, second.ID)
	is.Equal(due.Cards[2].ID, third.ID)
	is.Equal(due.OverdueCount, 3)

	_, err = s.RecordReview(ctx, "cesar", second.ID, srs.Good)
	is.NoErr(err)
	due, err = s.DueCards(ctx, "cesar", 20)
	is.NoErr(err)
	is.Equal(len(due.Cards), 2)

	due, err = s.DueCards(ctx, "cesar", 1)
	is.NoErr(err)
	is.Equal(len(due.Cards), 1)
	is.Equal(due.Cards[0].ID, first.ID)
	is.Equal(due.OverdueCount, 2)

	// A day later the reviewed card is back, behind the never-reviewed ones.
	fakenower.fakenow = fakenower.fakenow.Add(srs.Day)
	due, err = s.DueCards(ctx, "cesar", 20)
	is.NoErr(err)
	is.Equal(len(due.Cards), 3)
	is.Equal(due.Cards[2].ID, second.ID)

	for _, limit := range []int{0, -1, 101} {
		_, err = s.DueCards(ctx, "cesar", limit)
		is.True(isValidationError(err, "limit"))
	}
}

func TestOverdueCardLeavesQueueAfterReview(t *testing.T) {
	is := is.New(t)
	s, fakenower := newTestService(t)
	ctx := ctxForTests()
	card := addCard(t, s, "cesar", "q1")

	reviewed, err := s.RecordReview(ctx, "cesar", card.ID, srs.Good)
	is.NoErr(err)
	is.Equal(reviewed.Interval, 1)

	// Two days on, the card is a day overdue.
	fakenower.fakenow = fakenower.fakenow.Add(2 * srs.Day)
	due, err := s.DueCards(ctx, "cesar", 20)
	is.NoErr(err)
	is.Equal(len(due.Cards), 1)
	is.Equal(due.Cards[0].ID, card.ID)
	is.True(due.Cards[0].NextReview.Before(fakenower.fakenow))

	reviewed, err = s.RecordReview(ctx, "cesar", card.ID, srs.Good)
	is.NoErr(err)
	is.Equal(reviewed.Interval, 6)
	is.Equal(reviewed.NextReview, fakenower.fakenow.Add(6*srs.Day))

	due, err = s.DueCards(ctx, "cesar", 20)
	is.NoErr(err)
	is.Equal(len(due.Cards), 0)
	is.Equal(due.OverdueCount, 0)
}

func TestRepeatedEasyReviewsStayScheduled(t *testing.T) {
	is := is.New(t)
	s, fakenower := newTestService(t)
	ctx := ctxForTests()
	card := addCard(t, s, "cesar", "q1")

	var reviewed *stores.Flashcard
	for range 20 {
		var err error
		reviewed, err = s.RecordReview(ctx, "cesar", card.ID, srs.Easy)
		is.NoErr(err)
		is.True(reviewed.Interval <= srs.MaxInterval)
		is.Equal(reviewed.NextReview.Sub(reviewed.LastReview), time.Duration(reviewed.Interval)*srs.Day)
		is.True(!reviewed.Due(fakenower.fakenow))
	}
	is.Equal(reviewed.Interval, srs.MaxInterval)

	stored, err := s.GetFlashcard(ctx, "cesar", card.ID)
	is.NoErr(err)
	is.Equal(stored.State, reviewed.State)

	due, err := s.DueCards(ctx, "cesar", 20)
	is.NoErr(err)
	is.Equal(len(due.Cards), 0)
}

func TestUpdateFlashcardKeepsSchedule(t *testing.T) {
	is := is.New(t)
	s, _ := newTestService(t)
	ctx := ctxForTests()
	card := addCard(t, s, "cesar", "q1")

	reviewed, err := s.RecordReview(ctx, "cesar", card.ID, srs.Easy)
	is.NoErr(err)

	question := "  a better question "
	tags := []string{"new"}
	updated, err := s.UpdateFlashcard(ctx, "cesar", card.ID, stores.ContentUpdate{
		Question: &question,
		Tags:     &tags,
	})
	is.NoErr(err)
	is.Equal(updated.Question, "a better question")
	is.Equal(updated.Answer, card.Answer)
	is.Equal(updated.Tags, []string{"new"})
	is.Equal(updated.State, reviewed.State)
	is.Equal(updated.Version, reviewed.Version)

	empty := ""
	_, err = s.UpdateFlashcard(ctx, "cesar", card.ID, stores.ContentUpdate{Answer: &empty})
	is.True(isValidationError(err, "answer"))

	_, err = s.UpdateFlashcard(ctx, "mina", card.ID, stores.ContentUpdate{Question: &question})
	is.True(errors.Is(err, stores.ErrNotFound))

	unchanged, err := s.UpdateFlashcard(ctx, "cesar", card.ID, stores.ContentUpdate{})
	is.NoErr(err)
	is.Equal(unchanged.Question, "a better question")
}

func TestDeleteAndListFlashcards(t *testing.T) {
	is := is.New(t)
	s, _ := newTestService(t)
	ctx := ctxForTests()

	c1 := addCard(t, s, "cesar", "q1")
	_, err := s.CreateFlashcard(ctx, "cesar", NewCard{DeckID: "d1", Question: "q2", Answer: "a2"})
	is.NoErr(err)

	all, err := s.ListFlashcards(ctx, "cesar", "")
	is.NoErr(err)
	is.Equal(len(all), 2)
	inDeck, err := s.ListFlashcards(ctx, "cesar", "d1")
	is.NoErr(err)
	is.Equal(len(inDeck), 1)
	is.Equal(inDeck[0].Question, "q2")

	is.True(errors.Is(s.DeleteFlashcard(ctx, "mina", c1.ID), stores.ErrNotFound))
	is.NoErr(s.DeleteFlashcard(ctx, "cesar", c1.ID))
	is.True(errors.Is(s.DeleteFlashcard(ctx, "cesar", c1.ID), stores.ErrNotFound))
	_, err = s.GetFlashcard(ctx, "cesar", c1.ID)
	is.True(errors.Is(err, stores.ErrNotFound))
}

func TestCardInformation(t *testing.T) {
	is := is.New(t)
	s, fakenower := newTestService(t)
	ctx := ctxForTests()
	card := addCard(t, s, "cesar", "q1")

	info, err := s.CardInformation(ctx, "cesar", card.ID)
	is.NoErr(err)
	is.Equal(info.Retrievability, 0.0)
	is.Equal(len(info.Outcomes), 4)
	is.Equal(info.Outcomes[srs.Again].Repetitions, 0)
	is.Equal(info.Outcomes[srs.Easy].EaseFactor, 2.6)

	_, err = s.RecordReview(ctx, "cesar", card.ID, srs.Good)
	is.NoErr(err)
	fakenower.fakenow = fakenower.fakenow.Add(srs.Day)
	_, err = s.RecordReview(ctx, "cesar", card.ID, srs.Good)
	is.NoErr(err)

	info, err = s.CardInformation(ctx, "cesar", card.ID)
	is.NoErr(err)
	is.True(info.Retrievability > 0.99)
	is.Equal(info.Outcomes[srs.Good].Interval, 15)

	// At the end of its 6 day interval the card is at about 90% recall.
	fakenower.fakenow = fakenower.fakenow.Add(6 * srs.Day)
	info, err = s.CardInformation(ctx, "cesar", card.ID)
	is.NoErr(err)
	is.True(info.Retrievability > 0.89 && info.Retrievability < 0.91)
}

func TestStudyStats(t *testing.T) {
	is := is.New(t)
	s, fakenower := newTestService(t)
	ctx := ctxForTests()
	c1 := addCard(t, s, "cesar", "q1")
	c2 := addCard(t, s, "cesar", "q2")

	stats, err := s.StudyStats(ctx, "cesar")
	is.NoErr(err)
	is.Equal(stats.TotalStudied, 0)
	is.Equal(stats.Streak, 0)

	_, err = s.RecordReview(ctx, "cesar", c1.ID, srs.Good)
	is.NoErr(err)
	_, err = s.RecordReview(ctx, "cesar", c2.ID, srs.Hard)
	is.NoErr(err)

	stats, err = s.StudyStats(ctx, "cesar")
	is.NoErr(err)
	is.Equal(stats.StudiedToday, 2)
	is.Equal(stats.CorrectToday, 1)
	is.Equal(stats.Streak, 1)

	fakenower.fakenow = fakenower.fakenow.Add(srs.Day)
	stats, err = s.StudyStats(ctx, "cesar")
	is.NoErr(err)
	is.Equal(stats.StudiedToday, 0)
	is.Equal(stats.TotalCorrect, 1)
	is.Equal(stats.Streak, 1)

	_, err = s.RecordReview(ctx, "cesar", c1.ID, srs.Easy)
	is.NoErr(err)
	stats, err = s.StudyStats(ctx, "cesar")
	is.NoErr(err)
	is.Equal(stats.Streak, 2)
	is.Equal(stats.TotalStudied, 3)
}

func TestDifficultyScore(t *testing.T) {
	is := is.New(t)
	is.Equal(DifficultyScore(srs.State{EaseFactor: 1.3, Repetitions: 10}), 10.0)
	is.Equal(DifficultyScore(srs.State{EaseFactor: 3.0, Repetitions: 0}), 0.0)
	// (1.2/1.7)*0.7 + 0.3*0.3 = 0.584
	is.Equal(DifficultyScore(srs.State{EaseFactor: 1.8, Repetitions: 3}), 5.8)
}

func TestDifficultCards(t *testing.T) {
	is := is.New(t)
	s, _ := newTestService(t)
	ctx := ctxForTests()

	mild := addCard(t, s, "cesar", "mild")
	hard := addCard(t, s, "cesar", "hard")
	addCard(t, s, "cesar", "easy")

	// Hard ratings pull the ease down by 0.14 each.
	for range 6 {
		_, err := s.RecordReview(ctx, "cesar", mild.ID, srs.Hard)
		is.NoErr(err)
	}
	for range 8 {
		_, err := s.RecordReview(ctx, "cesar", hard.ID, srs.Hard)
		is.NoErr(err)
	}

	cards, err := s.DifficultCards(ctx, "cesar", 20)
	is.NoErr(err)
	is.Equal(len(cards), 2)
	is.Equal(cards[0].ID, hard.ID)
	is.Equal(cards[1].ID, mild.ID)
	is.True(cards[0].DifficultyScore > cards[1].DifficultyScore)

	cards, err = s.DifficultCards(ctx, "cesar", 1)
	is.NoErr(err)
	is.Equal(len(cards), 1)
	is.Equal(cards[0].ID, hard.ID)

	_, err = s.DifficultCards(ctx, "cesar", 0)
	is.True(isValidationError(err, "limit"))
}
