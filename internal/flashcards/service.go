// Package flashcards records reviews and manages an owner's cards on top of
// a stores.Store. Service is the library contract; Server exposes it over
// connect.
package flashcards

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/open-spaced-repetition/go-fsrs/v3"
	"github.com/rs/zerolog/log"

	"github.com/domino14/flashcard_server/config"
	"github.com/domino14/flashcard_server/internal/srs"
	"github.com/domino14/flashcard_server/internal/stores"
)

const (
	DefaultDueLimit = 20
	MaxDueLimit     = 100

	// A review that conflicts with a concurrent one is re-read and tried
	// once more before giving up.
	reviewAttempts = 2
)

type nower interface {
	Now() time.Time
}

type RealNower struct{}

func (r RealNower) Now() time.Time {
	return time.Now()
}

// ValidationError rejects a request before anything is read or written.
// Field is the json name of the offending input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// NewCard is the content of a card to create.
type NewCard struct {
	DeckID   string   `json:"deck_id" validate:"max=64"`
	Question string   `json:"question" validate:"required,max=10000"`
	Answer   string   `json:"answer" validate:"required,max=10000"`
	Title    string   `json:"title" validate:"max=200"`
	Tags     []string `json:"tags" validate:"max=50,dive,required,max=64"`
}

type DueCards struct {
	Cards []stores.Flashcard
	// OverdueCount is the number of cards due right now, which can be more
	// than len(Cards).
	OverdueCount int
}

type CardInfo struct {
	Card *stores.Flashcard
	// Retrievability is the estimated probability of recalling the card
	// now. Zero for cards never reviewed.
	Retrievability float64
	Outcomes       map[srs.Rating]srs.State
}

type DifficultCard struct {
	stores.Flashcard
	DifficultyScore float64
}

type Service struct {
	Config *config.Config
	Store  stores.Store
	Nower  nower

	validate *validator.Validate
	fsrs     *fsrs.FSRS
}

func NewService(cfg *config.Config, store stores.Store) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		Config:   cfg,
		Store:    store,
		Nower:    RealNower{},
		validate: v,
		fsrs:     fsrs.NewFSRS(fsrs.DefaultParam()),
	}
}

// now is the service clock. Timestamps are kept in UTC at microsecond
// precision, which is what both stores can represent.
func (s *Service) now() time.Time {
	return s.Nower.Now().UTC().Truncate(time.Microsecond)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "max":
		msg = "must be at most " + fe.Param()
	case "min":
		msg = "must be at least " + fe.Param()
	default:
		msg = "failed " + fe.Tag()
	}
	return &ValidationError{Field: fe.Field(), Msg: msg}
}

func (s *Service) checkVar(field string, value any, tag string) error {
	if err := s.validate.Var(value, tag); err != nil {
		verr := validationError(err)
		if ve, ok := verr.(*ValidationError); ok {
			ve.Field = field
		}
		return verr
	}
	return nil
}

func (s *Service) checkIDs(ownerID, cardID string) error {
	if ownerID == "" {
		return &ValidationError{Field: "owner_id", Msg: "is required"}
	}
	return s.checkVar("card_id", cardID, "required,max=64")
}

// DefaultLimit is the page size used when a request leaves the limit out.
func (s *Service) DefaultLimit() int {
	if s.Config.DefaultDueLimit <= 0 {
		return DefaultDueLimit
	}
	return min(s.Config.DefaultDueLimit, MaxDueLimit)
}

func checkLimit(limit int) error {
	if limit < 1 || limit > MaxDueLimit {
		return &ValidationError{Field: "limit", Msg: fmt.Sprintf("must be between 1 and %d", MaxDueLimit)}
	}
	return nil
}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		cleaned = append(cleaned, strings.TrimSpace(t))
	}
	return cleaned
}

// CreateFlashcard stores a new card for ownerID. It starts with the default
// scheduling state and is due immediately.
func (s *Service) CreateFlashcard(ctx context.Context, ownerID string, nc NewCard) (*stores.Flashcard, error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Msg: "is required"}
	}
	nc.Question = strings.TrimSpace(nc.Question)
	nc.Answer = strings.TrimSpace(nc.Answer)
	nc.Title = strings.TrimSpace(nc.Title)
	nc.Tags = cleanTags(nc.Tags)
	if err := s.validate.Struct(nc); err != nil {
		return nil, validationError(err)
	}

	card := &stores.Flashcard{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		DeckID:    nc.DeckID,
		Question:  nc.Question,
		Answer:    nc.Answer,
		Title:     nc.Title,
		Tags:      nc.Tags,
		State:     srs.NewState(),
		Version:   1,
		CreatedAt: s.now(),
	}
	if err := s.Store.AddCard(ctx, card); err != nil {
		return nil, fmt.Errorf("create flashcard: %w", err)
	}
	log.Ctx(ctx).Debug().Str("card", card.ID).Str("owner", ownerID).Msg("card-created")
	return card, nil
}

func (s *Service) GetFlashcard(ctx context.Context, ownerID, cardID string) (*stores.Flashcard, error) {
	if err := s.checkIDs(ownerID, cardID); err != nil {
		return nil, err
	}
	card, err := s.Store.GetCard(ctx, ownerID, cardID)
	if err != nil {
		return nil, fmt.Errorf("get flashcard: %w", err)
	}
	return card, nil
}

// ListFlashcards returns the owner's cards, newest first. An empty deckID
// lists every card.
func (s *Service) ListFlashcards(ctx context.Context, ownerID, deckID string) ([]stores.Flashcard, error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Msg: "is required"}
	}
	cards, err := s.Store.ListCards(ctx, ownerID, deckID)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	return cards, nil
}

// UpdateFlashcard edits a card's content. The schedule and version are
// left alone.
func (s *Service) UpdateFlashcard(ctx context.Context, ownerID, cardID string, upd stores.ContentUpdate) (*stores.Flashcard, error) {
	if err := s.checkIDs(ownerID, cardID); err != nil {
		return nil, err
	}
	trim := func(field string, v *string, tag string) (*string, error) {
		if v == nil {
			return nil, nil
		}
		t := strings.TrimSpace(*v)
		return &t, s.checkVar(field, t, tag)
	}
	var err error
	if upd.Question, err = trim("question", upd.Question, "required,max=10000"); err != nil {
		return nil, err
	}
	if upd.Answer, err = trim("answer", upd.Answer, "required,max=10000"); err != nil {
		return nil, err
	}
	if upd.Title, err = trim("title", upd.Title, "max=200"); err != nil {
		return nil, err
	}
	if upd.Tags != nil {
		tags := cleanTags(*upd.Tags)
		if err := s.checkVar("tags", tags, "max=50,dive,required,max=64"); err != nil {
			return nil, err
		}
		upd.Tags = &tags
	}
	if upd.Empty() {
		return s.GetFlashcard(ctx, ownerID, cardID)
	}
	card, err := s.Store.UpdateContent(ctx, ownerID, cardID, upd)
	if err != nil {
		return nil, fmt.Errorf("update flashcard: %w", err)
	}
	return card, nil
}

func (s *Service) DeleteFlashcard(ctx context.Context, ownerID, cardID string) error {
	if err := s.checkIDs(ownerID, cardID); err != nil {
		return err
	}
	if err := s.Store.DeleteCard(ctx, ownerID, cardID); err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}
	log.Ctx(ctx).Info().Str("card", cardID).Str("owner", ownerID).Msg("card-deleted")
	return nil
}

// DueCards returns up to limit of the owner's due cards, the ones that have
// waited longest first.
func (s *Service) DueCards(ctx context.Context, ownerID string, limit int) (*DueCards, error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Msg: "is required"}
	}
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	now := s.now()
	cards, err := s.Store.DueCards(ctx, ownerID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due cards: %w", err)
	}
	count := len(cards)
	if count == limit {
		count, err = s.Store.CountDue(ctx, ownerID, now)
		if err != nil {
			return nil, fmt.Errorf("count due cards: %w", err)
		}
	}
	return &DueCards{Cards: cards, OverdueCount: count}, nil
}

// RecordReview applies a rating to one card and returns the card with its
// new schedule.
func (s *Service) RecordReview(ctx context.Context, ownerID, cardID string, rating srs.Rating) (*stores.Flashcard, error) {
	if !rating.IsValid() {
		return nil, &ValidationError{Field: "rating", Msg: srs.ErrInvalidRating.Error()}
	}
	if err := s.checkIDs(ownerID, cardID); err != nil {
		return nil, err
	}
	log := log.Ctx(ctx)

	var card *stores.Flashcard
	var err error
	for attempt := 1; attempt <= reviewAttempts; attempt++ {
		card, err = s.review(ctx, ownerID, cardID, rating)
		if !errors.Is(err, stores.ErrConflict) {
			break
		}
		log.Info().Str("card", cardID).Int("attempt", attempt).Msg("review-conflict-retrying")
	}
	if err != nil {
		return nil, fmt.Errorf("record review: %w", err)
	}
	log.Info().
		Str("card", cardID).
		Str("owner", ownerID).
		Stringer("rating", rating).
		Int("interval", card.Interval).
		Time("next-review", card.NextReview).
		Msg("card-reviewed")
	return card, nil
}

func (s *Service) review(ctx context.Context, ownerID, cardID string, rating srs.Rating) (*stores.Flashcard, error) {
	card, err := s.Store.GetCard(ctx, ownerID, cardID)
	if err != nil {
		return nil, err
	}
	card.State, err = srs.Schedule(card.State, rating, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Store.SaveReview(ctx, card, rating.Correct()); err != nil {
		return nil, err
	}
	return card, nil
}

// CardInformation describes a card's memory state: the card itself, how
// likely it is to be recalled now, and what each rating would do to it.
func (s *Service) CardInformation(ctx context.Context, ownerID, cardID string) (*CardInfo, error) {
	card, err := s.GetFlashcard(ctx, ownerID, cardID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &CardInfo{
		Card:           card,
		Retrievability: s.retrievability(card.State, now),
		Outcomes:       srs.Preview(card.State, now),
	}, nil
}

// retrievability evaluates the FSRS forgetting curve, taking the SM-2
// interval as the card's stability. A card is then at 90% recall when its
// interval runs out.
func (s *Service) retrievability(st srs.State, now time.Time) float64 {
	if !st.Reviewed() {
		return 0
	}
	state := fsrs.Review
	if st.Repetitions == 0 {
		state = fsrs.Relearning
	}
	return s.fsrs.GetRetrievability(fsrs.Card{
		Due:           st.NextReview,
		Stability:     float64(st.Interval),
		ScheduledDays: uint64(st.Interval),
		Reps:          uint64(st.Repetitions),
		State:         state,
		LastReview:    st.LastReview,
	}, now)
}

// StudyStats returns the owner's counters as of now.
func (s *Service) StudyStats(ctx context.Context, ownerID string) (*stores.StudyStats, error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Msg: "is required"}
	}
	st, err := s.Store.GetStudyStats(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("study stats: %w", err)
	}
	asOf := st.AsOf(s.now())
	return &asOf, nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// DifficultyScore rates from 0 to 10 how much trouble a card gives: mostly
// how far its ease has sunk, partly how many times it has been seen.
func DifficultyScore(st srs.State) float64 {
	easePart := max(0, (3-st.EaseFactor)/1.7)
	repsPart := min(1, float64(st.Repetitions)/10)
	return round1((easePart*0.7 + repsPart*0.3) * 10)
}

// DifficultCards lists reviewed cards with a low ease despite several
// repetitions, hardest first.
func (s *Service) DifficultCards(ctx context.Context, ownerID string, limit int) ([]DifficultCard, error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Msg: "is required"}
	}
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	cards, err := s.Store.DifficultCards(ctx, ownerID,
		s.Config.DifficultEaseThreshold, s.Config.DifficultRepsThreshold, limit)
	if err != nil {
		return nil, fmt.Errorf("difficult cards: %w", err)
	}
	difficult := make([]DifficultCard, len(cards))
	for i := range cards {
		difficult[i] = DifficultCard{Flashcard: cards[i], DifficultyScore: DifficultyScore(cards[i].State)}
	}
	// The store already orders by the unrounded score; rounding can only
	// create ties, which keep that order.
	sort.SliceStable(difficult, func(i, j int) bool {
		return difficult[i].DifficultyScore > difficult[j].DifficultyScore
	})
	return difficult, nil
}
