package flashcards

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	pb "github.com/domino14/flashcard_server/api/rpc/flashcards"
	"github.com/domino14/flashcard_server/internal/auth"
	"github.com/domino14/flashcard_server/internal/srs"
	"github.com/domino14/flashcard_server/internal/stores"
)

// Server is the connect front end of a Service. The owner of every card it
// touches is the authenticated user.
type Server struct {
	Service *Service
}

func NewServer(svc *Service) *Server {
	return &Server{Service: svc}
}

func ownerFromContext(ctx context.Context) (string, error) {
	owner, err := auth.OwnerID(ctx)
	if err != nil {
		return "", connect.NewError(connect.CodeUnauthenticated, err)
	}
	return owner, nil
}

// connectError maps service errors onto connect codes. Unexpected errors are
// logged and their text kept from the caller.
func connectError(ctx context.Context, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return connect.NewError(connect.CodeInvalidArgument, verr)
	case errors.Is(err, stores.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, stores.ErrNotFound)
	case errors.Is(err, stores.ErrConflict):
		return connect.NewError(connect.CodeAborted, stores.ErrConflict)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	log.Ctx(ctx).Err(err).Msg("internal-error")
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func cardToPB(c *stores.Flashcard) *pb.Flashcard {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return &pb.Flashcard{
		Id:          c.ID,
		DeckId:      c.DeckID,
		Question:    c.Question,
		Answer:      c.Answer,
		Title:       c.Title,
		Tags:        tags,
		Repetitions: c.Repetitions,
		EaseFactor:  c.EaseFactor,
		Interval:    c.Interval,
		LastReview:  optionalTime(c.LastReview),
		NextReview:  optionalTime(c.NextReview),
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
	}
}

func cardsToPB(cards []stores.Flashcard) []*pb.Flashcard {
	out := make([]*pb.Flashcard, len(cards))
	for i := range cards {
		out[i] = cardToPB(&cards[i])
	}
	return out
}

func (s *Server) CreateFlashcard(ctx context.Context, req *connect.Request[pb.CreateFlashcardRequest]) (
	*connect.Response[pb.Flashcard], error) {

	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	card, err := s.Service.CreateFlashcard(ctx, owner, NewCard{
		DeckID:   req.Msg.DeckId,
		Question: req.Msg.Question,
		Answer:   req.Msg.Answer,
		Title:    req.Msg.Title,
		Tags:     req.Msg.Tags,
	})
	if err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(cardToPB(card)), nil
}

func (s *Server) GetFlashcards(ctx context.Context, req *connect.Request[pb.GetFlashcardsRequest]) (
	*connect.Response[pb.Flashcards], error) {

	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.CardId != "" {
		card, err := s.Service.GetFlashcard(ctx, owner, req.Msg.CardId)
		if err != nil {
			return nil, connectError(ctx, err)
		}
		return connect.NewResponse(&pb.Flashcards{Cards: []*pb.Flashcard{cardToPB(card)}}), nil
	}
	cards, err := s.Service.ListFlashcards(ctx, owner, req.Msg.DeckId)
	if err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(&pb.Flashcards{Cards: cardsToPB(cards)}), nil
}

func (s *Server) UpdateFlashcard(ctx context.Context, req *connect.Request[pb.UpdateFlashcardRequest]) (
	*connect.Response[pb.Flashcard], error) {

	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	card, err := s.Service.UpdateFlashcard(ctx, owner, req.Msg.CardId, stores.ContentUpdate{
		Question: req.Msg.Question,
		Answer:   req.Msg.Answer,
		Title:    req.Msg.Title,
		Tags:     req.Msg.Tags,
	})
	if err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(cardToPB(card)), nil
}

func (s *Server) DeleteFlashcard(ctx context.Context, req *connect.Request[pb.DeleteFlashcardRequest]) (
	*connect.Response[pb.DeleteFlashcardResponse], error) {

	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Service.DeleteFlashcard(ctx, owner, req.Msg.CardId); err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(&pb.DeleteFlashcardResponse{}), nil
}

func (s *Server) GetCardInformation(ctx context.Context, req *connect.Request[pb.GetCardInfoRequest]) (
	*connect.Response[pb.CardInfo], error) {

	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	info, err := s.Service.CardInformation(ctx, owner, req.Msg.CardId)
	if err != nil {
		return nil, connectError(ctx, err)
	}
	outcomes := make([]*pb.ScheduledOutcome, 0, len(srs.Ratings))
	for _, r := range srs.Ratings {
		st := info.Outcomes[r]
		outcomes = append(outcomes, &pb.ScheduledOutcome{
			Rating:     int(r),
			Name:       r.String(),
			Interval:   st.Interval,
			EaseFactor: st.EaseFactor,
			NextReview: st.NextReview,
		})
	}
	return connect.NewResponse(&pb.CardInfo{
		Card:           cardToPB(info.Card),
		Retrievability: info.Retrievability,
		Outcomes:       outcomes,
	}), nil
}

// limit fills in the default for a request that left the limit unset.
func (s *Server) limit(requested int) int {
	if requested == 0 {
		return s.Service.DefaultLimit()
	}
	return requested
}

func (s *Server) GetDueCards(ctx context.Context, req *connect.Request[pb.GetDueCardsRequest]) (
	*connect.Response[pb.DueCardsResponse], error) {

	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	due, err := s.Service.DueCards(ctx, owner, s.limit(req.Msg.Limit))
	if err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(&pb.DueCardsResponse{
		Cards:        cardsToPB(due.Cards),
		OverdueCount: due.OverdueCount,
	}), nil
}

func (s *Server) RecordStudyResult(ctx context.Context, req *connect.Request[pb.RecordStudyResultRequest]) (
	*connect.Response[pb.Flashcard], error) {

	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	card, err := s.Service.RecordReview(ctx, owner, req.Msg.CardId, srs.Rating(req.Msg.Rating))
	if err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(cardToPB(card)), nil
}

func (s *Server) GetStudyStats(ctx context.Context, req *connect.Request[pb.GetStudyStatsRequest]) (
	*connect.Response[pb.StudyStats], error) {

	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.Service.StudyStats(ctx, owner)
	if err != nil {
		return nil, connectError(ctx, err)
	}
	return connect.NewResponse(&pb.StudyStats{
		StudiedToday:  st.StudiedToday,
		CorrectToday:  st.CorrectToday,
		TotalStudied:  st.TotalStudied,
		TotalCorrect:  st.TotalCorrect,
		Streak:        st.Streak,
		LastStudyDate: optionalTime(st.LastStudyDate),
	}), nil
}

func (s *Server) GetDifficultCards(ctx context.Context, req *connect.Request[pb.GetDifficultCardsRequest]) (
	*connect.Response[pb.DifficultCards], error) {

	owner, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := s.Service.DifficultCards(ctx, owner, s.limit(req.Msg.Limit))
	if err != nil {
		return nil, connectError(ctx, err)
	}
	out := make([]*pb.DifficultCard, len(cards))
	for i := range cards {
		out[i] = &pb.DifficultCard{
			Card:            cardToPB(&cards[i].Flashcard),
			DifficultyScore: cards[i].DifficultyScore,
		}
	}
	return connect.NewResponse(&pb.DifficultCards{Cards: out}), nil
}

var _ pb.FlashcardServiceHandler = (*Server)(nil)
