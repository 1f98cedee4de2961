package flashcards

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const FlashcardServiceName = "flashcards.v1.FlashcardService"

const (
	FlashcardServiceCreateFlashcardProcedure    = "/flashcards.v1.FlashcardService/CreateFlashcard"
	FlashcardServiceGetFlashcardsProcedure      = "/flashcards.v1.FlashcardService/GetFlashcards"
	FlashcardServiceUpdateFlashcardProcedure    = "/flashcards.v1.FlashcardService/UpdateFlashcard"
	FlashcardServiceDeleteFlashcardProcedure    = "/flashcards.v1.FlashcardService/DeleteFlashcard"
	FlashcardServiceGetCardInformationProcedure = "/flashcards.v1.FlashcardService/GetCardInformation"
	FlashcardServiceGetDueCardsProcedure        = "/flashcards.v1.FlashcardService/GetDueCards"
	FlashcardServiceRecordStudyResultProcedure  = "/flashcards.v1.FlashcardService/RecordStudyResult"
	FlashcardServiceGetStudyStatsProcedure      = "/flashcards.v1.FlashcardService/GetStudyStats"
	FlashcardServiceGetDifficultCardsProcedure  = "/flashcards.v1.FlashcardService/GetDifficultCards"
)

// FlashcardServiceHandler is implemented by the server.
type FlashcardServiceHandler interface {
	CreateFlashcard(context.Context, *connect.Request[CreateFlashcardRequest]) (*connect.Response[Flashcard], error)
	GetFlashcards(context.Context, *connect.Request[GetFlashcardsRequest]) (*connect.Response[Flashcards], error)
	UpdateFlashcard(context.Context, *connect.Request[UpdateFlashcardRequest]) (*connect.Response[Flashcard], error)
	DeleteFlashcard(context.Context, *connect.Request[DeleteFlashcardRequest]) (*connect.Response[DeleteFlashcardResponse], error)
	GetCardInformation(context.Context, *connect.Request[GetCardInfoRequest]) (*connect.Response[CardInfo], error)
	GetDueCards(context.Context, *connect.Request[GetDueCardsRequest]) (*connect.Response[DueCardsResponse], error)
	RecordStudyResult(context.Context, *connect.Request[RecordStudyResultRequest]) (*connect.Response[Flashcard], error)
	GetStudyStats(context.Context, *connect.Request[GetStudyStatsRequest]) (*connect.Response[StudyStats], error)
	GetDifficultCards(context.Context, *connect.Request[GetDifficultCardsRequest]) (*connect.Response[DifficultCards], error)
}

// NewFlashcardServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewFlashcardServiceHandler(svc FlashcardServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	handlers := map[string]http.Handler{
		FlashcardServiceCreateFlashcardProcedure: connect.NewUnaryHandler(
			FlashcardServiceCreateFlashcardProcedure, svc.CreateFlashcard, opts...),
		FlashcardServiceGetFlashcardsProcedure: connect.NewUnaryHandler(
			FlashcardServiceGetFlashcardsProcedure, svc.GetFlashcards, opts...),
		FlashcardServiceUpdateFlashcardProcedure: connect.NewUnaryHandler(
			FlashcardServiceUpdateFlashcardProcedure, svc.UpdateFlashcard, opts...),
		FlashcardServiceDeleteFlashcardProcedure: connect.NewUnaryHandler(
			FlashcardServiceDeleteFlashcardProcedure, svc.DeleteFlashcard, opts...),
		FlashcardServiceGetCardInformationProcedure: connect.NewUnaryHandler(
			FlashcardServiceGetCardInformationProcedure, svc.GetCardInformation, opts...),
		FlashcardServiceGetDueCardsProcedure: connect.NewUnaryHandler(
			FlashcardServiceGetDueCardsProcedure, svc.GetDueCards, opts...),
		FlashcardServiceRecordStudyResultProcedure: connect.NewUnaryHandler(
			FlashcardServiceRecordStudyResultProcedure, svc.RecordStudyResult, opts...),
		FlashcardServiceGetStudyStatsProcedure: connect.NewUnaryHandler(
			FlashcardServiceGetStudyStatsProcedure, svc.GetStudyStats, opts...),
		FlashcardServiceGetDifficultCardsProcedure: connect.NewUnaryHandler(
			FlashcardServiceGetDifficultCardsProcedure, svc.GetDifficultCards, opts...),
	}
	return "/" + FlashcardServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// FlashcardServiceClient calls a FlashcardService over HTTP.
type FlashcardServiceClient struct {
	createFlashcard    *connect.Client[CreateFlashcardRequest, Flashcard]
	getFlashcards      *connect.Client[GetFlashcardsRequest, Flashcards]
	updateFlashcard    *connect.Client[UpdateFlashcardRequest, Flashcard]
	deleteFlashcard    *connect.Client[DeleteFlashcardRequest, DeleteFlashcardResponse]
	getCardInformation *connect.Client[GetCardInfoRequest, CardInfo]
	getDueCards        *connect.Client[GetDueCardsRequest, DueCardsResponse]
	recordStudyResult  *connect.Client[RecordStudyResultRequest, Flashcard]
	getStudyStats      *connect.Client[GetStudyStatsRequest, StudyStats]
	getDifficultCards  *connect.Client[GetDifficultCardsRequest, DifficultCards]
}

// NewFlashcardServiceClient constructs a client. baseURL is the scheme and
// host the server is mounted on, e.g. http://localhost:8180.
func NewFlashcardServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *FlashcardServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &FlashcardServiceClient{
		createFlashcard: connect.NewClient[CreateFlashcardRequest, Flashcard](
			httpClient, baseURL+FlashcardServiceCreateFlashcardProcedure, opts...),
		getFlashcards: connect.NewClient[GetFlashcardsRequest, Flashcards](
			httpClient, baseURL+FlashcardServiceGetFlashcardsProcedure, opts...),
		updateFlashcard: connect.NewClient[UpdateFlashcardRequest, Flashcard](
			httpClient, baseURL+FlashcardServiceUpdateFlashcardProcedure, opts...),
		deleteFlashcard: connect.NewClient[DeleteFlashcardRequest, DeleteFlashcardResponse](
			httpClient, baseURL+FlashcardServiceDeleteFlashcardProcedure, opts...),
		getCardInformation: connect.NewClient[GetCardInfoRequest, CardInfo](
			httpClient, baseURL+FlashcardServiceGetCardInformationProcedure, opts...),
		getDueCards: connect.NewClient[GetDueCardsRequest, DueCardsResponse](
			httpClient, baseURL+FlashcardServiceGetDueCardsProcedure, opts...),
		recordStudyResult: connect.NewClient[RecordStudyResultRequest, Flashcard](
			httpClient, baseURL+FlashcardServiceRecordStudyResultProcedure, opts...),
		getStudyStats: connect.NewClient[GetStudyStatsRequest, StudyStats](
			httpClient, baseURL+FlashcardServiceGetStudyStatsProcedure, opts...),
		getDifficultCards: connect.NewClient[GetDifficultCardsRequest, DifficultCards](
			httpClient, baseURL+FlashcardServiceGetDifficultCardsProcedure, opts...),
	}
}

func (c *FlashcardServiceClient) CreateFlashcard(ctx context.Context, req *connect.Request[CreateFlashcardRequest]) (*connect.Response[Flashcard], error) {
	return c.createFlashcard.CallUnary(ctx, req)
}

func (c *FlashcardServiceClient) GetFlashcards(ctx context.Context, req *connect.Request[GetFlashcardsRequest]) (*connect.Response[Flashcards], error) {
	return c.getFlashcards.CallUnary(ctx, req)
}

func (c *FlashcardServiceClient) UpdateFlashcard(ctx context.Context, req *connect.Request[UpdateFlashcardRequest]) (*connect.Response[Flashcard], error) {
	return c.updateFlashcard.CallUnary(ctx, req)
}

func (c *FlashcardServiceClient) DeleteFlashcard(ctx context.Context, req *connect.Request[DeleteFlashcardRequest]) (*connect.Response[DeleteFlashcardResponse], error) {
	return c.deleteFlashcard.CallUnary(ctx, req)
}

func (c *FlashcardServiceClient) GetCardInformation(ctx context.Context, req *connect.Request[GetCardInfoRequest]) (*connect.Response[CardInfo], error) {
	return c.getCardInformation.CallUnary(ctx, req)
}

func (c *FlashcardServiceClient) GetDueCards(ctx context.Context, req *connect.Request[GetDueCardsRequest]) (*connect.Response[DueCardsResponse], error) {
	return c.getDueCards.CallUnary(ctx, req)
}

func (c *FlashcardServiceClient) RecordStudyResult(ctx context.Context, req *connect.Request[RecordStudyResultRequest]) (*connect.Response[Flashcard], error) {
	return c.recordStudyResult.CallUnary(ctx, req)
}

func (c *FlashcardServiceClient) GetStudyStats(ctx context.Context, req *connect.Request[GetStudyStatsRequest]) (*connect.Response[StudyStats], error) {
	return c.getStudyStats.CallUnary(ctx, req)
}

func (c *FlashcardServiceClient) GetDifficultCards(ctx context.Context, req *connect.Request[GetDifficultCardsRequest]) (*connect.Response[DifficultCards], error) {
	return c.getDifficultCards.CallUnary(ctx, req)
}
