package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/domino14/flashcard_server/internal/querygen"
)

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// OpenPG connects to dbURI and checks the connection.
func OpenPG(ctx context.Context, dbURI string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dbURI)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPGStore(pool), nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}

func scanPGCard(row pgx.Row) (*Flashcard, error) {
	var c Flashcard
	var deckID pgtype.Text
	var last, next pgtype.Timestamptz
	err := row.Scan(&c.ID, &c.OwnerID, &deckID, &c.Question, &c.Answer, &c.Title,
		&c.Tags, &c.Repetitions, &c.EaseFactor, &c.Interval, &last, &next,
		&c.Version, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.DeckID = deckID.String
	c.Tags = normalizedTags(c.Tags)
	c.LastReview = fromPGTimestamp(last)
	c.NextReview = fromPGTimestamp(next)
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *PGStore) queryCards(ctx context.Context, q *querygen.Query) ([]Flashcard, error) {
	query, params := q.Render(querygen.Postgres)
	rows, err := s.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cards := []Flashcard{}
	for rows.Next() {
		c, err := scanPGCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func (s *PGStore) AddCard(ctx context.Context, card *Flashcard) error {
	card.Tags = normalizedTags(card.Tags)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO flashcards (id, owner_id, deck_id, question, answer, title, tags,
			repetitions, ease_factor, interval_days, last_review, next_review, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		card.ID, card.OwnerID, toPGText(card.DeckID), card.Question, card.Answer, card.Title,
		card.Tags, card.Repetitions, card.EaseFactor, card.Interval,
		toNullablePGTimestamp(card.LastReview), toNullablePGTimestamp(card.NextReview),
		card.Version, toPGTimestamp(card.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

func (s *PGStore) GetCard(ctx context.Context, ownerID, cardID string) (*Flashcard, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM flashcards WHERE id = $1 AND owner_id = $2`,
		cardID, ownerID)
	c, err := scanPGCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card %s: %w", cardID, err)
	}
	return c, nil
}

func (s *PGStore) ListCards(ctx context.Context, ownerID, deckID string) ([]Flashcard, error) {
	return s.queryCards(ctx, querygen.OwnerCards(cardColumns, ownerID, deckID))
}

func (s *PGStore) UpdateContent(ctx context.Context, ownerID, cardID string, upd ContentUpdate) (*Flashcard, error) {
	var tags any
	if upd.Tags != nil {
		tags = normalizedTags(*upd.Tags)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE flashcards SET
			question = COALESCE($3, question),
			answer = COALESCE($4, answer),
			title = COALESCE($5, title),
			tags = COALESCE($6, tags)
		WHERE id = $1 AND owner_id = $2
		RETURNING `+cardColumns,
		cardID, ownerID, upd.Question, upd.Answer, upd.Title, tags)
	c, err := scanPGCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update card %s: %w", cardID, err)
	}
	return c, nil
}

func (s *PGStore) DeleteCard(ctx context.Context, ownerID, cardID string) error {
	t, err := s.pool.Exec(ctx, `DELETE FROM flashcards WHERE id = $1 AND owner_id = $2`,
		cardID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	if t.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DueCards(ctx context.Context, ownerID string, now time.Time, limit int) ([]Flashcard, error) {
	return s.queryCards(ctx, querygen.DueCards(cardColumns, ownerID, toPGTimestamp(now), limit))
}

func (s *PGStore) CountDue(ctx context.Context, ownerID string, now time.Time) (int, error) {
	query, params := querygen.CountDue(ownerID, toPGTimestamp(now)).Render(querygen.Postgres)
	var n int
	err := s.pool.QueryRow(ctx, query, params...).Scan(&n)
	return n, err
}

func (s *PGStore) DifficultCards(ctx context.Context, ownerID string, maxEase float64, minReps int, limit int) ([]Flashcard, error) {
	return s.queryCards(ctx, querygen.DifficultCards(cardColumns, ownerID, maxEase, minReps, limit))
}

func (s *PGStore) SaveReview(ctx context.Context, card *Flashcard, correct bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	t, err := tx.Exec(ctx, `
		UPDATE flashcards SET
			repetitions = $1, ease_factor = $2, interval_days = $3,
			last_review = $4, next_review = $5, version = version + 1
		WHERE id = $6 AND owner_id = $7 AND version = $8`,
		card.Repetitions, card.EaseFactor, card.Interval,
		toNullablePGTimestamp(card.LastReview), toNullablePGTimestamp(card.NextReview),
		card.ID, card.OwnerID, card.Version)
	if err != nil {
		return fmt.Errorf("failed to save review for card %s: %w", card.ID, err)
	}
	if t.RowsAffected() == 0 {
		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM flashcards WHERE id = $1 AND owner_id = $2)`,
			card.ID, card.OwnerID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}

	// Lock only this owner's stats row.
	_, err = tx.Exec(ctx,
		`INSERT INTO study_stats (owner_id) VALUES ($1) ON CONFLICT (owner_id) DO NOTHING`,
		card.OwnerID)
	if err != nil {
		return err
	}
	stats, err := scanPGStats(tx.QueryRow(ctx,
		`SELECT `+statsColumns+` FROM study_stats WHERE owner_id = $1 FOR UPDATE`, card.OwnerID))
	if err != nil {
		return err
	}
	next := stats.RecordStudy(correct, card.LastReview)
	_, err = tx.Exec(ctx, `
		UPDATE study_stats SET
			studied_today = $2, correct_today = $3, total_studied = $4,
			total_correct = $5, streak = $6, last_study_date = $7
		WHERE owner_id = $1`,
		card.OwnerID, next.StudiedToday, next.CorrectToday, next.TotalStudied,
		next.TotalCorrect, next.Streak, toNullablePGTimestamp(next.LastStudyDate))
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	card.Version++
	return nil
}

const statsColumns = `owner_id, studied_today, correct_today, total_studied,
	total_correct, streak, last_study_date`

func scanPGStats(row pgx.Row) (*StudyStats, error) {
	var st StudyStats
	var last pgtype.Timestamptz
	err := row.Scan(&st.OwnerID, &st.StudiedToday, &st.CorrectToday, &st.TotalStudied,
		&st.TotalCorrect, &st.Streak, &last)
	if err != nil {
		return nil, err
	}
	st.LastStudyDate = fromPGTimestamp(last)
	return &st, nil
}

func (s *PGStore) GetStudyStats(ctx context.Context, ownerID string) (*StudyStats, error) {
	st, err := scanPGStats(s.pool.QueryRow(ctx,
		`SELECT `+statsColumns+` FROM study_stats WHERE owner_id = $1`, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &StudyStats{OwnerID: ownerID}, nil
		}
		return nil, err
	}
	return st, nil
}
