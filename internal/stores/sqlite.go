package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// sqlite3 driver is used by this store.
	_ "github.com/mattn/go-sqlite3"

	"github.com/domino14/flashcard_server/internal/querygen"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite opens (creating if needed) the database file at path. Write
// transactions take the database lock up front, and waiting writers retry
// for a few seconds before giving up.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewSQLiteStore(db), nil
}

// DB exposes the handle, mostly for migrations.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}

type sqlRow interface {
	Scan(dest ...any) error
}

func scanSQLiteCard(row sqlRow) (*Flashcard, error) {
	var c Flashcard
	var deckID sql.NullString
	var tags string
	var last, next sql.NullInt64
	var created int64
	err := row.Scan(&c.ID, &c.OwnerID, &deckID, &c.Question, &c.Answer, &c.Title,
		&tags, &c.Repetitions, &c.EaseFactor, &c.Interval, &last, &next,
		&c.Version, &created)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("bad tags for card %s: %w", c.ID, err)
	}
	c.DeckID = deckID.String
	c.Tags = normalizedTags(c.Tags)
	c.LastReview = fromUnixMicro(last)
	c.NextReview = fromUnixMicro(next)
	c.CreatedAt = time.UnixMicro(created).UTC()
	return &c, nil
}

func encodeTags(tags []string) (string, error) {
	bts, err := json.Marshal(normalizedTags(tags))
	return string(bts), err
}

func (s *SQLiteStore) queryCards(ctx context.Context, q *querygen.Query) ([]Flashcard, error) {
	query, params := q.Render(querygen.SQLite)
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cards := []Flashcard{}
	for rows.Next() {
		c, err := scanSQLiteCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func (s *SQLiteStore) AddCard(ctx context.Context, card *Flashcard) error {
	card.Tags = normalizedTags(card.Tags)
	tags, err := encodeTags(card.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flashcards (id, owner_id, deck_id, question, answer, title, tags,
			repetitions, ease_factor, interval_days, last_review, next_review, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.OwnerID, sql.NullString{String: card.DeckID, Valid: card.DeckID != ""},
		card.Question, card.Answer, card.Title, tags,
		card.Repetitions, card.EaseFactor, card.Interval,
		toUnixMicro(card.LastReview), toUnixMicro(card.NextReview),
		card.Version, card.CreatedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetCard(ctx context.Context, ownerID, cardID string) (*Flashcard, error) {
	return s.getCard(ctx, s.db, ownerID, cardID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) getCard(ctx context.Context, q queryRower, ownerID, cardID string) (*Flashcard, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM flashcards WHERE id = ? AND owner_id = ?`,
		cardID, ownerID)
	c, err := scanSQLiteCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card %s: %w", cardID, err)
	}
	return c, nil
}

func (s *SQLiteStore) ListCards(ctx context.Context, ownerID, deckID string) ([]Flashcard, error) {
	return s.queryCards(ctx, querygen.OwnerCards(cardColumns, ownerID, deckID))
}

func (s *SQLiteStore) UpdateContent(ctx context.Context, ownerID, cardID string, upd ContentUpdate) (*Flashcard, error) {
	var tags sql.NullString
	if upd.Tags != nil {
		encoded, err := encodeTags(*upd.Tags)
		if err != nil {
			return nil, err
		}
		tags = sql.NullString{String: encoded, Valid: true}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE flashcards SET
			question = COALESCE(?, question),
			answer = COALESCE(?, answer),
			title = COALESCE(?, title),
			tags = COALESCE(?, tags)
		WHERE id = ? AND owner_id = ?`,
		upd.Question, upd.Answer, upd.Title, tags, cardID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update card %s: %w", cardID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	c, err := s.getCard(ctx, tx, ownerID, cardID)
	if err != nil {
		return nil, err
	}
	return c, tx.Commit()
}

func (s *SQLiteStore) DeleteCard(ctx context.Context, ownerID, cardID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flashcards WHERE id = ? AND owner_id = ?`,
		cardID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DueCards(ctx context.Context, ownerID string, now time.Time, limit int) ([]Flashcard, error) {
	return s.queryCards(ctx, querygen.DueCards(cardColumns, ownerID, now.UnixMicro(), limit))
}

func (s *SQLiteStore) CountDue(ctx context.Context, ownerID string, now time.Time) (int, error) {
	query, params := querygen.CountDue(ownerID, now.UnixMicro()).Render(querygen.SQLite)
	var n int
	err := s.db.QueryRowContext(ctx, query, params...).Scan(&n)
	return n, err
}

func (s *SQLiteStore) DifficultCards(ctx context.Context, ownerID string, maxEase float64, minReps int, limit int) ([]Flashcard, error) {
	return s.queryCards(ctx, querygen.DifficultCards(cardColumns, ownerID, maxEase, minReps, limit))
}

func (s *SQLiteStore) SaveReview(ctx context.Context, card *Flashcard, correct bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE flashcards SET
			repetitions = ?, ease_factor = ?, interval_days = ?,
			last_review = ?, next_review = ?, version = version + 1
		WHERE id = ? AND owner_id = ? AND version = ?`,
		card.Repetitions, card.EaseFactor, card.Interval,
		toUnixMicro(card.LastReview), toUnixMicro(card.NextReview),
		card.ID, card.OwnerID, card.Version)
	if err != nil {
		return fmt.Errorf("failed to save review for card %s: %w", card.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.getCard(ctx, tx, card.OwnerID, card.ID); err != nil {
			return err
		}
		return ErrConflict
	}

	stats, err := s.getStudyStats(ctx, tx, card.OwnerID)
	if err != nil {
		return err
	}
	next := stats.RecordStudy(correct, card.LastReview)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO study_stats (owner_id, studied_today, correct_today, total_studied,
			total_correct, streak, last_study_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			studied_today = excluded.studied_today,
			correct_today = excluded.correct_today,
			total_studied = excluded.total_studied,
			total_correct = excluded.total_correct,
			streak = excluded.streak,
			last_study_date = excluded.last_study_date`,
		card.OwnerID, next.StudiedToday, next.CorrectToday, next.TotalStudied,
		next.TotalCorrect, next.Streak, toUnixMicro(next.LastStudyDate))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	card.Version++
	return nil
}

func (s *SQLiteStore) getStudyStats(ctx context.Context, q queryRower, ownerID string) (*StudyStats, error) {
	var st StudyStats
	var last sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM study_stats WHERE owner_id = ?`, ownerID).
		Scan(&st.OwnerID, &st.StudiedToday, &st.CorrectToday, &st.TotalStudied,
			&st.TotalCorrect, &st.Streak, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &StudyStats{OwnerID: ownerID}, nil
		}
		return nil, err
	}
	st.LastStudyDate = fromUnixMicro(last)
	return &st, nil
}

func (s *SQLiteStore) GetStudyStats(ctx context.Context, ownerID string) (*StudyStats, error) {
	return s.getStudyStats(ctx, s.db, ownerID)
}
