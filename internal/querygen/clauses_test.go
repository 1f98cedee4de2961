package querygen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereEqualsClause(t *testing.T) {
	c := NewWhereEqualsClause("owner_id", "cesar")
	res, params := c.Render()
	assert.Equal(t, "owner_id = ?", res)
	assert.Equal(t, []interface{}{"cesar"}, params)
}

func TestWhereDueClause(t *testing.T) {
	c := NewWhereDueClause("next_review", int64(1727046000000000))
	res, params := c.Render()
	assert.Equal(t, "(next_review IS NULL OR next_review <= ?)", res)
	assert.Equal(t, []interface{}{int64(1727046000000000)}, params)
}

func TestWhereNotNullClause(t *testing.T) {
	c := NewWhereNotNullClause("last_review")
	res, params := c.Render()
	assert.Equal(t, "last_review IS NOT NULL", res)
	assert.Equal(t, []interface{}{}, params)
}

func TestDueCardsPostgres(t *testing.T) {
	q, params := DueCards("id", "cesar", "now", 20).Render(Postgres)
	assert.Equal(t, "SELECT id FROM flashcards WHERE owner_id = $1 AND "+
		"(next_review IS NULL OR next_review <= $2) "+
		"ORDER BY next_review ASC NULLS FIRST, created_at ASC, id ASC LIMIT $3", q)
	assert.Equal(t, []interface{}{"cesar", "now", 20}, params)
}

func TestDueCardsSQLite(t *testing.T) {
	q, params := DueCards("id, question", "cesar", int64(5), 3).Render(SQLite)
	assert.Equal(t, "SELECT id, question FROM flashcards WHERE owner_id = ? AND "+
		"(next_review IS NULL OR next_review <= ?) "+
		"ORDER BY next_review ASC NULLS FIRST, created_at ASC, id ASC LIMIT ?", q)
	assert.Equal(t, []interface{}{"cesar", int64(5), 3}, params)
}

func TestCountDue(t *testing.T) {
	q, params := CountDue("cesar", "now").Render(Postgres)
	assert.Equal(t, "SELECT count(*) FROM flashcards WHERE owner_id = $1 AND "+
		"(next_review IS NULL OR next_review <= $2)", q)
	assert.Equal(t, []interface{}{"cesar", "now"}, params)
}

func TestOwnerCardsWithDeck(t *testing.T) {
	q, params := OwnerCards("id", "cesar", "deck-1").Render(Postgres)
	assert.Equal(t, "SELECT id FROM flashcards WHERE owner_id = $1 AND deck_id = $2 "+
		"ORDER BY created_at DESC, id ASC", q)
	assert.Equal(t, []interface{}{"cesar", "deck-1"}, params)

	q, params = OwnerCards("id", "cesar", "").Render(SQLite)
	assert.Equal(t, "SELECT id FROM flashcards WHERE owner_id = ? ORDER BY created_at DESC, id ASC", q)
	assert.Equal(t, []interface{}{"cesar"}, params)
}

func TestDifficultCards(t *testing.T) {
	q, params := DifficultCards("id", "cesar", 1.8, 2, 20).Render(Postgres)
	assert.Equal(t, "SELECT id FROM flashcards WHERE owner_id = $1 AND last_review IS NOT NULL AND "+
		"ease_factor < $2 AND repetitions > $3 "+DifficultyOrder+" LIMIT $4", q)
	assert.Equal(t, []interface{}{"cesar", 1.8, 2, 20}, params)
}

func TestEmptyWhereClause(t *testing.T) {
	q, params := NewSelectQuery("id").Render(SQLite)
	assert.Equal(t, "SELECT id FROM flashcards WHERE 1=1", q)
	assert.Equal(t, []interface{}{}, params)
}
