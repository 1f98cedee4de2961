// Package querygen builds the flashcard selection queries shared by the
// Postgres and SQLite stores.
package querygen

import (
	"fmt"
	"strconv"
	"strings"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// SelectQuery is the template for reading card rows.
const SelectQuery = `SELECT %s FROM flashcards WHERE %s %s %s`

// CountQuery only counts the matching cards.
const CountQuery = `SELECT count(*) FROM flashcards WHERE %s`

// DueOrder puts never-scheduled cards first, then the longest overdue.
// Creation time and id keep the order stable between calls.
const DueOrder = "ORDER BY next_review ASC NULLS FIRST, created_at ASC, id ASC"

const CreatedOrder = "ORDER BY created_at DESC, id ASC"

// DifficultyOrder sorts by the difficulty score scaled by 17, so
// (3 - ease) weighs 7 and each repetition up to 10 weighs 0.51.
const DifficultyOrder = "ORDER BY " +
	"(CASE WHEN ease_factor < 3 THEN (3 - ease_factor) * 7 ELSE 0 END) + " +
	"(CASE WHEN repetitions < 10 THEN repetitions ELSE 10 END) * 0.51 DESC, " +
	"ease_factor ASC, id ASC"

type Query struct {
	template string
	columns  string
	clauses  []Clause
	orderBy  string
	limit    Clause
}

func NewSelectQuery(columns string) *Query {
	return &Query{template: SelectQuery, columns: columns}
}

func NewCountQuery() *Query {
	return &Query{template: CountQuery}
}

func (q *Query) Where(clauses ...Clause) *Query {
	q.clauses = append(q.clauses, clauses...)
	return q
}

func (q *Query) OrderBy(order string) *Query {
	q.orderBy = order
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = NewLimitClause(n)
	return q
}

// Render returns the SQL text with placeholders for the dialect, and the
// bind parameters in order.
func (q *Query) Render(d Dialect) (string, []interface{}) {
	bindParams := []interface{}{}
	whereClauses := []string{}
	for _, c := range q.clauses {
		s, params := c.Render()
		whereClauses = append(whereClauses, s)
		bindParams = append(bindParams, params...)
	}
	where := "1=1"
	if len(whereClauses) > 0 {
		where = strings.Join(whereClauses, " AND ")
	}

	var rendered string
	if q.template == CountQuery {
		rendered = fmt.Sprintf(q.template, where)
	} else {
		limit := ""
		if q.limit != nil {
			var params []interface{}
			limit, params = q.limit.Render()
			bindParams = append(bindParams, params...)
		}
		rendered = fmt.Sprintf(q.template, q.columns, where, q.orderBy, limit)
	}
	return rebind(d, strings.TrimSpace(rendered)), bindParams
}

// rebind turns `?` markers into `$n` for Postgres.
func rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// DueCards selects the owner's cards that are due at now.
func DueCards(columns string, ownerID string, now interface{}, limit int) *Query {
	return NewSelectQuery(columns).
		Where(
			NewWhereEqualsClause("owner_id", ownerID),
			NewWhereDueClause("next_review", now),
		).
		OrderBy(DueOrder).
		Limit(limit)
}

func CountDue(ownerID string, now interface{}) *Query {
	return NewCountQuery().Where(
		NewWhereEqualsClause("owner_id", ownerID),
		NewWhereDueClause("next_review", now),
	)
}

// OwnerCards lists an owner's cards, optionally restricted to a deck.
func OwnerCards(columns string, ownerID string, deckID string) *Query {
	q := NewSelectQuery(columns).Where(NewWhereEqualsClause("owner_id", ownerID))
	if deckID != "" {
		q.Where(NewWhereEqualsClause("deck_id", deckID))
	}
	return q.OrderBy(CreatedOrder)
}

// DifficultCards selects reviewed cards whose ease dropped below maxEase
// despite more than minReps consecutive successes, hardest first.
func DifficultCards(columns string, ownerID string, maxEase float64, minReps int, limit int) *Query {
	return NewSelectQuery(columns).
		Where(
			NewWhereEqualsClause("owner_id", ownerID),
			NewWhereNotNullClause("last_review"),
			NewWhereLessThanClause("ease_factor", maxEase),
			NewWhereGreaterThanClause("repetitions", minReps),
		).
		OrderBy(DifficultyOrder).
		Limit(limit)
}
