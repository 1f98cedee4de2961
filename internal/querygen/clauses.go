package querygen

import (
	"fmt"
)

// Clause is a statement in a SQL query.
type Clause interface {
	// Render returns a string with `?` markers, and an array of items
	// to interpolate into those `?` markers.
	Render() (string, []interface{})
}

func whereClauseRender(column string, condition string) string {
	return fmt.Sprintf("%s %s", column, condition)
}

type WhereEqualsClause struct {
	column string
	value  interface{}
}

func NewWhereEqualsClause(column string, value interface{}) *WhereEqualsClause {
	return &WhereEqualsClause{column: column, value: value}
}

func (w *WhereEqualsClause) Render() (string, []interface{}) {
	return whereClauseRender(w.column, "= ?"), []interface{}{w.value}
}

// WhereDueClause matches rows whose timestamp column is unset or not after
// the given instant. An unset timestamp means "due since forever".
type WhereDueClause struct {
	column string
	now    interface{}
}

func NewWhereDueClause(column string, now interface{}) *WhereDueClause {
	return &WhereDueClause{column: column, now: now}
}

func (w *WhereDueClause) Render() (string, []interface{}) {
	return fmt.Sprintf("(%s IS NULL OR %s <= ?)", w.column, w.column), []interface{}{w.now}
}

type WhereLessThanClause struct {
	column string
	value  interface{}
}

func NewWhereLessThanClause(column string, value interface{}) *WhereLessThanClause {
	return &WhereLessThanClause{column: column, value: value}
}

func (w *WhereLessThanClause) Render() (string, []interface{}) {
	return whereClauseRender(w.column, "< ?"), []interface{}{w.value}
}

type WhereGreaterThanClause struct {
	column string
	value  interface{}
}

func NewWhereGreaterThanClause(column string, value interface{}) *WhereGreaterThanClause {
	return &WhereGreaterThanClause{column: column, value: value}
}

func (w *WhereGreaterThanClause) Render() (string, []interface{}) {
	return whereClauseRender(w.column, "> ?"), []interface{}{w.value}
}

type WhereNotNullClause struct {
	column string
}

func NewWhereNotNullClause(column string) *WhereNotNullClause {
	return &WhereNotNullClause{column: column}
}

func (w *WhereNotNullClause) Render() (string, []interface{}) {
	return whereClauseRender(w.column, "IS NOT NULL"), []interface{}{}
}

type LimitClause struct {
	limit int
}

func NewLimitClause(limit int) *LimitClause {
	return &LimitClause{limit: limit}
}

func (l *LimitClause) Render() (string, []interface{}) {
	return "LIMIT ?", []interface{}{l.limit}
}
