// Package query is a small typed predicate builder for the listing store.
// Predicates render to Postgres SQL with positional $N arguments; column
// names are trusted identifiers supplied by the caller, values are always
// bound.
package query

import (
	"fmt"
	"strings"
)

// Predicate is one boolean SQL condition.
type Predicate interface {
	render(b *Builder) string
}

// Builder accumulates bound arguments while predicates render.
type Builder struct {
	args  []any
	argID int
}

func NewBuilder() *Builder {
	return &Builder{argID: 1, args: make([]any, 0)}
}

// Bind adds v to the argument list and returns its placeholder.
func (b *Builder) Bind(v any) string {
	ph := fmt.Sprintf("$%d", b.argID)
	b.args = append(b.args, v)
	b.argID++
	return ph
}

func (b *Builder) Args() []any {
	return b.args
}

// Where renders preds joined by AND, prefixed with WHERE. It returns ""
// when nothing renders.
func (b *Builder) Where(preds ...Predicate) string {
	sql := b.Render(And(preds...))
	if sql == "" {
		return ""
	}
	return "WHERE " + sql
}

// Render renders a single predicate, or "" for an empty composite.
func (b *Builder) Render(p Predicate) string {
	if p == nil {
		return ""
	}
	return p.render(b)
}

type comparison struct {
	col string
	op  string
	val any
}

func (c comparison) render(b *Builder) string {
	return fmt.Sprintf("%s %s %s", c.col, c.op, b.Bind(c.val))
}

func Eq(col string, v any) Predicate { return comparison{col, "=", v} }
func Gte(col string, v any) Predicate { return comparison{col, ">=", v} }
func Lte(col string, v any) Predicate { return comparison{col, "<=", v} }

// ILike is a case-insensitive substring match. Wildcards in s are escaped.
func ILike(col, s string) Predicate {
	return comparison{col, "ILIKE", "%" + escapeLike(s) + "%"}
}

// IsNull matches rows where col is NULL.
func IsNull(col string) Predicate { return rawPred(col + " IS NULL") }

type rawPred string

func (r rawPred) render(*Builder) string { return string(r) }

type anyOf struct {
	col    string
	vals   []string
	negate bool
}

func (a anyOf) render(b *Builder) string {
	ph := b.Bind(a.vals)
	if a.negate {
		return fmt.Sprintf("NOT (%s = ANY(%s))", a.col, ph)
	}
	return fmt.Sprintf("%s = ANY(%s)", a.col, ph)
}

// In matches col against any of vals. An empty vals yields nil, which
// composites skip.
func In(col string, vals []string) Predicate {
	if len(vals) == 0 {
		return nil
	}
	return anyOf{col: col, vals: vals}
}

// NotIn excludes vals. Under SQL three-valued logic a NULL col is also
// excluded; use NotInNullable when NULL rows must survive.
func NotIn(col string, vals []string) Predicate {
	if len(vals) == 0 {
		return nil
	}
	return anyOf{col: col, vals: vals, negate: true}
}

// NotInNullable excludes vals but keeps rows where col is NULL.
func NotInNullable(col string, vals []string) Predicate {
	if len(vals) == 0 {
		return nil
	}
	return Or(IsNull(col), NotIn(col, vals))
}

type group struct {
	op    string
	preds []Predicate
}

func (g group) render(b *Builder) string {
	parts := make([]string, 0, len(g.preds))
	for _, p := range g.preds {
		if p == nil {
			continue
		}
		if s := p.render(b); s != "" {
			parts = append(parts, s)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, " "+g.op+" ") + ")"
}

// And joins preds with AND. Nil members are skipped.
func And(preds ...Predicate) Predicate { return group{"AND", preds} }

// Or joins preds with OR. Nil members are skipped.
func Or(preds ...Predicate) Predicate { return group{"OR", preds} }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
