package kintone

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operator is a comparison operator of the record query language.
type Operator string

// Query operators.
const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpIn           Operator = "in"
	OpNotIn        Operator = "not in"
	OpLike         Operator = "like"
	OpNotLike      Operator = "not like"
)

// SortDirection is the direction of an order by term.
type SortDirection string

// Sort directions.
const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

var (
	orderByClause = regexp.MustCompile(`(?i)\border\s+by\s+`)
	limitClause   = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
	offsetClause  = regexp.MustCompile(`(?i)\boffset\s+(\d+)`)
)

// Query is a record query split into its condition and trailing clauses.
type Query struct {
	// Condition is the filter expression, possibly empty.
	Condition string
	// OrderBy is the raw sort list without the "order by" keyword.
	OrderBy string
	// Limit is the page window, 0 when absent.
	Limit int
	// Offset is the number of skipped matches, 0 when absent.
	Offset int
}

// ParseQuery splits a query string. Keywords inside quoted strings are ignored.
func ParseQuery(raw string) Query {
	masked := maskQuoted(raw)
	end := len(raw)

	var query Query

	if loc := orderByClause.FindStringIndex(masked); loc != nil {
		end = min(end, loc[0])
		query.OrderBy = raw[loc[1]:clauseEnd(masked, loc[1])]
	}

	if loc := limitClause.FindStringSubmatchIndex(masked); loc != nil {
		end = min(end, loc[0])
		query.Limit, _ = strconv.Atoi(raw[loc[2]:loc[3]])
	}

	if loc := offsetClause.FindStringSubmatchIndex(masked); loc != nil {
		end = min(end, loc[0])
		query.Offset, _ = strconv.Atoi(raw[loc[2]:loc[3]])
	}

	query.Condition = strings.TrimSpace(raw[:end])
	query.OrderBy = strings.TrimSpace(query.OrderBy)

	return query
}

// HasLimit reports whether the query carries a limit clause.
func HasLimit(raw string) bool {
	return limitClause.MatchString(maskQuoted(raw))
}

// HasOrderBy reports whether the query carries an order by clause.
func HasOrderBy(raw string) bool {
	return orderByClause.MatchString(maskQuoted(raw))
}

// String reassembles the query.
func (q Query) String() string {
	parts := make([]string, 0, 4)

	if q.Condition != "" {
		parts = append(parts, q.Condition)
	}

	if q.OrderBy != "" {
		parts = append(parts, "order by "+q.OrderBy)
	}

	if q.Limit > 0 {
		parts = append(parts, "limit "+strconv.Itoa(q.Limit))
	}

	if q.Offset > 0 {
		parts = append(parts, "offset "+strconv.Itoa(q.Offset))
	}

	return strings.Join(parts, " ")
}

// QuoteString renders s as a query string literal.
func QuoteString(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)

	return `"` + escaped + `"`
}

// maskQuoted blanks the contents of string literals so keyword matching only
// sees query syntax. Offsets are preserved.
func maskQuoted(raw string) string {
	out := []byte(raw)
	inString := false

	for i := 0; i < len(out); i++ {
		switch {
		case inString && out[i] == '\\' && i+1 < len(out):
			out[i], out[i+1] = ' ', ' '
			i++
		case out[i] == '"':
			inString = !inString
		case inString:
			out[i] = ' '
		}
	}

	return string(out)
}

// clauseEnd finds where the order by list stops.
func clauseEnd(masked string, from int) int {
	end := len(masked)
	rest := masked[from:]

	if loc := limitClause.FindStringIndex(rest); loc != nil {
		end = min(end, from+loc[0])
	}

	if loc := offsetClause.FindStringIndex(rest); loc != nil {
		end = min(end, from+loc[0])
	}

	return end
}

// QueryBuilder assembles a query from typed terms.
type QueryBuilder struct {
	condition strings.Builder
	orderBy   []string
	limit     int
	offset    int
}

// NewQueryBuilder creates an empty builder.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{}
}

// Where starts or replaces the condition with one term.
func (b *QueryBuilder) Where(field string, op Operator, value interface{}) *QueryBuilder {
	b.condition.Reset()
	b.condition.WriteString(term(field, op, value))

	return b
}

// And appends a term joined with "and".
func (b *QueryBuilder) And(field string, op Operator, value interface{}) *QueryBuilder {
	return b.join("and", term(field, op, value))
}

// Or appends a term joined with "or".
func (b *QueryBuilder) Or(field string, op Operator, value interface{}) *QueryBuilder {
	return b.join("or", term(field, op, value))
}

// AndGroup appends a parenthesized sub-condition joined with "and".
func (b *QueryBuilder) AndGroup(group *QueryBuilder) *QueryBuilder {
	return b.join("and", "("+group.Condition()+")")
}

// OrGroup appends a parenthesized sub-condition joined with "or".
func (b *QueryBuilder) OrGroup(group *QueryBuilder) *QueryBuilder {
	return b.join("or", "("+group.Condition()+")")
}

// OrderBy appends a sort term.
func (b *QueryBuilder) OrderBy(field string, direction SortDirection) *QueryBuilder {
	b.orderBy = append(b.orderBy, field+" "+string(direction))

	return b
}

// Limit sets the page window.
func (b *QueryBuilder) Limit(limit int) *QueryBuilder {
	b.limit = limit

	return b
}

// Offset sets the number of skipped matches.
func (b *QueryBuilder) Offset(offset int) *QueryBuilder {
	b.offset = offset

	return b
}

// Condition returns only the filter expression.
func (b *QueryBuilder) Condition() string {
	return b.condition.String()
}

// Build returns the parsed form of the query.
func (b *QueryBuilder) Build() Query {
	return Query{
		Condition: b.Condition(),
		OrderBy:   strings.Join(b.orderBy, ", "),
		Limit:     b.limit,
		Offset:    b.offset,
	}
}

// String returns the full query string.
func (b *QueryBuilder) String() string {
	return b.Build().String()
}

func (b *QueryBuilder) join(conjunction, expr string) *QueryBuilder {
	if b.condition.Len() > 0 {
		b.condition.WriteString(" " + conjunction + " ")
	}

	b.condition.WriteString(expr)

	return b
}

func term(field string, op Operator, value interface{}) string {
	return fmt.Sprintf("%s %s %s", field, op, literal(value))
}

func literal(value interface{}) string {
	switch v := value.(type) {
	case string:
		return QuoteString(v)
	case []string:
		quoted := make([]string, len(v))
		for i, s := range v {
			quoted[i] = QuoteString(s)
		}

		return "(" + strings.Join(quoted, ", ") + ")"
	case []int:
		items := make([]string, len(v))
		for i, n := range v {
			items[i] = strconv.Itoa(n)
		}

		return "(" + strings.Join(items, ", ") + ")"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
