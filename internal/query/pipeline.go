// Package query composes paginated, joined reads against the relational store.
//
// A Pipeline is assembled in stage order (match, join, sort, paginate) and compiled into a Plan of two
// statements sharing the same filter: a count branch and a windowed data branch. Facet executes both
// inside one snapshot.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrFieldNotProjectable indicates a join asked for a column outside the allow-list.
var ErrFieldNotProjectable = errors.New("field is not projectable")

// Statement is a SQL text with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Plan is a compiled pipeline.
type Plan struct {
	Count Statement
	Data  Statement
	Page  Page
}

// Pipeline accumulates the stages of a read.
type Pipeline struct {
	table string
	alias string
	key   string

	columns []string
	joins   []string
	where   []string
	args    []any
	sort    *Sort
	page    *Page
	err     error
}

// From starts a pipeline over table, referenced as alias in every stage.
func From(table, alias string) *Pipeline {
	return &Pipeline{table: table, alias: alias, key: alias + ".id"}
}

// KeyedBy overrides the unique column used to break sort ties.
func (p *Pipeline) KeyedBy(column string) *Pipeline {
	p.key = column
	return p
}

// Select appends projected columns. Rows are scanned in the order columns were added.
func (p *Pipeline) Select(columns ...string) *Pipeline {
	p.columns = append(p.columns, columns...)
	return p
}

// Match keeps rows whose column equals value.
func (p *Pipeline) Match(column string, value any) *Pipeline {
	p.where = append(p.where, fmt.Sprintf("%s = %s", column, p.bind(value)))
	return p
}

// MatchRegex keeps rows whose column contains text, ignoring case. text is matched literally.
func (p *Pipeline) MatchRegex(column, text string) *Pipeline {
	p.where = append(p.where, fmt.Sprintf("%s ~* %s", column, p.bind(regexp.QuoteMeta(text))))
	return p
}

// MatchNotNull keeps rows where column is set.
func (p *Pipeline) MatchNotNull(column string) *Pipeline {
	p.where = append(p.where, column+" IS NOT NULL")
	return p
}

// One describes a left join expected to match at most one row.
type One struct {
	Table  string
	Alias  string
	On     string
	Fields []string
}

// JoinOne left-joins a related row and projects the allow-listed Fields, qualified by the join alias.
func (p *Pipeline) JoinOne(j One) *Pipeline {
	allowed, ok := projectable[j.Table]
	if !ok {
		p.fail(fmt.Errorf("%w: table %s", ErrFieldNotProjectable, j.Table))
		return p
	}
	for _, field := range j.Fields {
		if _, ok := allowed[field]; !ok {
			p.fail(fmt.Errorf("%w: %s.%s", ErrFieldNotProjectable, j.Table, field))
			return p
		}
		p.columns = append(p.columns, j.Alias+"."+field)
	}
	p.joins = append(p.joins, fmt.Sprintf("LEFT JOIN %s %s ON %s", j.Table, j.Alias, j.On))
	return p
}

// Count describes a correlated count of related rows.
type Count struct {
	Table string
	Alias string
	Where string
	As    string
}

// JoinCount projects the number of related rows, zero when none match.
func (p *Pipeline) JoinCount(c Count) *Pipeline {
	p.columns = append(p.columns, fmt.Sprintf("(SELECT COUNT(*) FROM %s %s WHERE %s) AS %s", c.Table, c.Alias, c.Where, c.As))
	return p
}

// Sort orders rows by s, breaking ties on the key column in the same direction.
func (p *Pipeline) Sort(s Sort) *Pipeline {
	if strings.TrimSpace(s.Column) == "" {
		p.fail(fmt.Errorf("%w: empty column", ErrInvalidSort))
		return p
	}
	p.sort = &s
	return p
}

// Paginate limits the data branch to page.
func (p *Pipeline) Paginate(page Page) *Pipeline {
	if err := page.Validate(); err != nil {
		p.fail(err)
		return p
	}
	p.page = &page
	return p
}

// Build compiles the pipeline. It fails when any stage was rejected.
func (p *Pipeline) Build() (Plan, error) {
	if p.err != nil {
		return Plan{}, p.err
	}
	if len(p.columns) == 0 {
		return Plan{}, errors.New("query: no columns selected")
	}
	if p.page == nil {
		return Plan{}, errors.New("query: pipeline is not paginated")
	}

	from := p.fromClause()
	count := Statement{
		SQL:  "SELECT COUNT(*) FROM " + from,
		Args: append([]any(nil), p.args...),
	}

	dataArgs := append([]any(nil), p.args...)
	dataArgs = append(dataArgs, p.page.Size, p.page.Offset())
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(p.columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(from)
	b.WriteString(p.orderClause())
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(dataArgs)-1, len(dataArgs))

	return Plan{
		Count: count,
		Data:  Statement{SQL: b.String(), Args: dataArgs},
		Page:  *p.page,
	}, nil
}

// BuildList compiles the pipeline without a window.
func (p *Pipeline) BuildList() (Statement, error) {
	if p.err != nil {
		return Statement{}, p.err
	}
	if len(p.columns) == 0 {
		return Statement{}, errors.New("query: no columns selected")
	}
	sql := "SELECT " + strings.Join(p.columns, ", ") + " FROM " + p.fromClause()
	sql += p.orderClause()
	return Statement{SQL: sql, Args: append([]any(nil), p.args...)}, nil
}

func (p *Pipeline) fromClause() string {
	var b strings.Builder
	b.WriteString(p.table)
	b.WriteString(" ")
	b.WriteString(p.alias)
	for _, j := range p.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if len(p.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(p.where, " AND "))
	}
	return b.String()
}

func (p *Pipeline) orderClause() string {
	if p.sort == nil {
		return ""
	}
	dir := "ASC"
	if p.sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s %s", p.sort.Column, dir, p.key, dir)
}

func (p *Pipeline) bind(value any) string {
	p.args = append(p.args, value)
	return fmt.Sprintf("$%d", len(p.args))
}

func (p *Pipeline) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
