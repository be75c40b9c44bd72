// internal/adapter/storage/compile.go

package storage

import (
	"fmt"
	"regexp"
	"strings"

	"campusevents/internal/domain/event"
)

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func quoteIdent(name string) (string, error) {
	if !identifier.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return name, nil
}

// compiler accumulates positional arguments while rendering predicates
type compiler struct {
	args []interface{}
}

func (c *compiler) arg(v interface{}) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

// Compile renders a query as SQL returning one jsonb object per row
func Compile(q event.Query) (string, []interface{}, error) {
	table, err := quoteIdent(q.Collection)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		sb.WriteString("to_jsonb(t)")
	} else {
		pairs := make([]string, 0, len(q.Columns))
		for _, col := range q.Columns {
			name, err := quoteIdent(col)
			if err != nil {
				return "", nil, err
			}
			pairs = append(pairs, fmt.Sprintf("'%s', t.%s", name, name))
		}
		sb.WriteString("jsonb_build_object(" + strings.Join(pairs, ", ") + ")")
	}
	sb.WriteString(" FROM " + table + " t")

	c := &compiler{}
	if len(q.Where) > 0 {
		conds := make([]string, 0, len(q.Where))
		for _, p := range q.Where {
			cond, err := c.predicate(p)
			if err != nil {
				return "", nil, err
			}
			conds = append(conds, cond)
		}
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	if len(q.OrderBy) > 0 {
		orders := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			name, err := quoteIdent(o.Column)
			if err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			orders = append(orders, fmt.Sprintf("t.%s %s", name, dir))
		}
		sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + c.arg(q.Limit))
	}

	return sb.String(), c.args, nil
}

func (c *compiler) predicate(p event.Predicate) (string, error) {
	if p.Op == event.OpOr {
		if len(p.Any) == 0 {
			return "", fmt.Errorf("empty or predicate")
		}
		alts := make([]string, 0, len(p.Any))
		for _, alt := range p.Any {
			cond, err := c.predicate(alt)
			if err != nil {
				return "", err
			}
			alts = append(alts, cond)
		}
		return "(" + strings.Join(alts, " OR ") + ")", nil
	}

	col, err := quoteIdent(p.Column)
	if err != nil {
		return "", err
	}

	switch p.Op {
	case event.OpEq:
		return fmt.Sprintf("t.%s::text = %s", col, c.arg(fmt.Sprint(p.Value))), nil
	case event.OpIn:
		return fmt.Sprintf("t.%s::text = ANY(%s::text[])", col, c.arg(p.Value)), nil
	case event.OpGte:
		return fmt.Sprintf("t.%s >= %s", col, c.arg(p.Value)), nil
	case event.OpLte:
		return fmt.Sprintf("t.%s <= %s", col, c.arg(p.Value)), nil
	case event.OpContains:
		return fmt.Sprintf("t.%s @> %s::text[]", col, c.arg(p.Value)), nil
	case event.OpILike:
		return fmt.Sprintf("t.%s ILIKE %s", col, c.arg(p.Value)), nil
	default:
		return "", fmt.Errorf("unsupported operator %q", p.Op)
	}
}
