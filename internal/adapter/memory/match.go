package memory

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"campusevents/internal/domain/event"
)

func matchAll(row event.Row, preds []event.Predicate) (bool, error) {
	for _, p := range preds {
		ok, err := match(row, p)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(row event.Row, p event.Predicate) (bool, error) {
	switch p.Op {
	case event.OpOr:
		for _, alt := range p.Any {
			ok, err := match(row, alt)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case event.OpEq:
		v, ok := row[p.Column]
		return ok && compare(v, p.Value) == 0, nil

	case event.OpIn:
		values, ok := p.Value.([]string)
		if !ok {
			return false, fmt.Errorf("in predicate on %s needs []string, got %T", p.Column, p.Value)
		}
		got := text(row[p.Column])
		for _, v := range values {
			if v == got {
				return true, nil
			}
		}
		return false, nil

	case event.OpGte, event.OpLte:
		v, ok := row[p.Column]
		if !ok || v == nil {
			return false, nil
		}
		c := compare(v, p.Value)
		if p.Op == event.OpGte {
			return c >= 0, nil
		}
		return c <= 0, nil

	case event.OpContains:
		want, ok := p.Value.([]string)
		if !ok {
			return false, fmt.Errorf("contains predicate on %s needs []string, got %T", p.Column, p.Value)
		}
		have := map[string]bool{}
		for _, s := range list(row[p.Column]) {
			have[s] = true
		}
		for _, w := range want {
			if !have[w] {
				return false, nil
			}
		}
		return true, nil

	case event.OpILike:
		pattern, ok := p.Value.(string)
		if !ok {
			return false, fmt.Errorf("ilike predicate on %s needs a string pattern", p.Column)
		}
		re, err := likeRegexp(pattern)
		if err != nil {
			return false, err
		}
		s, ok := row[p.Column].(string)
		return ok && re.MatchString(s), nil
	}

	return false, fmt.Errorf("unsupported operator %q", p.Op)
}

// likeRegexp translates an ILIKE pattern with backslash escapes
func likeRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?is)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// compare orders two column values. Timestamps compare as instants,
// numbers numerically, everything else as text.
func compare(a, b interface{}) int {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			}
			return 0
		}
	}
	if na, ok := asNumber(a); ok {
		if nb, ok := asNumber(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(text(a), text(b))
}

func asTime(v interface{}) (time.Time, bool) {
	switch v.(type) {
	case time.Time, *time.Time:
		return event.ParseTime(v)
	case string:
		return event.ParseTime(v)
	}
	return time.Time{}, false
}

func asNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func list(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, text(item))
		}
		return out
	}
	return nil
}

func sortRows(rows []event.Row, order []event.Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			c := compare(rows[i][o.Column], rows[j][o.Column])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func project(row event.Row, columns []string) event.Row {
	out := make(event.Row, len(row))
	if len(columns) == 0 {
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}
