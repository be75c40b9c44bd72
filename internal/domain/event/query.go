package event

// Op is a predicate operator supported by the remote store
type Op string

const (
	OpEq       Op = "eq"
	OpIn       Op = "in"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
	OpContains Op = "contains"
	OpILike    Op = "ilike"
	OpOr       Op = "or"
)

// Predicate is a single filter on a column. OpOr predicates hold their
// alternatives in Any and ignore Column and Value.
type Predicate struct {
	Op     Op
	Column string
	Value  interface{}
	Any    []Predicate
}

// Order sorts results by a column
type Order struct {
	Column string
	Desc   bool
}

// Query describes a read against one collection. All predicates in
// Where are AND-combined.
type Query struct {
	Collection string
	Columns    []string
	Where      []Predicate
	OrderBy    []Order
	Limit      int
}

// Eq builds an equality predicate
func Eq(column string, value interface{}) Predicate {
	return Predicate{Op: OpEq, Column: column, Value: value}
}

// In builds a set membership predicate
func In(column string, values []string) Predicate {
	return Predicate{Op: OpIn, Column: column, Value: values}
}

// Gte builds a lower bound predicate
func Gte(column string, value interface{}) Predicate {
	return Predicate{Op: OpGte, Column: column, Value: value}
}

// Lte builds an upper bound predicate
func Lte(column string, value interface{}) Predicate {
	return Predicate{Op: OpLte, Column: column, Value: value}
}

// Contains requires an array column to contain every given value
func Contains(column string, values []string) Predicate {
	return Predicate{Op: OpContains, Column: column, Value: values}
}

// ILike builds a case-insensitive pattern predicate
func ILike(column, pattern string) Predicate {
	return Predicate{Op: OpILike, Column: column, Value: pattern}
}

// Or combines predicates with logical OR
func Or(alts ...Predicate) Predicate {
	return Predicate{Op: OpOr, Any: alts}
}

// Find returns the first top-level predicate on column with the given op
func (q Query) Find(column string, op Op) (Predicate, bool) {
	for _, p := range q.Where {
		if p.Column == column && p.Op == op {
			return p, true
		}
	}
	return Predicate{}, false
}
