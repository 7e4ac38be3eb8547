package access

import "fmt"

// Filter restricts a query to rows owned by OwnerID, optionally narrowed to
// a single row. A Filter is only ever built from a Principal, so storage
// code cannot express an unscoped read or write.
type Filter struct {
	OwnerID int64
	ID      *int64
	// ForUpdate asks for the matched row to stay locked until the unit of
	// work ends. Backends that serialize writers ignore it.
	ForUpdate bool
}

// Scope returns the owner-only filter for p.
func Scope(p Principal) Filter {
	return Filter{OwnerID: p.UserID}
}

// ByID narrows f to a single row.
func (f Filter) ByID(id int64) Filter {
	f.ID = &id
	return f
}

// Locked marks f for a read whose row the same unit of work writes back.
func (f Filter) Locked() Filter {
	f.ForUpdate = true
	return f
}

// Matches reports whether a row with the given owner and id is visible
// through f.
func (f Filter) Matches(ownerID, id int64) bool {
	if ownerID != f.OwnerID {
		return false
	}
	return f.ID == nil || *f.ID == id
}

// SQL renders f as a WHERE fragment with positional placeholders starting at
// $start, along with the matching arguments.
func (f Filter) SQL(start int) (string, []any) {
	return f.Qualified("", start)
}

// Qualified is SQL with the columns prefixed by a table alias, for joins.
func (f Filter) Qualified(alias string, start int) (string, []any) {
	if alias != "" {
		alias += "."
	}
	clause := fmt.Sprintf("%suser_id = $%d", alias, start)
	args := []any{f.OwnerID}
	if f.ID != nil {
		clause += fmt.Sprintf(" AND %sid = $%d", alias, start+1)
		args = append(args, *f.ID)
	}
	return clause, args
}
