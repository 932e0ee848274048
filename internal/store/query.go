package store

import (
	"fmt"
	"strings"
)

// Cond is one equality test of a conjunctive filter.
type Cond struct {
	Column string
	Value  any
}

// selectIDs compiles a conjunctive equality filter into parameterized SQL
// returning the key column of table.
//
// Every query orders by seq ASC then the key COLLATE BINARY. Values are
// always bound as parameters; column and table names must come from package
// constants.
func selectIDs(table, key string, conds []Cond) (string, []any, error) {
	if table == "" || key == "" {
		return "", nil, fmt.Errorf("table and key column are required")
	}

	var where []string
	params := make([]any, 0, len(conds))
	for _, c := range conds {
		if c.Column == "" {
			return "", nil, fmt.Errorf("condition has empty column")
		}
		where = append(where, c.Column+" = ?")
		params = append(params, c.Value)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", key, table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY seq ASC, %s COLLATE BINARY ASC", key)
	return b.String(), params, nil
}
