package db

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported backends.
type Dialect struct {
	name string
	// Postgres uses numbered placeholders, sqlite uses '?'.
	numbered bool
}

var (
	SQLiteDialect   = Dialect{name: "sqlite"}
	PostgresDialect = Dialect{name: "postgres", numbered: true}
)

func (d Dialect) String() string { return d.name }

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent quotes an identifier. Both backends accept standard double
// quoting.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
