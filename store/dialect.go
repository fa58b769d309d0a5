package store

import (
	"fmt"
	"strings"
)

// Dialect abstracts the few SQL fragments that differ between backends.
type Dialect interface {
	Name() string
	Now() string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }
func (sqliteDialect) Now() string  { return "datetime('now','localtime')" }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }
func (postgresDialect) Now() string  { return "NOW()" }

// Rebind converts ? placeholders to $1..$n for PostgreSQL. Question marks
// inside single-quoted literals are left alone.
func Rebind(query string) string {
	var b strings.Builder
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '\'' {
			inQuote = !inQuote
		}
		if c == '?' && !inQuote {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
