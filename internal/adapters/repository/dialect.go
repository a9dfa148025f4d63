package repository

import (
	"database/sql"
	_ "embed"
	"strconv"
	"strings"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Supported driver names, as accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type dialect struct {
	name        string
	sqlDriver   string
	schema      string
	placeholder func(n int) string
	// viewOpts starts read transactions; nil means a plain BEGIN.
	viewOpts *sql.TxOptions
	// dsn adjusts the caller's DSN before sql.Open; nil leaves it as is.
	dsn func(string) string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:        DriverSQLite,
		sqlDriver:   "sqlite",
		schema:      sqliteSchema,
		placeholder: func(int) string { return "?" },
		dsn:         sqliteDSN,
	},
	DriverPostgres: {
		name:        DriverPostgres,
		sqlDriver:   "pgx",
		schema:      postgresSchema,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		viewOpts:    &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	},
}

// sqlitePragmas are applied by the driver to every new connection.
var sqlitePragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// sqliteDSN appends the connection pragmas the caller did not set.
func sqliteDSN(dsn string) string {
	var params []string
	for _, p := range sqlitePragmas {
		name := p[:strings.IndexByte(p, '(')]
		if !strings.Contains(dsn, "_pragma="+name) {
			params = append(params, "_pragma="+p)
		}
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// rebind rewrites ? placeholders into the dialect's form. Queries in this
// package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if d.name == DriverSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
