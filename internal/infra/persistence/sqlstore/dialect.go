package sqlstore

// Dialect captures the per-backend differences the shared store needs: the
// sqlx driver name (which selects the bindvar style), the row-lock suffix for
// read-modify-write transactions, and the schema DDL. UnicodeLower is set when
// the database's LOWER folds non-ASCII letters; otherwise name filters are
// applied in Go after the query.
type Dialect struct {
	Name         string
	DriverName   string
	LockSuffix   string
	UnicodeLower bool
	Schema       []string
}

// SQLite targets modernc.org/sqlite. Placeholders stay as '?'. Its LOWER only
// folds ASCII.
var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			price REAL NOT NULL CHECK (price >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			item_name TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			amount REAL NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('sale', 'purchase')),
			occurred_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_kind_occurred_at ON transactions (kind, occurred_at)`,
	},
}

// Postgres targets the pgx database/sql driver. Placeholders are rebound to $n.
var Postgres = Dialect{
	Name:         "postgres",
	DriverName:   "pgx",
	LockSuffix:   " FOR UPDATE",
	UnicodeLower: true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			name TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			price DOUBLE PRECISION NOT NULL CHECK (price >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			item_id BIGINT NOT NULL,
			item_name TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			amount DOUBLE PRECISION NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('sale', 'purchase')),
			occurred_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_kind_occurred_at ON transactions (kind, occurred_at)`,
	},
}
