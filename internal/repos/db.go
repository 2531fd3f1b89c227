package repos

import (
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// every :memory: connection is its own database
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Session carts. Product fields are a snapshot taken when the line was last touched.
CREATE TABLE IF NOT EXISTS carts(
  session_id TEXT PRIMARY KEY,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS cart_items(
  session_id  TEXT NOT NULL REFERENCES carts(session_id) ON DELETE CASCADE,
  product_id  TEXT NOT NULL,
  position    INTEGER NOT NULL,
  name        TEXT NOT NULL,
  price       TEXT NOT NULL,
  image       TEXT,
  description TEXT,
  stock       INTEGER NOT NULL CHECK (stock >= 0),
  qty         INTEGER NOT NULL CHECK (qty >= 1),
  PRIMARY KEY (session_id, product_id)
);
CREATE INDEX IF NOT EXISTS idx_cart_items_position ON cart_items(session_id, position);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`
	_, err := db.Exec(schema)
	return err
}

// SeedAdmin ensures the operator account exists (idempotent). An existing account keeps
// its password.
func SeedAdmin(db *sqlx.DB, email, password string) error {
	email = strings.TrimSpace(email)
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	res, err := db.Exec(`
		INSERT INTO users(id,email,name,password_hash,role)
		VALUES(?,?,?,?,'ADMIN')
		ON CONFLICT(email) DO NOTHING
	`, "u-admin", email, "Admin", string(h))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[seed] admin user %s created", email)
	}
	return nil
}
