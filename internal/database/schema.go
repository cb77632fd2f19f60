package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const dropSchema = `
	DROP TABLE IF EXISTS phones;
	DROP TABLE IF EXISTS clients;
`

// Identity column type is the only dialect difference in the schema.
const schemaTemplate = `
	CREATE TABLE IF NOT EXISTS clients (
		id %[1]s,
		first_name TEXT,
		last_name TEXT,
		email TEXT NOT NULL
	);

	-- No ON DELETE CASCADE: DeleteClient removes phones itself.
	CREATE TABLE IF NOT EXISTS phones (
		id %[1]s,
		phone TEXT NOT NULL,
		client_id INTEGER NOT NULL REFERENCES clients(id)
	);

	CREATE INDEX IF NOT EXISTS idx_phones_client_id ON phones(client_id);
	CREATE INDEX IF NOT EXISTS idx_phones_phone ON phones(phone);
`

func (db *db) createSchemaSQL() string {
	identity := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.dialect == DialectPostgres {
		identity = "SERIAL PRIMARY KEY"
	}
	return fmt.Sprintf(schemaTemplate, identity)
}

// InitSchema drops the phones and clients tables if present and recreates
// them. All existing data is lost.
func (db *db) InitSchema(ctx context.Context) error {
	log.Debug().Msg("Recreating directory schema")

	statements := append(splitSQLStatements(dropSchema), splitSQLStatements(db.createSchemaSQL())...)
	for i, stmt := range statements {
		if _, err := db.exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}

// EnsureSchema creates the tables when they are missing and leaves existing
// data untouched.
func (db *db) EnsureSchema(ctx context.Context) error {
	for i, stmt := range splitSQLStatements(db.createSchemaSQL()) {
		if _, err := db.exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}

// splitSQLStatements splits a SQL script into individual statements,
// skipping blank lines and -- comments.
func splitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder

	for line := range strings.SplitSeq(sql, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}

	return statements
}
