// internal/storage/database.go
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/formbridge/formbridge-backend/config"
	"github.com/formbridge/formbridge-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// createStatements bootstraps the form-builder configuration tables. The
// operator's own data tables and views live in the same database file and are
// never created or dropped by this layer.
var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS form_masters (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		table_name TEXT NOT NULL,
		table_id TEXT NOT NULL DEFAULT '',
		view_name TEXT NOT NULL DEFAULT '',
		view_id TEXT NOT NULL DEFAULT '',
		pk_column TEXT NOT NULL DEFAULT '',
		status INTEGER NOT NULL DEFAULT 0,
		schema_query_type TEXT NOT NULL DEFAULT 'ALL',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (table_name, view_name)
	);`,
	`CREATE TABLE IF NOT EXISTS field_configs (
		id TEXT PRIMARY KEY,
		form_master_id TEXT NOT NULL,
		table_name TEXT NOT NULL,
		column_name TEXT NOT NULL,
		control_type TEXT,
		default_value TEXT NOT NULL DEFAULT '',
		is_visible INTEGER NOT NULL DEFAULT 1,
		is_editable INTEGER NOT NULL DEFAULT 1,
		display_width INTEGER NOT NULL DEFAULT 100,
		display_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (form_master_id, column_name),
		FOREIGN KEY (form_master_id) REFERENCES form_masters(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS validation_rules (
		id TEXT PRIMARY KEY,
		field_config_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		message_local TEXT NOT NULL DEFAULT '',
		rule_order INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (field_config_id, rule_order),
		FOREIGN KEY (field_config_id) REFERENCES field_configs(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS dropdowns (
		id TEXT PRIMARY KEY,
		field_config_id TEXT NOT NULL UNIQUE,
		is_use_sql INTEGER NOT NULL DEFAULT 0,
		sql_text TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (field_config_id) REFERENCES field_configs(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS dropdown_options (
		id TEXT PRIMARY KEY,
		dropdown_id TEXT NOT NULL,
		option_text TEXT NOT NULL,
		option_table TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (dropdown_id) REFERENCES dropdowns(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS dropdown_answers (
		field_config_id TEXT NOT NULL,
		row_pk TEXT NOT NULL,
		option_id TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (field_config_id, row_pk),
		FOREIGN KEY (field_config_id) REFERENCES field_configs(id) ON DELETE CASCADE
	);`,
}

// ConnectAppDB initializes the connection pool for the application SQLite
// database and ensures the configuration tables exist.
func ConnectAppDB(cfg *config.Config) (*sql.DB, error) {
	dbPath := filepath.Join(cfg.AppDbDir, cfg.AppDbFile)
	customLog.Printf("Storage: Initializing application database: %s", dbPath)

	// Ensure the data directory exists
	if err := os.MkdirAll(cfg.AppDbDir, 0750); err != nil {
		customLog.Warnf("Storage: Error creating data directory '%s': %v", cfg.AppDbDir, err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		customLog.Warnf("Storage: Failed to open application db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to open application db: %w", err)
	}

	// Verify connection is working
	if err = db.Ping(); err != nil {
		db.Close()
		customLog.Warnf("Storage: Failed to ping application db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to connect to application db: %w", err)
	}

	for _, stmt := range createStatements {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			customLog.Warnf("Storage: Failed to ensure configuration tables: %v", err)
			return nil, fmt.Errorf("failed to ensure configuration tables: %w", err)
		}
	}
	customLog.Println("Storage: Configuration tables ensured.")

	return db, nil
}
