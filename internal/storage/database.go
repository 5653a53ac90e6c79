package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/prompt-gallery/internal/config"
	"github.com/prompt-gallery/internal/model"
)

type Database struct {
	*sqlx.DB
}

func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	db, err := sqlx.Connect(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite3" {
		// sqlite serializes writers; one connection also keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	return &Database{DB: db}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations creates the schema. Statements are portable between postgres
// and sqlite; ids are generated by the application.
func (d *Database) RunMigrations() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			icon VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			id VARCHAR(128) PRIMARY KEY,
			description TEXT NOT NULL,
			image_url TEXT NOT NULL,
			image_hint VARCHAR(255) NOT NULL,
			uploaded_by VARCHAR(64),
			blob_key TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS prompts (
			id VARCHAR(64) PRIMARY KEY,
			text TEXT NOT NULL,
			category_id VARCHAR(64) NOT NULL,
			image_id VARCHAR(128) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			submitted_by VARCHAR(64),
			favorites_count INTEGER NOT NULL DEFAULT 0 CHECK (favorites_count >= 0),
			copies_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			user_id VARCHAR(64) NOT NULL,
			prompt_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, prompt_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ad_codes (
			id VARCHAR(128) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			code TEXT NOT NULL DEFAULT '',
			type VARCHAR(20) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prompts_status ON prompts(status)`,
		`CREATE INDEX IF NOT EXISTS idx_prompts_category ON prompts(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_prompt ON favorites(prompt_id)`,
		`CREATE INDEX IF NOT EXISTS idx_images_uploaded_by ON images(uploaded_by)`,
	}

	for _, migration := range migrations {
		if _, err := d.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	// The sentinel category must exist before any prompt can fall back to it.
	sentinel := model.Uncategorized()
	query := d.Rebind(`INSERT INTO categories (id, name, icon) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`)
	if _, err := d.Exec(query, sentinel.ID, sentinel.Name, sentinel.Icon); err != nil {
		return fmt.Errorf("migration failed: sentinel category: %w", err)
	}

	return nil
}
