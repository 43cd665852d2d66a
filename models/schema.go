package models

import (
	"database/sql"
	"fmt"

	"github.com/golang/glog"

	h "github.com/lumenblog/lumen/helpers"
)

var schema = []string{`
-- Users
CREATE TABLE IF NOT EXISTS users (
    id             BIGSERIAL PRIMARY KEY,
    open_id        VARCHAR(64) NOT NULL UNIQUE,
    name           TEXT,
    email          VARCHAR(320),
    avatar         TEXT,
    bio            TEXT,
    login_method   VARCHAR(64),
    role           VARCHAR(16) NOT NULL DEFAULT 'user',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_signed_in TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, `
-- Categories
CREATE TABLE IF NOT EXISTS categories (
    id          BIGSERIAL PRIMARY KEY,
    name        VARCHAR(100) NOT NULL UNIQUE,
    slug        VARCHAR(100) NOT NULL UNIQUE,
    description TEXT,
    icon        VARCHAR(50),
    sort_order  INTEGER NOT NULL DEFAULT 0,
    type        VARCHAR(16) NOT NULL DEFAULT 'blog',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, `
-- Articles
CREATE TABLE IF NOT EXISTS articles (
    id           BIGSERIAL PRIMARY KEY,
    title        VARCHAR(255) NOT NULL,
    slug         VARCHAR(255) NOT NULL UNIQUE,
    summary      TEXT,
    content      TEXT NOT NULL,
    cover_image  TEXT,
    author_id    BIGINT NOT NULL,
    category_id  BIGINT REFERENCES categories (id),
    status       VARCHAR(16) NOT NULL DEFAULT 'draft',
    type         VARCHAR(16) NOT NULL DEFAULT 'blog',
    sort_order   INTEGER NOT NULL DEFAULT 0,
    published_at TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, `
CREATE INDEX IF NOT EXISTS articles_status_published_at_idx
    ON articles (status, published_at DESC)`, `
CREATE INDEX IF NOT EXISTS articles_category_id_idx
    ON articles (category_id)`, `
-- Audit log
CREATE TABLE IF NOT EXISTS audit_log (
    id        BIGSERIAL PRIMARY KEY,
    item_type BIGINT NOT NULL,
    item_id   BIGINT NOT NULL,
    user_id   BIGINT NOT NULL,
    action    CHAR(1) NOT NULL,
    seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    ip        INET
)`,
}

// EnsureSchema creates any missing tables. It is safe to run repeatedly.
func EnsureSchema(db *sql.DB) error {
	tx, err := h.GetTransaction(db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		_, err = tx.Exec(stmt)
		if err != nil {
			glog.Errorf("EnsureSchema %+v", err)
			return fmt.Errorf("could not create schema: %v", err)
		}
	}

	return tx.Commit()
}
