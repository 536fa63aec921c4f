// Package storage persists users, admin accounts and pending company
// approvals. It runs on SQLite (modernc.org/sqlite, no cgo) by default and on
// PostgreSQL through the pgx stdlib driver; queries are written once with
// "?" placeholders and rebound per driver by sqlx.
package storage
