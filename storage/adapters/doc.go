// Package adapters abstracts the database drivers behind a minimal
// interface so every service store works identically on top of
// pgxpool.Pool, sqlx.DB or database/sql. SQL arrives fully built (goqu
// interpolates values), so the interface only needs Query and Exec.
package adapters
