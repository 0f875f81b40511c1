// Package migrations generates SQL files: the version ledger DDL for
// PostgreSQL, MySQL/MariaDB and SQLite, and empty up/down migration pairs
// named the way source.Dir discovers them.
package migrations
