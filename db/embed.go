// Package db provides the embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for the products table.
//
//go:embed migrations/001_schema.sql
var Schema string
