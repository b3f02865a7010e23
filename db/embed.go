// Package db embeds the catalog schema and the sample catalog.
package db

import _ "embed"

// Schema holds the DDL applied on server start and by the seed tool.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the sample catalog used when no products file is given.
//
//go:embed seed/products.json
var SeedProducts []byte
