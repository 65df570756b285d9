package post

import "embed"

// Migrations holds the goose migrations for the posts table, rooted at "migrations".
//
//go:embed migrations/*.sql
var Migrations embed.FS
