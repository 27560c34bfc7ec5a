package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema steps in filename order.
var Migrations = migrate.NewMigrations()
