// Package database provides the local cover cache store.
//
// # Architecture
//
//	database/
//	├── database.go        # Connection setup and migrations
//	├── manifestations/    # Catalog sync: renames, pruning, identifier refresh, work grouping
//	├── identifiers/       # Identifier lookup, throttle stamps, covers
//	├── works/             # Work level reads and aggregate statistics
//	└── progress/          # Maintenance run progress
//
// Each sub-package exposes a Repository built from the shared *gorm.DB:
//
//	db, err := database.NewDatabase("./covercache.db")
//	manifestationsRepo := manifestations.NewRepository(db.DB)
//	worksRepo := works.NewRepository(db.DB)
//
// Consumers declare the narrow interfaces they need; compile-time checks
// live in internal/interfaces.
package database
