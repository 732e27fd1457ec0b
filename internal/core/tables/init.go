// Package tables registers all table definitions with the core registry.
// Import this package to ensure all tables are registered.
package tables

// This file exists to provide a single import point.
// Each table file uses init() to register its tables.

// Load order of the catalog tables.
const (
	OrderProducts = 10
	OrderHeaders  = 20
	OrderGroups   = 30
	OrderDetails  = 40
)
