// Package core provides the catalog sync pipeline.
//
// This package turns point-of-sale exports into the combo catalog tables. It
// has no HTTP dependencies and is shared by the server and the combosync CLI.
//
// # Architecture
//
//   - Sources: [CSVSource], [XLSXSource] and [QuerySource] yield raw records.
//   - Parsing: [ParseComboRows] and [ParseProductRows] map records to domain
//     rows using [FieldSpec] lists. Malformed numbers become 0 with a warning.
//   - Transform: combo rows are normalized into headers, groups and details
//     by combo.Transform.
//   - Loading: [Loader] replaces each table in chunks of [DefaultChunkSize].
//   - Orchestration: [Syncer] runs the steps, guarded by a [SyncLimiter], and
//     records each run through a [RunStore].
//
// # Table Registry
//
// Tables are registered at init time using [Register] (see core/tables).
// Each [TableDefinition] lists its database columns and extracts its rows
// from a parsed [Batch]:
//
//	core.Register(core.TableDefinition{
//	    Info: core.TableInfo{Key: "combo_headers", Source: core.SourceCombos, Order: 10,
//	        Columns: []string{"combo_key", "branch_id", "combo_name"}},
//	    Extract: extractHeaders,
//	})
//
// Tables load in Order. A failure stops the run; earlier tables keep their
// new contents.
//
// # Error Handling
//
// Technical errors are mapped to operator messages using [MapError]. Each
// category has a code for support reference:
//
//   - SRC001-SRC006: source errors (missing keys, columns, unreadable files)
//   - DB001-DB008: database errors (partial loads, connections, conversions)
//   - SYNC001-SYNC004: run errors (overlap, cancellation, missing schema)
package core
