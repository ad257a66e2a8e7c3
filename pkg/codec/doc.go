// Package codec turns the property-graph domain model in pkg/types into
// the byte strings stored in and read back from pkg/kvstore.
//
// Two concerns live here:
//
//   - Key encoding (key.go): vertex-existence markers, tag rows, edge rows
//     and their soft-lock records, secondary-index entries and online
//     index-rebuild operation-log records. Every key starts with a
//     one-byte kind discriminant and a four-byte partition id so a
//     prefix scan within one partition is a single contiguous range.
//     Integers, floats and strings are encoded so unsigned byte
//     comparison matches the typed ordering a query expects.
//
//   - Row encoding (row.go): a schema-version-tagged, null-bitmap-prefixed
//     field layout. RowReader selects the schema version embedded in the
//     row and falls back to the latest version's default/null for fields
//     the row predates; RowWriter always serializes against the latest
//     version.
package codec
