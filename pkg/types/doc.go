/*
Package types defines the core data structures of the storage query engine.

This package contains the property-graph domain model that every other
package builds on: spaces, partitions, tag/edge schema histories, indexes,
the typed Value union carried through rows and expressions, and the
wire-visible error Code taxonomy.

# Architecture

  - Space / Partition / Host / Zone — membership metadata, mostly owned by
    the external meta-service and only referenced here.
  - TagSchema / EdgeSchema / SchemaVersion / FieldDef — versioned schema
    history; the newest SchemaVersion is authoritative for writes, while
    reads consult the version embedded in the row being decoded.
  - Index / ColumnHint — secondary-index metadata and scan predicates.
  - Value — the small closed tagged union (bool/int/float/string/timestamp/
    list/rank) that rows, index keys and filter/update expressions share.
  - StorageError / Code — the typed error every operator and driver entry
    point returns, carrying the wire-visible error kind alongside a normal
    wrapped Go error chain.
*/
package types
