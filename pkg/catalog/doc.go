/*
Package catalog resolves the schema and membership metadata the query
engine needs but does not own: spaces, tag/edge schema version histories
and secondary indexes.

Catalog is the interface every operator and the request driver depend
on. Memory is the only implementation shipped here: a mutex-guarded map
store populated either directly (PutSpace/PutTagSchema/...) or from a
YAML fixture file via LoadFixture. A cluster deployment that replicates
this metadata from an external meta service would implement Catalog
against that client instead; nothing above this package's interface
needs to change.
*/
package catalog
