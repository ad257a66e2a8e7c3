/*
Package log provides structured logging for the storage engine using zerolog.

The log package wraps zerolog to give every component that logs — the admin
surface, the index rebuilder, the storaged command — a JSON-structured
logger with a consistent set of context fields and a single
place to configure level and output format.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Safe for concurrent use from every package

Context Loggers:
  - WithComponent: tags logs with the emitting package (e.g. "admin", "indexrebuild")
  - WithNodeID: tags logs with the Raft node id of the storage replica
  - WithSpace: tags logs with the space id an operation targets
  - WithPartition: tags logs with the partition id an operation targets

# Usage

	import "github.com/cuemby/graphcore/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("storaged starting")

	partLog := log.WithPartition(3)
	partLog.Info().Int32("space", 1).Msg("partition backfill started")

	nodeLog := log.WithNodeID("node-1")
	nodeLog.Error().Err(err).Msg("raft apply failed")

# Log Levels

Debug is for development and troubleshooting; Info is the default production
level; Warn flags conditions an operator should notice (a rebuild retry, a
partition losing leadership); Error is a failed operation; Fatal logs and
exits, used only for unrecoverable startup failures (e.g. a catalog fixture
that fails to load).

# Integration Points

  - pkg/admin: logs checkpoint/blocking/clear-space operations through
    WithComponent("admin"), with the space id as a field
  - pkg/indexrebuild: logs rebuild lifecycle transitions through
    WithComponent, with space/index/partition ids as fields
  - cmd/storaged: logs startup, shutdown and the metrics/health server,
    using WithNodeID
  - WithSpace and WithPartition have no caller in this module

# Best Practices

Use structured fields (.Str, .Int32, .Err) instead of string interpolation,
create a component logger once per package rather than calling
WithComponent per log line, and never log vertex/edge property values —
only ids, counts and durations — since those values belong to the caller's
data, not the operator.
*/
package log
