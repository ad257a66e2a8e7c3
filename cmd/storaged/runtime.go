package main

import (
	"fmt"

	"github.com/cuemby/graphcore/pkg/catalog"
	"github.com/cuemby/graphcore/pkg/events"
	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/query"
	"github.com/cuemby/graphcore/pkg/txn"
	"github.com/spf13/cobra"
)

// runtime bundles the handles a storaged process (or a one-shot admin
// subcommand reopening the same data directory) needs to drive the query
// core: the replicated store, the catalog it was given on start, the
// broker admin and rebuild operations publish to, and the driver itself.
type runtime struct {
	Store   kvstore.Store
	Catalog *catalog.Memory
	Driver  *query.Driver
	Events  *events.Broker
}

// newRuntime bootstraps a single-node Raft cluster rooted at data-dir,
// loads the catalog fixture named by --catalog, and wires a Driver over
// both. Every storaged subcommand that touches the engine goes through
// this, so the one-shot admin commands (checkpoint, block, clear-space,
// rebuild) see the exact same wiring the long-running serve command does.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	nodeID, _ := cmd.Flags().GetString("node-id")
	bindAddr, _ := cmd.Flags().GetString("bind-addr")
	catalogPath, _ := cmd.Flags().GetString("catalog")

	if catalogPath == "" {
		return nil, fmt.Errorf("storaged: --catalog is required")
	}

	store, err := kvstore.Bootstrap(kvstore.ClusterConfig{NodeID: nodeID, BindAddr: bindAddr, DataDir: dataDir})
	if err != nil {
		return nil, fmt.Errorf("storaged: bootstrap store: %w", err)
	}

	cat, err := catalog.LoadFixture(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("storaged: load catalog: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()

	driver := query.NewDriver(cat, store, txn.NewLockTable(), txn.NewSoftLockBroker())
	driver.Admin.WithBroker(broker)
	driver.Rebuild.WithBroker(broker)

	return &runtime{Store: store, Catalog: cat, Driver: driver, Events: broker}, nil
}
