package main

import (
	"fmt"
	"strconv"

	"github.com/cuemby/graphcore/pkg/codec"
	"github.com/cuemby/graphcore/pkg/query"
	"github.com/cuemby/graphcore/pkg/types"
	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Create or drop a named checkpoint of a space",
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create <space> <name>",
	Short: "Snapshot a space under a named checkpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		space, name := args[0], args[1]
		spaceID, err := parseSpace(space)
		if err != nil {
			return err
		}
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		return rt.Driver.CreateCheckpoint(&query.CreateCPRequest{Space: spaceID, Name: name})
	},
}

var checkpointDropCmd = &cobra.Command{
	Use:   "drop <space> <name>",
	Short: "Remove a previously created checkpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		space, name := args[0], args[1]
		spaceID, err := parseSpace(space)
		if err != nil {
			return err
		}
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		return rt.Driver.DropCheckpoint(&query.DropCPRequest{Space: spaceID, Name: name})
	},
}

func init() {
	checkpointCmd.AddCommand(checkpointCreateCmd)
	checkpointCmd.AddCommand(checkpointDropCmd)
}

var blockCmd = &cobra.Command{
	Use:   "block <space> <blocked: true|false> <parts...>",
	Short: "Toggle write blocking on a space's partitions ahead of a checkpoint or migration",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID, err := parseSpace(args[0])
		if err != nil {
			return err
		}
		blocked, err := parseBool(args[1])
		if err != nil {
			return err
		}
		parts, err := parseParts(args[2:])
		if err != nil {
			return err
		}
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		return rt.Driver.BlockingSign(&query.BlockingSignRequest{Space: spaceID, Parts: parts, Blocked: blocked})
	},
}

var clearSpaceCmd = &cobra.Command{
	Use:   "clear-space <space> <parts...>",
	Short: "Remove every row belonging to a space's partitions; run block first",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID, err := parseSpace(args[0])
		if err != nil {
			return err
		}
		parts, err := parseParts(args[1:])
		if err != nil {
			return err
		}
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		prefixes := make(map[types.PartitionID][][]byte, len(parts))
		for _, p := range parts {
			prefixes[p] = codec.PartitionKeyPrefixes(p)
		}
		return rt.Driver.ClearSpace(&query.ClearSpaceRequest{Space: spaceID, Parts: parts, Prefixes: prefixes})
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Start or stop a background index rebuild",
}

var rebuildStartCmd = &cobra.Command{
	Use:   "start <space> <index-id> <parts...>",
	Short: "Start rebuilding an index: backfill, lock, drain the operation log, reactivate",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID, err := parseSpace(args[0])
		if err != nil {
			return err
		}
		indexID, err := parseSpace(args[1])
		if err != nil {
			return err
		}
		parts, err := parseParts(args[2:])
		if err != nil {
			return err
		}
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		taskID := rt.Driver.AddTask(&query.AddTaskRequest{Space: spaceID, IndexID: indexID, Parts: parts})
		fmt.Println(taskID)
		return nil
	},
}

var rebuildStopCmd = &cobra.Command{
	Use:   "stop <space> <task-id>",
	Short: "Cancel a running index rebuild",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spaceID, err := parseSpace(args[0])
		if err != nil {
			return err
		}
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		if !rt.Driver.StopTask(&query.StopTaskRequest{Space: spaceID, TaskID: args[1]}) {
			return fmt.Errorf("storaged: no running task %q", args[1])
		}
		return nil
	},
}

func init() {
	rebuildCmd.AddCommand(rebuildStartCmd)
	rebuildCmd.AddCommand(rebuildStopCmd)
}

func parseSpace(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("storaged: invalid integer %q: %w", s, err)
	}
	return int32(v), nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("storaged: expected true or false, got %q", s)
	}
}

func parseParts(args []string) ([]types.PartitionID, error) {
	parts := make([]types.PartitionID, 0, len(args))
	for _, a := range args {
		v, err := parseSpace(a)
		if err != nil {
			return nil, err
		}
		parts = append(parts, types.PartitionID(v))
	}
	return parts, nil
}
