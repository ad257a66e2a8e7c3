/*
Package events provides an in-memory event broker used to broadcast
storage-node lifecycle events to interested subscribers: checkpoint
create/drop, space clears, index rebuild progress, and partitions losing
Raft leadership.

# Core Components

Broker:
  - Start/Stop run the distribution goroutine
  - Subscribe/Unsubscribe hand out a buffered Subscriber channel
  - Publish enqueues an Event, stamping Timestamp if unset
  - Delivery is best-effort: a full subscriber buffer drops the event
    rather than blocking the publisher

Event Types:
  - EventIndexRebuildStarted / Completed / Failed
  - EventIndexLocked
  - EventCheckpointCreated / EventCheckpointDropped
  - EventSpaceCleared
  - EventPartitionLeaderLost

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for ev := range sub {
			log.Info().Str("type", string(ev.Type)).Msg(ev.Message)
		}
	}()

# Integration Points

  - pkg/admin: publishes checkpoint and space-clear events
  - pkg/indexrebuild: publishes the rebuild lifecycle
  - cmd/storaged: owns the process-wide Broker and wires it into both
*/
package events
