package workflow

import "errors"

var (
	// ErrNoNodes is returned when an execution references a workflow
	// snapshot with an empty node list.
	ErrNoNodes = errors.New("workflow has no nodes")

	// ErrNoTrigger is returned when no enabled trigger node exists to
	// seed the run.
	ErrNoTrigger = errors.New("workflow has no trigger node")

	// ErrCycle is returned when the connection graph loops back on
	// itself and the run cannot make progress.
	ErrCycle = errors.New("workflow graph contains a cycle")

	// ErrUnknownTriggerKind is returned when the trigger node carries a
	// kind the executor cannot seed output for.
	ErrUnknownTriggerKind = errors.New("unknown trigger kind")
)
