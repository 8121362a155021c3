// Package workflow executes claimed runs: it walks the node graph from the
// trigger, resolves parameters, dispatches actions and records the outcome.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/weftwork/weft/pkg/interpolation"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/otelhelper"
	"github.com/weftwork/weft/pkg/registry"
)

// Store is the slice of persistence the executor needs: append-only node
// logs and the final execution update.
type Store interface {
	AppendLog(ctx context.Context, entry *models.ExecutionLog) error
	FinishExecution(ctx context.Context, execution *models.Execution) error
}

type Executor struct {
	store    Store
	registry *registry.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewExecutor(store Store, registry *registry.Registry, logger *slog.Logger) *Executor {
	return &Executor{
		store:    store,
		registry: registry,
		logger:   logger.With("module", "workflow_executor"),
		tracer:   otel.Tracer("github.com/weftwork/weft/pkg/workflow"),
	}
}

// Execute runs a claimed execution to a terminal status. The returned error
// reports the run failure, if any; the execution row is updated either way.
func (e *Executor) Execute(ctx context.Context, execution *models.Execution) error {
	ctx, span := e.tracer.Start(ctx, "workflow.execute", trace.WithAttributes(
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
		attribute.String(otelhelper.TriggerTypeKey, string(execution.Trigger)),
	))
	defer span.End()

	logger := e.logger.With(
		"execution_id", execution.ID,
		"workflow_id", execution.WorkflowID,
	)

	logger.Info("Starting workflow execution", "trigger", execution.Trigger)

	output, runErr := e.run(ctx, execution, logger)

	now := time.Now().UTC()
	execution.CompletedAt = &now

	if runErr != nil {
		execution.Status = models.ExecutionStatusFailed
		execution.Error = runErr.Error()
		otelhelper.SetError(span, runErr)
		logger.Error("Workflow execution failed", "error", runErr)
	} else {
		execution.Status = models.ExecutionStatusCompleted
		execution.Output = output
		logger.Info("Workflow execution completed")
	}

	if err := e.store.FinishExecution(ctx, execution); err != nil {
		logger.Error("Failed to persist execution result", "error", err)
		return fmt.Errorf("failed to persist execution %s: %w", execution.ID, err)
	}

	return runErr
}

// run walks the graph and returns the output of the last executed node.
// It stops at the first node failure and reports that node's error as the
// run error.
func (e *Executor) run(ctx context.Context, execution *models.Execution, logger *slog.Logger) (map[string]any, error) {
	if len(execution.Nodes) == 0 {
		return nil, ErrNoNodes
	}

	trigger := execution.TriggerNode()
	if trigger == nil || trigger.Disabled {
		return nil, ErrNoTrigger
	}

	seed, err := triggerOutput(trigger, execution.TriggerData)
	if err != nil {
		return nil, err
	}

	executionCtx := models.ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		OwnerID:     execution.OwnerID,
		TriggerData: execution.TriggerData,
	}

	graph := newExecutionGraph(execution.Nodes, execution.Connections, trigger.ID)

	nodeOutputs := map[string]map[string]any{trigger.ID: seed}
	lastOutput := seed

	// The trigger gets a log row like any executed node, with the seed as
	// its output.
	triggerEntry := &models.ExecutionLog{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		NodeID:      trigger.ID,
		NodeName:    trigger.Name,
		Status:      models.LogStatusCompleted,
		InputData:   []any{},
		OutputData:  seed,
		Timestamp:   time.Now().UTC(),
	}

	if logErr := e.store.AppendLog(ctx, triggerEntry); logErr != nil {
		logger.Error("Failed to append execution log", "error", logErr)
	}

	queue := graph.satisfy(trigger.ID)
	graph.executed(trigger.ID)

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		graph.executed(node.ID)

		if node.Disabled {
			logger.Info("Node is disabled, skipping", "node_id", node.ID)

			queue = append(queue, graph.satisfy(node.ID)...)

			continue
		}

		output, err := e.executeNode(ctx, execution, executionCtx, node, graph, nodeOutputs, logger)
		if err != nil {
			return nil, err
		}

		nodeOutputs[node.ID] = output
		lastOutput = output

		queue = append(queue, graph.satisfy(node.ID)...)
	}

	if graph.unexecuted() > 0 {
		return nil, ErrCycle
	}

	return lastOutput, nil
}

func (e *Executor) executeNode(
	ctx context.Context,
	execution *models.Execution,
	executionCtx models.ExecutionContext,
	node *models.Node,
	graph *executionGraph,
	nodeOutputs map[string]map[string]any,
	logger *slog.Logger,
) (map[string]any, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.node", trace.WithAttributes(
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, string(node.Kind)),
		attribute.String(otelhelper.NodeNameKey, node.Name),
	))
	defer span.End()

	nodeLogger := logger.With(
		"node_id", node.ID,
		"node_kind", node.Kind,
		"node_name", node.Name,
	)

	nodeLogger.Info("Executing node")

	inputs := make([]any, 0, len(graph.sources(node.ID)))

	for _, source := range graph.sources(node.ID) {
		if output, ok := nodeOutputs[source]; ok {
			inputs = append(inputs, output)
		}
	}

	parameters := interpolation.Resolve(node.Parameters, nodeOutputs, execution.Nodes)

	output, err := e.dispatch(ctx, executionCtx, node, parameters, nodeLogger)

	entry := &models.ExecutionLog{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		NodeName:    node.Name,
		InputData:   inputs,
		Timestamp:   time.Now().UTC(),
	}

	if err != nil {
		entry.Status = models.LogStatusFailed
		entry.Error = err.Error()
		otelhelper.SetError(span, err)
		nodeLogger.Error("Node failed", "error", err)
	} else {
		entry.Status = models.LogStatusCompleted
		entry.OutputData = output
		nodeLogger.Info("Node completed")
	}

	if logErr := e.store.AppendLog(ctx, entry); logErr != nil {
		nodeLogger.Error("Failed to append execution log", "error", logErr)
	}

	return output, err
}

// dispatch builds and runs the action for a node. Trigger kinds never reach
// the registry, so a trigger wired downstream of another node fails the run
// the same way an unregistered kind does.
func (e *Executor) dispatch(
	ctx context.Context,
	executionCtx models.ExecutionContext,
	node *models.Node,
	parameters map[string]any,
	logger *slog.Logger,
) (map[string]any, error) {
	action, err := e.registry.CreateAction(node.Kind, parameters)
	if err != nil {
		return nil, err
	}

	return action.Execute(ctx, executionCtx, logger)
}

// triggerOutput seeds the trigger node's output so downstream nodes can
// interpolate against it.
func triggerOutput(trigger *models.Node, triggerData map[string]any) (map[string]any, error) {
	switch trigger.Kind {
	case models.KindWebhook:
		return map[string]any{
			"message": "webhook received",
			"body":    triggerData["body"],
			"headers": triggerData["headers"],
		}, nil
	case models.KindManual:
		return map[string]any{
			"message": "manual trigger",
			"data":    map[string]any{},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTriggerKind, trigger.Kind)
	}
}
