package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weftwork/weft/pkg/models"
)

const (
	DefaultPollInterval  = 5 * time.Second
	DefaultLeaseDuration = 5 * time.Minute

	claimBatchSize = 10
)

// ClaimStore is the slice of persistence the poller needs. Claim must be
// atomic across workers: exactly one concurrent caller gets true for a
// given execution.
type ClaimStore interface {
	ListClaimable(ctx context.Context, limit int) ([]*models.Execution, error)
	Claim(ctx context.Context, executionID, workerID string, leaseUntil time.Time) (bool, error)
}

// Runner executes a claimed run to a terminal status.
type Runner interface {
	Execute(ctx context.Context, execution *models.Execution) error
}

// PollerConfig tunes the claim loop. Zero values take the defaults.
type PollerConfig struct {
	WorkerID      string
	PollInterval  time.Duration
	LeaseDuration time.Duration
}

// Poller repeatedly claims pending executions and hands them to the runner.
// Each claimed run executes in its own goroutine so one slow workflow never
// starves the loop.
type Poller struct {
	store         ClaimStore
	runner        Runner
	workerID      string
	pollInterval  time.Duration
	leaseDuration time.Duration
	logger        *slog.Logger

	wg sync.WaitGroup
}

func NewPoller(store ClaimStore, runner Runner, config PollerConfig, logger *slog.Logger) *Poller {
	if config.WorkerID == "" {
		config.WorkerID = "worker-" + uuid.New().String()[:8]
	}

	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	if config.LeaseDuration <= 0 {
		config.LeaseDuration = DefaultLeaseDuration
	}

	return &Poller{
		store:         store,
		runner:        runner,
		workerID:      config.WorkerID,
		pollInterval:  config.PollInterval,
		leaseDuration: config.LeaseDuration,
		logger:        logger.With("module", "workflow_poller", "worker_id", config.WorkerID),
	}
}

func (p *Poller) WorkerID() string {
	return p.workerID
}

// Start runs the claim loop until ctx is cancelled, then waits for in-flight
// executions to finish.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info("Starting poller", "poll_interval", p.pollInterval, "lease_duration", p.leaseDuration)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Stopping poller, waiting for in-flight executions")
			p.wg.Wait()

			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick claims and launches one batch. Storage errors end the tick; the next
// one starts fresh.
func (p *Poller) tick(ctx context.Context) {
	candidates, err := p.store.ListClaimable(ctx, claimBatchSize)
	if err != nil {
		p.logger.Error("Failed to list claimable executions", "error", err)
		return
	}

	for _, candidate := range candidates {
		leaseUntil := time.Now().UTC().Add(p.leaseDuration)

		claimed, err := p.store.Claim(ctx, candidate.ID, p.workerID, leaseUntil)
		if err != nil {
			p.logger.Error("Failed to claim execution", "execution_id", candidate.ID, "error", err)
			continue
		}

		if !claimed {
			// Another worker got there first.
			continue
		}

		candidate.Status = models.ExecutionStatusRunning
		candidate.StartedAt = time.Now().UTC()
		candidate.WorkerID = p.workerID
		candidate.LeaseExpiresAt = &leaseUntil

		p.logger.Info("Claimed execution", "execution_id", candidate.ID, "workflow_id", candidate.WorkflowID)

		p.wg.Add(1)

		// Claimed runs keep executing through shutdown: cancelling the loop
		// context stops claiming, while each run finishes and reaches a
		// terminal status. Start waits for them before returning.
		runCtx := context.WithoutCancel(ctx)

		go func(execution *models.Execution) {
			defer p.wg.Done()

			// Execute reports failures through the execution row and its
			// own logs; nothing to do with the error here.
			_ = p.runner.Execute(runCtx, execution)
		}(candidate)
	}
}
