// Package worker folds committed expenses announced on the bus into the
// per-trip totals, and catches up on rows whose announcement was lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"viaggi/internal/amqp"
	"viaggi/internal/core"
	"viaggi/internal/ledger"
	"viaggi/internal/log"
	"viaggi/internal/storage"
)

// Repository is the slice of the SQLite ledger the worker needs.
type Repository interface {
	GetExpense(ctx context.Context, ref string) (core.Expense, error)
	PendingExpenses(ctx context.Context, limit int) ([]storage.PendingExpense, error)
	ApplyToTotals(ctx context.Context, ref string) (bool, error)
}

type Consumer interface {
	ConsumeExpenseCommitted(ctx context.Context, handler amqp.Handler) error
}

type ProcessorWorker struct {
	repo      Repository
	batchSize int
	logger    *log.Logger
}

func NewProcessorWorker(repo Repository, batchSize int, logger *log.Logger) *ProcessorWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ProcessorWorker{
		repo:      repo,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleCommitted processes the row a message points at. A message for a
// row that does not exist is logged and acknowledged, since redelivering
// it cannot help.
func (w *ProcessorWorker) HandleCommitted(ctx context.Context, msg *amqp.ExpenseCommittedMessage) error {
	err := w.process(ctx, msg.Ref)
	if errors.Is(err, ledger.ErrExpenseNotFound) {
		w.logger.WarnContext(ctx, "Committed expense not found, dropping message",
			log.FieldRef, msg.Ref, log.FieldTripID, msg.TripID)
		return nil
	}
	return err
}

func (w *ProcessorWorker) process(ctx context.Context, ref string) error {
	e, err := w.repo.GetExpense(ctx, ref)
	if err != nil {
		return fmt.Errorf("load expense %s: %w", ref, err)
	}

	applied, err := w.repo.ApplyToTotals(ctx, ref)
	if err != nil {
		return err
	}
	if !applied {
		w.logger.DebugContext(ctx, "Expense already processed", log.FieldRef, ref)
		return nil
	}

	w.logger.InfoContext(ctx, "Expense added to trip totals",
		log.NewFields().
			WithExpense(e.TripID, string(e.Kind), e.Amount.Cents, e.Category).
			WithOperation(log.OpProcess).
			ToSlice()...)
	return nil
}

// ProcessPending works through one batch of unprocessed rows and returns how
// many were processed. Failures are logged and left for the next pass.
func (w *ProcessorWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processBatch(ctx, w.batchSize)
}

// StartupCheck runs a larger catch-up pass before consumption begins.
func (w *ProcessorWorker) StartupCheck(ctx context.Context) (int, error) {
	n, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return n, err
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "Startup catch-up completed", "processed", n)
	}
	return n, nil
}

func (w *ProcessorWorker) processBatch(ctx context.Context, limit int) (int, error) {
	pending, err := w.repo.PendingExpenses(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}

	done := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		ref := strconv.FormatInt(p.ID, 10)
		if err := w.process(ctx, ref); err != nil {
			w.logger.ErrorContext(ctx, "Failed to process pending expense",
				log.FieldRef, ref, log.FieldError, err)
			continue
		}
		done++
	}
	return done, nil
}

// Run consumes messages and polls for pending rows every interval until ctx
// ends. consumer may be nil, leaving only the poller.
func (w *ProcessorWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeExpenseCommitted(gctx, w.HandleCommitted)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if _, err := w.ProcessPending(gctx); err != nil && gctx.Err() == nil {
					w.logger.ErrorContext(gctx, "Periodic catch-up failed", log.FieldError, err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
