// Package worker moves stored transactions into the long-term CSV
// archive, driven by AMQP events with a periodic rescan as backstop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Keratosis/Budget-tracker-application/internal/amqp"
	"github.com/Keratosis/Budget-tracker-application/internal/core"
	"github.com/Keratosis/Budget-tracker-application/internal/log"
	"github.com/Keratosis/Budget-tracker-application/internal/storage"

	"golang.org/x/sync/errgroup"
)

type ArchiveWorker struct {
	repo      *storage.Repository
	archive   *Archive
	batchSize int

	mu sync.Mutex // serializes event handling against rescans
}

func NewArchiveWorker(repo *storage.Repository, archive *Archive, batchSize int) *ArchiveWorker {
	return &ArchiveWorker{
		repo:      repo,
		archive:   archive,
		batchSize: batchSize,
	}
}

// HandleEvent processes one transaction event from the queue. Events for
// rows already archived, or deleted before archiving, are dropped.
func (w *ArchiveWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	return w.archiveOne(ctx, event.ID)
}

// RescanPending archives any rows the broker never delivered, up to the
// configured batch size per pass.
func (w *ArchiveWorker) RescanPending(ctx context.Context) error {
	pending, err := w.repo.PendingArchive(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("scan pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Archiving pending transactions", "count", len(pending))
	for _, tx := range pending {
		if err := w.archiveOne(ctx, tx.ID); err != nil {
			return err
		}
	}
	return nil
}

func (w *ArchiveWorker) archiveOne(ctx context.Context, id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// The row is loaded inside the critical section: the other path may
	// have archived it between the batch snapshot and this lock.
	tx, err := w.repo.PendingTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		slog.DebugContext(ctx, "Transaction already archived or deleted, skipping",
			log.FieldTxID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load pending transaction: %w", err)
	}

	if err := w.archive.Append(tx); err != nil {
		return fmt.Errorf("append to archive: %w", err)
	}
	if err := w.repo.MarkArchived(ctx, tx.ID); err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}

	slog.InfoContext(ctx, "Transaction archived",
		log.FieldTxID, tx.ID,
		log.FieldUserID, tx.UserID,
		log.FieldAmountCents, tx.Amount.Cents)
	return nil
}

// Run consumes events and rescans in parallel until ctx is cancelled.
func (w *ArchiveWorker) Run(ctx context.Context, client *amqp.Client, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeTransactionEvents(ctx, func(event *amqp.TransactionEvent) error {
			return w.HandleEvent(ctx, event)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.RescanPending(ctx); err != nil {
					slog.ErrorContext(ctx, "Rescan failed", log.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}
