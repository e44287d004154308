// Package worker consumes famspese events: installment generation and the
// spreadsheet export, each with a periodic backup pass.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"famspese/internal/amqp"
)

// Consumer is satisfied by *amqp.Client.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler amqp.Handler) error
}

// Options configures Run.
type Options struct {
	Routes              amqp.Routes
	SyncInterval        time.Duration
	InstallmentInterval time.Duration
}

// Run consumes both queues and runs the periodic passes until ctx is done or
// one of them fails. A nil consumer runs the periodic passes only.
func Run(ctx context.Context, consumer Consumer, installments *InstallmentWorker, exports *ExportWorker, opts Options) error {
	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return ignoreCanceled(consumer.Consume(ctx, opts.Routes.Installments, installments.HandleEvent))
		})
		g.Go(func() error {
			return ignoreCanceled(consumer.Consume(ctx, opts.Routes.Export, exports.HandleEvent))
		})
	} else {
		slog.WarnContext(ctx, "No AMQP consumer configured, running periodic passes only")
	}

	g.Go(func() error {
		return exports.RunPeriodic(ctx, opts.SyncInterval)
	})
	g.Go(func() error {
		return installments.RunPeriodic(ctx, opts.InstallmentInterval)
	})

	return g.Wait()
}

// every calls fn each interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
