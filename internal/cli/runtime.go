package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"balansim/internal/backend"
	"balansim/internal/core"
	"balansim/internal/log"
	"balansim/internal/services"
)

const shutdownTimeout = 30 * time.Second

// pinger is implemented by stores that can report their own health.
type pinger interface {
	Ping(ctx context.Context) error
}

// ledgerRuntime is an opened ledger service plus the backend behind it.
type ledgerRuntime struct {
	*services.LedgerService
	backend *backend.Result
}

// openLedger builds the configured backend and loads the document. Closing
// the returned runtime flushes pending events and closes the store.
func (a *app) openLedger(ctx context.Context) (*ledgerRuntime, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(a.logger).Create(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	svc := services.NewLedgerService(res.Store, res.Publisher, services.Options{
		StartingBalance: a.cfg.StartingBalance(),
		SeedExample:     a.cfg.SeedExample,
		Logger:          a.logger,
	})
	err = svc.Open(ctx)
	if errors.Is(err, core.ErrPersistence) {
		// The default document is in memory and the next mutation retries the save.
		a.logger.WarnContext(ctx, "Could not save the initial ledger", log.FieldError, err.Error())
		err = nil
	}
	if err != nil {
		if cerr := svc.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &ledgerRuntime{LedgerService: svc, backend: res}, nil
}

// ready returns the store health check, or nil when the store has none.
func (r *ledgerRuntime) ready() func(ctx context.Context) error {
	if p, ok := r.backend.Store.(pinger); ok {
		return p.Ping
	}
	return nil
}

// closeLedger closes r and logs instead of failing, for deferred use.
func (a *app) closeLedger(ctx context.Context, r *ledgerRuntime) {
	if err := r.Close(); err != nil {
		a.logger.ErrorContext(ctx, "Failed to close ledger", log.NewFields().
			WithOperation(log.OpShutdown).
			WithError(err).
			ToSlice()...)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func (a *app) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			a.logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
