package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"balansim/internal/advice"
	"balansim/internal/cache"
	apphttp "balansim/internal/http"
	"balansim/internal/log"
)

const (
	adviceCacheSize    = 64
	adviceCacheTTL     = time.Hour
	cacheCleanupPeriod = 10 * time.Minute
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()
			if addr == "" {
				addr = ":" + a.cfg.Port
			}
			return a.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, defaults to :PORT")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	ledger, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	defer a.closeLedger(context.WithoutCancel(ctx), ledger)

	adv, stopAdvice := a.startAdvice(ctx)
	defer stopAdvice()
	ledger.Subscribe(adv.OnLedgerChange)
	adv.OnLedgerChange(ledger.Snapshot())

	srv := apphttp.NewServer(addr, ledger, adv, apphttp.Options{
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
		MetricsEnabled:     a.cfg.MetricsEnabled,
		Location:           a.cfg.Location(),
		Logger:             a.logger,
		Ready:              ledger.ready(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.InfoContext(gctx, "Starting balansim server",
			"addr", addr,
			log.FieldBackend, a.cfg.DataBackend,
			"metrics", a.cfg.MetricsEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.ErrorContext(shutdownCtx, "Server shutdown error", log.FieldError, err.Error())
			return err
		}
		a.logger.Info("Server stopped gracefully")
		return nil
	})
	return g.Wait()
}

// startAdvice builds the debounced advice service and its cache cleanup. A
// client that cannot be created degrades to the fixed fallback text.
func (a *app) startAdvice(ctx context.Context) (*advice.Service, func()) {
	advisor, err := advice.NewGeminiAdvisor(ctx, a.cfg.AdviceAPIKey, a.cfg.AdviceModel, a.cfg.AdviceTimeout)
	if err != nil {
		a.logger.WarnContext(ctx, "Advice client unavailable, using fallback text", log.FieldError, err.Error())
		advisor = advice.Static(advice.UnavailableAdvice)
	}

	adviceCache := cache.NewLRUCache[string](adviceCacheSize, adviceCacheTTL)
	caches := cache.NewManager()
	caches.Register(adviceCache)
	caches.StartCleanup(cacheCleanupPeriod)

	svc := advice.NewService(advisor, a.cfg.AdviceDebounce, adviceCache, a.logger)
	return svc, func() {
		svc.Close()
		caches.Stop()
	}
}
