package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewOrderFlowFacade,
		newHTTPServer,
		newNotificationProcessor,
		newEventRelay,
	),
	fx.Invoke(registerLifecycle),
)

var (
	_ worker.NotificationFacade = (*OrderFlowFacade)(nil)
	_ worker.EventFacade        = (*OrderFlowFacade)(nil)
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Facade *OrderFlowFacade
	Config *config.Config
	Logger *slog.Logger
}

func newNotificationProcessor(p workerParams) *worker.NotificationProcessor {
	return worker.NewNotificationProcessor(
		p.Facade,
		p.Config.NotificationPollInterval,
		p.Config.NotificationBatchSize,
		p.Config.WorkerPoolSize,
		p.Logger.With(slog.String("worker", "notifications")),
	)
}

func newEventRelay(p workerParams) *worker.EventRelay {
	return worker.NewEventRelay(
		p.Facade,
		p.Config.EventRelayInterval,
		p.Config.NotificationBatchSize,
		p.Config.WorkerPoolSize,
		p.Logger.With(slog.String("worker", "events")),
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle     fx.Lifecycle
	Shutdowner    fx.Shutdowner
	Logger        *slog.Logger
	Server        *http.Server
	Notifications *worker.NotificationProcessor
	Relay         *worker.EventRelay
	Config        *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting orderflow", slog.String("addr", p.Server.Addr))
			// The start context expires once startup completes; workers run until OnStop.
			runCtx := context.WithoutCancel(ctx)
			p.Notifications.Start(runCtx)
			p.Relay.Start(runCtx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			err := p.Server.Shutdown(shutdownCtx)
			p.Notifications.Stop()
			p.Relay.Stop()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("orderflow stopped")
			return nil
		},
	})
}
