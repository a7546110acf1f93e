package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/adapter/broker"
	"github.com/polkiloo/orderflow/internal/adapter/gateway"
	"github.com/polkiloo/orderflow/internal/app"
	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/logger"
	"github.com/polkiloo/orderflow/internal/metrics"
	"github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/server/http/router"
	"github.com/polkiloo/orderflow/internal/storage/postgres"
	"github.com/polkiloo/orderflow/internal/usecase"
)

// Module assembles the whole service graph. Extra options are applied last so tests can replace adapters.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		auth.Module,
		postgres.Module,
		gateway.Module,
		broker.Module,
		usecase.Module,
		fx.Provide(
			func(client gateway.Client) usecase.PaymentGateway { return client },
			func(decoder gateway.Decoder) usecase.WebhookDecoder { return decoder },
			func(publisher broker.Publisher) usecase.EventPublisher { return publisher },
			func(s *postgres.Storage) app.HealthChecker { return s },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
