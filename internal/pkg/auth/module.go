package auth

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

const minSecretLength = 32

// Module provides token verification via fx.
var Module = fx.Options(
	fx.Provide(newTokenStrategy),
)

type strategyParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newTokenStrategy(p strategyParams) Strategy {
	if len(p.Config.AuthSecret) < minSecretLength {
		p.Logger.Warn("auth secret is shorter than recommended", slog.Int("min_length", minSecretLength))
	}
	return NewHMACStrategy(p.Config.AuthSecret)
}
