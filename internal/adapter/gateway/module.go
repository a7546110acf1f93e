package gateway

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module exposes gateway client and webhook decoder to fx graph.
var Module = fx.Provide(newClient, newDecoder)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(Options{
		BaseURL:     p.Config.GatewayURL,
		AccessToken: p.Config.GatewayAccessToken,
		FrontendURL: p.Config.FrontendURL,
		BackendURL:  p.Config.BackendURL,
		Currency:    p.Config.Currency,
		Timeout:     p.Config.GatewayTimeout,
		MaxRetries:  p.Config.GatewayMaxRetries,
	}, p.Logger)
}

func newDecoder(p clientParams) Decoder {
	decoder := NewWebhookDecoder(p.Config.WebhookSecret)
	if !decoder.VerifiesSignatures() {
		p.Logger.Warn("webhook secret not configured, signature verification disabled")
	}
	return decoder
}
