package router

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/app"
	"github.com/polkiloo/orderflow/internal/server/http/handlers"
)

// Module registers HTTP router construction for fx runtime.
var Module = fx.Options(
	fx.Provide(func(f *app.OrderFlowFacade) handlers.OrderFlowFacade { return f }),
	fx.Provide(Setup),
)
