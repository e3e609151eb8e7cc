package receipt

import (
	"github.com/receiptorhq/receiptor/internal/receipt/repository"
	"github.com/receiptorhq/receiptor/internal/receipt/service"
	"go.uber.org/fx"
)

var Module = fx.Module("receipt.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
