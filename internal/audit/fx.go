package audit

import (
	"github.com/receiptorhq/receiptor/internal/audit/repository"
	"github.com/receiptorhq/receiptor/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
