package rule

import (
	"github.com/receiptorhq/receiptor/internal/rule/repository"
	"github.com/receiptorhq/receiptor/internal/rule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
