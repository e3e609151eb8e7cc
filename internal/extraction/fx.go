package extraction

import (
	"context"
	"fmt"

	"github.com/receiptorhq/receiptor/internal/config"
	"github.com/receiptorhq/receiptor/internal/extraction/domain"
	"github.com/receiptorhq/receiptor/internal/extraction/mock"
	"go.uber.org/fx"
)

var Module = fx.Module("extraction",
	fx.Provide(provideExtractor),
)

func provideExtractor(cfg config.Config) (domain.Extractor, error) {
	switch cfg.Extractor {
	case "", "mock":
		return mock.New(), nil
	case "none":
		return unavailableExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.Extractor)
	}
}

// unavailableExtractor fails every call; it keeps the pipeline runnable in
// environments with no extraction backend configured.
type unavailableExtractor struct{}

func (unavailableExtractor) Extract(ctx context.Context, data []byte, mimeType string) (domain.Result, error) {
	return domain.Result{}, domain.ErrUnavailable
}
