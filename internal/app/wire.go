//go:build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/amaumene/watchtrack/internal/config"
)

// InitializeApp builds the HTTP service
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(ServerSet, wire.Struct(new(App), "*"))
	return nil, nil, nil
}

// InitializeTools builds what the one-shot CLI commands need
func InitializeTools(ctx context.Context, cfg *config.Config) (*Tools, func(), error) {
	wire.Build(CoreSet, wire.Struct(new(Tools), "*"))
	return nil, nil, nil
}
