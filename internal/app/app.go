// Package app wires the configured backends shared by the API server and
// the drawctl CLI.
package app

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/config"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/repositories"
	mongorepo "github.com/ArowuTest/bridgetunes-draw-console/internal/repositories/mongodb"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/services"
	"github.com/ArowuTest/bridgetunes-draw-console/pkg/mongodb"
	"github.com/ArowuTest/bridgetunes-draw-console/pkg/promoapi"
)

const retryBackoff = 500 * time.Millisecond

// NewPromoClient builds the promo backend client from cfg.
func NewPromoClient(cfg *config.Config) *promoapi.Client {
	opts := []promoapi.Option{
		promoapi.WithRetries(cfg.API.MaxRetries, retryBackoff),
	}
	if t := cfg.API.Timeout(); t > 0 {
		opts = append(opts, promoapi.WithTimeout(t))
	}
	if cfg.API.RequestsPerSecond > 0 {
		opts = append(opts, promoapi.WithRateLimit(cfg.API.RequestsPerSecond))
	}
	return promoapi.NewClient(cfg.API.BaseURL, opts...)
}

// OpenAuditRepository returns the MongoDB audit trail when mongodb.uri is
// set and a bounded in-memory one otherwise. The returned func releases
// the connection.
func OpenAuditRepository(ctx context.Context, cfg *config.Config) (repositories.DrawAuditRepository, func(context.Context), error) {
	if cfg.MongoDB.URI == "" {
		zap.L().Info("mongodb.uri not set, keeping the draw audit in memory", zap.Int("limit", cfg.Draw.AuditLimit))
		return repositories.NewMemoryDrawAuditRepository(cfg.Draw.AuditLimit), func(context.Context) {}, nil
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, time.Duration(cfg.MongoDB.TimeoutSecs)*time.Second)
	if err != nil {
		return nil, nil, eris.Wrap(err, "connect to mongodb")
	}
	closeFn := func(ctx context.Context) {
		if err := client.Disconnect(ctx); err != nil {
			zap.L().Error("error disconnecting from mongodb", zap.Error(err))
		}
	}
	if err := mongorepo.EnsureIndexes(ctx, client.Database()); err != nil {
		closeFn(ctx)
		return nil, nil, eris.Wrap(err, "ensure draw audit indexes")
	}
	zap.L().Info("connected to mongodb", zap.String("database", cfg.MongoDB.Database))
	return mongorepo.NewDrawAuditRepository(client.Database()), closeFn, nil
}

// NewConsoleService builds the console around backend and audit using the
// draw settings of cfg.
func NewConsoleService(cfg *config.Config, backend services.PromoBackend, audit repositories.DrawAuditRepository) *services.ConsoleService {
	return services.NewConsoleService(backend, audit, services.ConsoleOptions{
		SpinDelay: cfg.Draw.SpinDelay(),
		CacheTTL:  cfg.Draw.CacheTTL(),
		IdleAfter: cfg.Draw.SessionIdle(),
	})
}
